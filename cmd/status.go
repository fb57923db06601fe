package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jing2uo/finfo2db/config"
	"github.com/jing2uo/finfo2db/model"
)

// Status 打印水位、每只股票最新一条与最近的同步记录
func Status(ctx context.Context, cfg config.Config, limit int) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	exists, err := db.TableExists(ctx, model.TablePrices.TableName)
	if err != nil {
		return fmt.Errorf("failed to check price table: %w", err)
	}
	if !exists {
		fmt.Println("🌱 数据库尚未初始化")
		return nil
	}

	count, err := db.CountRows(ctx, model.TablePrices.TableName)
	if err != nil {
		return fmt.Errorf("failed to count prices: %w", err)
	}
	latest, err := db.GetLatestDate(ctx, model.TablePrices.TableName, "date")
	if err != nil {
		return fmt.Errorf("failed to get latest date: %w", err)
	}
	if latest.IsZero() {
		fmt.Println("📅 行情表为空")
	} else {
		fmt.Printf("📅 行情数据最新日期为 %s, 共 %d 条\n", latest.Format("2006-01-02"), count)
	}

	prices, err := db.QueryLatestPrices(ctx)
	if err != nil {
		return fmt.Errorf("failed to query latest prices: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tDATE\tCLOSE\tPCT_CHANGE\tVOLUME")
	for _, p := range prices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Code, p.Date.Format("2006-01-02"),
			formatFloat(p.Close.Ptr()), formatFloat(p.PctChange.Ptr()), formatFloat(p.NmVolume.Ptr()))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	logs, err := db.RecentSyncLogs(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to query sync logs: %w", err)
	}
	if len(logs) == 0 {
		return nil
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATUS\tSTAGE\tFETCHED\tWRITTEN\tERROR")
	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n", l.StartedAt.Local().Format("2006-01-02 15:04:05"),
			l.Status, l.Stage, l.Fetched, l.Written, l.Error.String)
	}
	return w.Flush()
}

func formatFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *f)
}
