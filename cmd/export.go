package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jing2uo/finfo2db/config"
	"github.com/jing2uo/finfo2db/model"
	"github.com/jing2uo/finfo2db/utils"
)

type ExportOptions struct {
	Output   string
	Format   string
	FromDate string // 包含, 为空时导出全部
	Symbols  []string
}

// Export 按股票导出已入库的行情, 每只股票一个文件
func Export(ctx context.Context, cfg config.Config, opts ExportOptions) error {
	if opts.Output == "" {
		return fmt.Errorf("export output directory is required")
	}
	format := opts.Format
	if format == "" {
		format = cfg.Export.Format
	}

	var start *time.Time
	if opts.FromDate != "" {
		d, err := time.Parse("2006-01-02", opts.FromDate)
		if err != nil {
			return fmt.Errorf("invalid from date %q: %w", opts.FromDate, err)
		}
		start = &d
	}

	symbols := opts.Symbols
	if len(symbols) == 0 {
		symbols = cfg.Sync.Symbols
	}
	symbols, err := utils.NormalizeSymbols(symbols)
	if err != nil {
		return err
	}

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
		return fmt.Errorf("table %s does not exist, run sync first", model.TablePrices.TableName)
	}

	fmt.Printf("🐢 开始导出 %d 只股票到 %s\n", len(symbols), opts.Output)
	total := 0
	for _, code := range symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := db.QueryPrices(ctx, code, start, nil)
		if err != nil {
			return fmt.Errorf("failed to query prices for %s: %w", code, err)
		}
		if len(records) == 0 {
			fmt.Printf("🟡 %s 没有数据\n", code)
			continue
		}

		if _, err := utils.ExportPrices(opts.Output, code, format, records); err != nil {
			return fmt.Errorf("failed to export %s: %w", code, err)
		}
		total += len(records)
	}

	fmt.Printf("📦 导出完成, 共 %d 条\n", total)
	return nil
}
