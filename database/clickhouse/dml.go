package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jing2uo/finfo2db/model"
)

// insertRows 按 batchSize 切块, 每块作为一个 ClickHouse block 提交
// ClickHouse 不报告冲突, 返回值为发送的行数, 重复行由 ReplacingMergeTree 合并
func (d *ClickHouseDriver) insertRows(ctx context.Context, meta *model.TableMeta, rows [][]interface{}) (int, error) {
	query := fmt.Sprintf("INSERT INTO %s (%s)", meta.TableName, strings.Join(meta.ColumnNames(), ", "))

	written := 0
	for start := 0; start < len(rows); start += d.batchSize {
		end := min(start+d.batchSize, len(rows))

		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return written, fmt.Errorf("failed to begin batch: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			_ = tx.Rollback()
			return written, fmt.Errorf("failed to prepare batch for %s: %w", meta.TableName, err)
		}

		for _, row := range rows[start:end] {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return written, fmt.Errorf("failed to append row to %s: %w", meta.TableName, err)
			}
		}

		if err := tx.Commit(); err != nil {
			_ = stmt.Close()
			return written, fmt.Errorf("failed to send batch to %s: %w", meta.TableName, err)
		}
		_ = stmt.Close()
		written += end - start
	}

	return written, nil
}

func (d *ClickHouseDriver) AppendPrices(ctx context.Context, records []model.PriceRecord) (int, error) {
	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		values, err := model.TablePrices.RowValues(rec)
		if err != nil {
			return 0, err
		}
		rows = append(rows, values)
	}
	return d.insertRows(ctx, model.TablePrices, rows)
}

func (d *ClickHouseDriver) InsertSyncLog(ctx context.Context, entry model.SyncLog) error {
	values, err := model.TableSyncLog.RowValues(entry)
	if err != nil {
		return err
	}
	_, err = d.insertRows(ctx, model.TableSyncLog, [][]interface{}{values})
	return err
}

func (d *ClickHouseDriver) GetLatestDate(ctx context.Context, tableName string, dateCol string) (time.Time, error) {
	query := fmt.Sprintf("SELECT maxOrNull(%s) AS latest FROM %s", dateCol, tableName)
	var latest sql.NullTime
	if err := d.db.GetContext(ctx, &latest, query); err != nil {
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return model.DateOf(latest.Time), nil
}

type codeDate struct {
	Code   string    `col:"code"`
	Latest time.Time `col:"latest"`
}

func (d *ClickHouseDriver) GetLatestDatesByCode(ctx context.Context) (map[string]time.Time, error) {
	query := fmt.Sprintf("SELECT code, max(date) AS latest FROM %s GROUP BY code", model.TablePrices.TableName)

	var rows []codeDate
	if err := d.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query latest dates by code: %w", err)
	}

	result := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		result[r.Code] = model.DateOf(r.Latest)
	}
	return result, nil
}

func (d *ClickHouseDriver) QueryPrices(ctx context.Context, code string, startDate, endDate *time.Time) ([]model.PriceRecord, error) {
	var conditions []string
	var args []interface{}

	if code != "" {
		conditions = append(conditions, "code = ?")
		args = append(args, code)
	}
	if startDate != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, model.DateOf(*startDate))
	}
	if endDate != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, model.DateOf(*endDate))
	}

	query := fmt.Sprintf("SELECT %s FROM %s FINAL",
		strings.Join(model.TablePrices.ColumnNames(), ", "), model.TablePrices.TableName)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, code ASC"

	var results []model.PriceRecord
	if err := d.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	return results, nil
}

func (d *ClickHouseDriver) QueryLatestPrices(ctx context.Context) ([]model.LatestPrice, error) {
	query := fmt.Sprintf("SELECT code, date, close, pct_change, nm_volume FROM %s ORDER BY code", model.ViewLatestPrice)

	var results []model.LatestPrice
	if err := d.db.SelectContext(ctx, &results, query); err != nil {
		return nil, fmt.Errorf("failed to query latest prices: %w", err)
	}
	return results, nil
}

func (d *ClickHouseDriver) CountRows(ctx context.Context, tableName string) (int64, error) {
	var count uint64
	if err := d.db.GetContext(ctx, &count, fmt.Sprintf("SELECT count() FROM %s FINAL", tableName)); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", tableName, err)
	}
	return int64(count), nil
}

func (d *ClickHouseDriver) RecentSyncLogs(ctx context.Context, limit int) ([]model.SyncLog, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY started_at DESC LIMIT %d",
		strings.Join(model.TableSyncLog.ColumnNames(), ", "), model.TableSyncLog.TableName, limit)

	var results []model.SyncLog
	if err := d.db.SelectContext(ctx, &results, query); err != nil {
		return nil, fmt.Errorf("failed to query sync logs: %w", err)
	}
	return results, nil
}
