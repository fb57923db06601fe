package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jing2uo/finfo2db/model"
)

// selectColumns TIME 列转成字符串读出
func selectColumns(meta *model.TableMeta) string {
	cols := make([]string, len(meta.Columns))
	for i, col := range meta.Columns {
		if col.Type == model.TypeTime {
			cols[i] = fmt.Sprintf("CAST(%s AS VARCHAR) AS %s", col.Name, col.Name)
			continue
		}
		cols[i] = col.Name
	}
	return strings.Join(cols, ", ")
}

func rowPlaceholder(meta *model.TableMeta) string {
	marks := make([]string, len(meta.Columns))
	for i, col := range meta.Columns {
		if col.Type == model.TypeTime {
			marks[i] = "CAST(? AS TIME)"
			continue
		}
		marks[i] = "?"
	}
	return "(" + strings.Join(marks, ", ") + ")"
}

// insertRows 在单个事务内分批写入, 主键冲突的行被忽略
func (d *DuckDBDriver) insertRows(ctx context.Context, meta *model.TableMeta, rows [][]interface{}) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
		meta.TableName, strings.Join(meta.ColumnNames(), ", "))
	placeholder := rowPlaceholder(meta)

	written := 0
	for start := 0; start < len(rows); start += d.batchSize {
		end := min(start+d.batchSize, len(rows))
		chunk := rows[start:end]

		marks := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)*len(meta.Columns))
		for i, row := range chunk {
			marks[i] = placeholder
			args = append(args, row...)
		}

		query := prefix + strings.Join(marks, ", ") + " ON CONFLICT DO NOTHING"
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", meta.TableName, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read affected rows: %w", err)
		}
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert into %s: %w", meta.TableName, err)
	}
	return written, nil
}

func (d *DuckDBDriver) AppendPrices(ctx context.Context, records []model.PriceRecord) (int, error) {
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

func (d *DuckDBDriver) InsertSyncLog(ctx context.Context, entry model.SyncLog) error {
	values, err := model.TableSyncLog.RowValues(entry)
	if err != nil {
		return err
	}
	_, err = d.insertRows(ctx, model.TableSyncLog, [][]interface{}{values})
	return err
}

func (d *DuckDBDriver) GetLatestDate(ctx context.Context, tableName string, dateCol string) (time.Time, error) {
	query := fmt.Sprintf("SELECT max(%s) AS latest FROM %s", dateCol, tableName)

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

func (d *DuckDBDriver) GetLatestDatesByCode(ctx context.Context) (map[string]time.Time, error) {
	query := fmt.Sprintf("SELECT code, max(date) AS latest FROM %s GROUP BY code",
		model.TablePrices.TableName)

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

func (d *DuckDBDriver) QueryPrices(ctx context.Context, code string, startDate, endDate *time.Time) ([]model.PriceRecord, error) {
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

	query := fmt.Sprintf("SELECT %s FROM %s", selectColumns(model.TablePrices), model.TablePrices.TableName)
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

func (d *DuckDBDriver) QueryLatestPrices(ctx context.Context) ([]model.LatestPrice, error) {
	query := fmt.Sprintf("SELECT code, date, close, pct_change, nm_volume FROM %s ORDER BY code", model.ViewLatestPrice)

	var results []model.LatestPrice
	if err := d.db.SelectContext(ctx, &results, query); err != nil {
		return nil, fmt.Errorf("failed to query latest prices: %w", err)
	}
	return results, nil
}

func (d *DuckDBDriver) CountRows(ctx context.Context, tableName string) (int64, error) {
	var count int64
	if err := d.db.GetContext(ctx, &count, fmt.Sprintf("SELECT count(*) FROM %s", tableName)); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", tableName, err)
	}
	return count, nil
}

func (d *DuckDBDriver) RecentSyncLogs(ctx context.Context, limit int) ([]model.SyncLog, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY started_at DESC LIMIT ?",
		selectColumns(model.TableSyncLog), model.TableSyncLog.TableName)

	var results []model.SyncLog
	if err := d.db.SelectContext(ctx, &results, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query sync logs: %w", err)
	}
	return results, nil
}
