package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jing2uo/finfo2db/model"
)

func selectColumns(meta *model.TableMeta) string {
	cols := make([]string, len(meta.Columns))
	for i, col := range meta.Columns {
		if col.Type == model.TypeTime {
			cols[i] = fmt.Sprintf("%s::text AS %s", col.Name, col.Name)
			continue
		}
		cols[i] = col.Name
	}
	return strings.Join(cols, ", ")
}

func insertStatement(meta *model.TableMeta) string {
	marks := make([]string, len(meta.Columns))
	for i := range meta.Columns {
		marks[i] = fmt.Sprintf("$%d", i+1)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		meta.TableName, strings.Join(meta.ColumnNames(), ", "), strings.Join(marks, ", "))
	if len(meta.OrderByKey) > 0 {
		stmt += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(meta.OrderByKey, ", "))
	}
	return stmt
}

// insertRows 在一个事务内以 pgx.Batch 分批发送, 冲突行不计入返回值
func (d *PostgresDriver) insertRows(ctx context.Context, meta *model.TableMeta, rows [][]interface{}) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := insertStatement(meta)
	written := 0
	for start := 0; start < len(rows); start += d.batchSize {
		end := min(start+d.batchSize, len(rows))

		batch := &pgx.Batch{}
		for _, row := range rows[start:end] {
			batch.Queue(stmt, row...)
		}

		results := tx.SendBatch(ctx, batch)
		for range rows[start:end] {
			ct, err := results.Exec()
			if err != nil {
				results.Close()
				return 0, fmt.Errorf("failed to insert into %s: %w", meta.TableName, err)
			}
			written += int(ct.RowsAffected())
		}
		if err := results.Close(); err != nil {
			return 0, fmt.Errorf("failed to close batch for %s: %w", meta.TableName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit insert into %s: %w", meta.TableName, err)
	}
	return written, nil
}

func (d *PostgresDriver) AppendPrices(ctx context.Context, records []model.PriceRecord) (int, error) {
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

func (d *PostgresDriver) InsertSyncLog(ctx context.Context, entry model.SyncLog) error {
	values, err := model.TableSyncLog.RowValues(entry)
	if err != nil {
		return err
	}
	_, err = d.insertRows(ctx, model.TableSyncLog, [][]interface{}{values})
	return err
}

func (d *PostgresDriver) GetLatestDate(ctx context.Context, tableName string, dateCol string) (time.Time, error) {
	var latest pgtype.Date
	query := fmt.Sprintf("SELECT MAX(%s)::date FROM %s", dateCol, tableName)
	if err := d.pool.QueryRow(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return model.DateOf(latest.Time), nil
}

func (d *PostgresDriver) GetLatestDatesByCode(ctx context.Context) (map[string]time.Time, error) {
	query := fmt.Sprintf("SELECT code, MAX(date) FROM %s GROUP BY code", model.TablePrices.TableName)

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest dates by code: %w", err)
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var code string
		var latest time.Time
		if err := rows.Scan(&code, &latest); err != nil {
			return nil, fmt.Errorf("failed to scan latest date: %w", err)
		}
		result[code] = model.DateOf(latest)
	}
	return result, rows.Err()
}

func (d *PostgresDriver) QueryPrices(ctx context.Context, code string, startDate, endDate *time.Time) ([]model.PriceRecord, error) {
	var conditions []string
	var args []interface{}

	if code != "" {
		args = append(args, code)
		conditions = append(conditions, fmt.Sprintf("code = $%d", len(args)))
	}
	if startDate != nil {
		args = append(args, model.DateOf(*startDate))
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if endDate != nil {
		args = append(args, model.DateOf(*endDate))
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selectColumns(model.TablePrices), model.TablePrices.TableName)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, code ASC"

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var results []model.PriceRecord
	for rows.Next() {
		var rec model.PriceRecord
		ptrs, err := model.TablePrices.FieldPointers(&rec)
		if err != nil {
			return nil, err
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (d *PostgresDriver) QueryLatestPrices(ctx context.Context) ([]model.LatestPrice, error) {
	query := fmt.Sprintf("SELECT code, date, close, pct_change, nm_volume FROM %s ORDER BY code", model.ViewLatestPrice)

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest prices: %w", err)
	}
	defer rows.Close()

	var results []model.LatestPrice
	for rows.Next() {
		var p model.LatestPrice
		if err := rows.Scan(&p.Code, &p.Date, &p.Close, &p.PctChange, &p.NmVolume); err != nil {
			return nil, fmt.Errorf("failed to scan latest price: %w", err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (d *PostgresDriver) CountRows(ctx context.Context, tableName string) (int64, error) {
	var count int64
	if err := d.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", tableName)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", tableName, err)
	}
	return count, nil
}

func (d *PostgresDriver) RecentSyncLogs(ctx context.Context, limit int) ([]model.SyncLog, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY started_at DESC LIMIT $1",
		selectColumns(model.TableSyncLog), model.TableSyncLog.TableName)

	rows, err := d.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync logs: %w", err)
	}
	defer rows.Close()

	var results []model.SyncLog
	for rows.Next() {
		var entry model.SyncLog
		ptrs, err := model.TableSyncLog.FieldPointers(&entry)
		if err != nil {
			return nil, err
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}
