package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jing2uo/finfo2db/model"
)

func (d *PostgresDriver) mapType(dt model.DataType) string {
	switch dt {
	case model.TypeString:
		return "VARCHAR(50)"
	case model.TypeFloat64:
		return "DOUBLE PRECISION"
	case model.TypeInt64:
		return "BIGINT"
	case model.TypeDate:
		return "DATE"
	case model.TypeDateTime:
		return "TIMESTAMPTZ"
	case model.TypeTime:
		return "TIME"
	default:
		return "TEXT"
	}
}

func (d *PostgresDriver) createTableInternal(ctx context.Context, meta *model.TableMeta) error {
	var colDefs []string
	for _, col := range meta.Columns {
		sqlType := d.mapType(col.Type)
		// 错误信息可能很长
		if col.Name == "error" {
			sqlType = "TEXT"
		}
		def := fmt.Sprintf("%s %s", col.Name, sqlType)
		if !col.Nullable {
			def += " NOT NULL"
		}
		colDefs = append(colDefs, def)
	}
	if len(meta.OrderByKey) > 0 {
		colDefs = append(colDefs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(meta.OrderByKey, ", ")))
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", meta.TableName, strings.Join(colDefs, ", "))
	if _, err := d.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", meta.TableName, err)
	}
	return nil
}

func (d *PostgresDriver) registerViews() {
	d.viewImpls[model.ViewLatestPrice] = func(ctx context.Context) error {
		query := fmt.Sprintf(`
			CREATE OR REPLACE VIEW %s AS
			SELECT DISTINCT ON (code)
				code,
				date,
				close,
				pct_change,
				nm_volume
			FROM %s
			ORDER BY code, date DESC
		`, model.ViewLatestPrice, model.TablePrices.TableName)

		_, err := d.pool.Exec(ctx, query)
		return err
	}
}
