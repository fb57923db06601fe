package duckdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/jing2uo/finfo2db/model"
)

// mapType 将通用 DataType 转换为 DuckDB 的 SQL 类型
func (d *DuckDBDriver) mapType(dt model.DataType) string {
	switch dt {
	case model.TypeString:
		return "VARCHAR"
	case model.TypeFloat64:
		return "DOUBLE"
	case model.TypeInt64:
		return "BIGINT"
	case model.TypeDate:
		return "DATE"
	case model.TypeDateTime:
		return "TIMESTAMP"
	case model.TypeTime:
		return "TIME"
	default:
		return "VARCHAR"
	}
}

func (d *DuckDBDriver) createTableInternal(ctx context.Context, meta *model.TableMeta) error {
	var colDefs []string
	for _, col := range meta.Columns {
		def := fmt.Sprintf("%s %s", col.Name, d.mapType(col.Type))
		if !col.Nullable {
			def += " NOT NULL"
		}
		colDefs = append(colDefs, def)
	}
	if len(meta.OrderByKey) > 0 {
		colDefs = append(colDefs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(meta.OrderByKey, ", ")))
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		meta.TableName, strings.Join(colDefs, ", "))

	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", meta.TableName, err)
	}
	return nil
}

func (d *DuckDBDriver) registerViews() {
	// 每只股票最新一个交易日
	d.viewImpls[model.ViewLatestPrice] = func(ctx context.Context) error {
		query := fmt.Sprintf(`
			CREATE OR REPLACE VIEW %s AS
			SELECT
				p.code,
				p.date,
				p.close,
				p.pct_change,
				p.nm_volume
			FROM %s p
			JOIN (
				SELECT code, max(date) AS date FROM %s GROUP BY code
			) m ON p.code = m.code AND p.date = m.date
		`, model.ViewLatestPrice, model.TablePrices.TableName, model.TablePrices.TableName)

		_, err := d.db.ExecContext(ctx, query)
		return err
	}
}
