package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/jing2uo/finfo2db/model"
)

// mapType 针对 ClickHouse 进行类型优化
func (d *ClickHouseDriver) mapType(col model.Column) string {
	var base string
	switch col.Type {
	case model.TypeString:
		switch strings.ToLower(col.Name) {
		case "code", "floor", "type", "stage", "status":
			base = "LowCardinality(String)"
		default:
			base = "String"
		}
	case model.TypeFloat64:
		base = "Float64"
	case model.TypeInt64:
		base = "Int64"
	case model.TypeDate:
		base = "Date32" // Date32 范围比 Date 更大 (1900-2299)
	case model.TypeDateTime:
		base = "DateTime64(3, 'Asia/Ho_Chi_Minh')"
	case model.TypeTime:
		base = "String" // ClickHouse 没有独立的时刻类型, 按 HH:MM:SS 文本存
	default:
		base = "String"
	}

	if !col.Nullable {
		return base
	}
	if strings.HasPrefix(base, "LowCardinality(") {
		return "LowCardinality(Nullable(" + strings.TrimSuffix(strings.TrimPrefix(base, "LowCardinality("), ")") + "))"
	}
	return "Nullable(" + base + ")"
}

func (d *ClickHouseDriver) createTableInternal(ctx context.Context, meta *model.TableMeta) error {
	var colDefs []string
	for _, col := range meta.Columns {
		colDefs = append(colDefs, fmt.Sprintf("%s %s", col.Name, d.mapType(col)))
	}

	orderBy := "tuple()"
	if len(meta.OrderByKey) > 0 {
		orderBy = "(" + strings.Join(meta.OrderByKey, ", ") + ")"
	}

	// ReplacingMergeTree 在后台合并时去掉排序键相同的重复行, 读取时配合 FINAL
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s
		) ENGINE = ReplacingMergeTree()
		ORDER BY %s
	`, meta.TableName, strings.Join(colDefs, ", "), orderBy)

	_, err := d.db.ExecContext(ctx, query)
	return err
}

func (d *ClickHouseDriver) registerViews() {
	d.viewImpls[model.ViewLatestPrice] = func(ctx context.Context) error {
		query := fmt.Sprintf(`
			CREATE OR REPLACE VIEW %s AS
			SELECT
				code,
				max(date) AS date,
				argMax(close, date) AS close,
				argMax(pct_change, date) AS pct_change,
				argMax(nm_volume, date) AS nm_volume
			FROM %s FINAL
			GROUP BY code
		`, model.ViewLatestPrice, model.TablePrices.TableName)

		_, err := d.db.ExecContext(ctx, query)
		return err
	}
}
