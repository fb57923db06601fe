package model

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/guregu/null/v6"
)

type DataType int

const (
	TypeString DataType = iota
	TypeFloat64
	TypeInt64
	TypeDate     // YYYY-MM-DD
	TypeDateTime // YYYY-MM-DD HH:MM:SS
	TypeTime     // HH:MM:SS
)

type Column struct {
	Name     string
	Type     DataType
	Nullable bool
	field    int
}

type TableMeta struct {
	TableName  string
	Columns    []Column
	OrderByKey []string
}

// ColumnNames 按建表顺序返回列名
func (m *TableMeta) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

func (m *TableMeta) Column(name string) (Column, bool) {
	for _, c := range m.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

var (
	tableRegistry   []*TableMeta
	tableRegistryMu sync.Mutex
)

func registerTable(t *TableMeta) {
	tableRegistryMu.Lock()
	defer tableRegistryMu.Unlock()
	tableRegistry = append(tableRegistry, t)
}

// AllTables 返回当前所有已注册的表结构
func AllTables() []*TableMeta {
	tableRegistryMu.Lock()
	defer tableRegistryMu.Unlock()

	result := make([]*TableMeta, len(tableRegistry))
	copy(result, tableRegistry)
	return result
}

var (
	timeType       = reflect.TypeOf(time.Time{})
	nullFloatType  = reflect.TypeOf(null.Float{})
	nullStringType = reflect.TypeOf(null.String{})
	nullIntType    = reflect.TypeOf(null.Int{})
	nullTimeType   = reflect.TypeOf(null.Time{})
)

// SchemaFromStruct 通过反射生成 TableMeta 并自动注册
// null.* 字段视为可空列, type 标签可覆盖推断出的类型 (date / datetime / time)
func SchemaFromStruct(tableName string, model interface{}, orderByKey []string) *TableMeta {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var cols []Column

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		colName := field.Tag.Get("col")
		if colName == "-" {
			continue
		}
		if colName == "" {
			colName = strings.ToLower(field.Name)
		}

		var dType DataType
		nullable := false
		switch field.Type {
		case nullFloatType:
			dType, nullable = TypeFloat64, true
		case nullStringType:
			dType, nullable = TypeString, true
		case nullIntType:
			dType, nullable = TypeInt64, true
		case nullTimeType:
			dType, nullable = TypeDateTime, true
		case timeType:
			dType = TypeDateTime
		default:
			switch field.Type.Kind() {
			case reflect.Float64, reflect.Float32:
				dType = TypeFloat64
			case reflect.Int, reflect.Int64, reflect.Int32, reflect.Uint32:
				dType = TypeInt64
			default:
				dType = TypeString
			}
		}

		switch field.Tag.Get("type") {
		case "date":
			dType = TypeDate
		case "datetime":
			dType = TypeDateTime
		case "time":
			dType = TypeTime
		}

		cols = append(cols, Column{Name: colName, Type: dType, Nullable: nullable, field: i})
	}

	meta := &TableMeta{
		TableName:  tableName,
		Columns:    cols,
		OrderByKey: orderByKey,
	}

	registerTable(meta)

	return meta
}

// RowValues 按列顺序取出结构体字段值, 已转换为驱动可直接绑定的基础类型
// (nil / int64 / float64 / string / time.Time)
func (m *TableMeta) RowValues(v interface{}) ([]interface{}, error) {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("row of %s must be a struct, got %s", m.TableName, rv.Kind())
	}

	values := make([]interface{}, 0, len(m.Columns))
	for _, col := range m.Columns {
		fv := rv.Field(col.field).Interface()

		if valuer, ok := fv.(driver.Valuer); ok {
			val, err := valuer.Value()
			if err != nil {
				return nil, fmt.Errorf("failed to read column %s.%s: %w", m.TableName, col.Name, err)
			}
			fv = val
		}

		if col.Type == TypeDate {
			if ts, ok := fv.(time.Time); ok {
				fv = DateOf(ts)
			}
		}
		if n, ok := fv.(int); ok {
			fv = int64(n)
		}
		values = append(values, fv)
	}
	return values, nil
}

// FieldPointers 返回按列顺序排列的字段地址, 供 rows.Scan 使用
func (m *TableMeta) FieldPointers(dest interface{}) ([]interface{}, error) {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("scan target of %s must be a pointer to struct", m.TableName)
	}
	rv = rv.Elem()

	ptrs := make([]interface{}, len(m.Columns))
	for i, col := range m.Columns {
		ptrs[i] = rv.Field(col.field).Addr().Interface()
	}
	return ptrs, nil
}

// DateOf 截断为 UTC 零点, 仅保留日历日期
func DateOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
