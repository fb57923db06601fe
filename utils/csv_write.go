package utils

import (
	"database/sql/driver"
	"encoding/csv"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"
)

// CSVWriter 按 col 标签输出表头, 空值 (null.*) 写成空字符串
type CSVWriter[T any] struct {
	file          *os.File
	writer        *csv.Writer
	headerWritten bool
	columns       []columnInfo
}

type columnInfo struct {
	Index      int
	HeaderName string
	TimeLayout string // 来自 type 标签, 为空表示非时间列
}

var valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()

func NewCSVWriter[T any](filename string) (*CSVWriter[T], error) {
	cols, err := analyzeStructTags[T]()
	if err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &CSVWriter[T]{
		file:    f,
		writer:  csv.NewWriter(f),
		columns: cols,
	}, nil
}

func analyzeStructTags[T any]() ([]columnInfo, error) {
	var t T
	typ := reflect.TypeOf(t)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("generic type T must be a struct")
	}

	var cols []columnInfo
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Tag.Get("col")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		var layout string
		switch field.Tag.Get("type") {
		case "date":
			layout = "2006-01-02"
		case "datetime":
			layout = time.RFC3339
		default:
			if field.Type == reflect.TypeOf(time.Time{}) {
				layout = time.RFC3339
			}
		}

		cols = append(cols, columnInfo{Index: i, HeaderName: name, TimeLayout: layout})
	}
	return cols, nil
}

func (cw *CSVWriter[T]) Write(data []T) error {
	if len(data) == 0 {
		return nil
	}

	if !cw.headerWritten {
		headers := make([]string, len(cw.columns))
		for i, col := range cw.columns {
			headers[i] = col.HeaderName
		}
		if err := cw.writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		cw.headerWritten = true
	}

	record := make([]string, len(cw.columns))
	for _, item := range data {
		val := reflect.ValueOf(item)
		if val.Kind() == reflect.Ptr {
			val = val.Elem()
		}

		for i, col := range cw.columns {
			s, err := formatField(val.Field(col.Index), col.TimeLayout)
			if err != nil {
				return fmt.Errorf("failed to format column %s: %w", col.HeaderName, err)
			}
			record[i] = s
		}

		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	return nil
}

func formatField(fv reflect.Value, layout string) (string, error) {
	var v interface{} = fv.Interface()
	if fv.Type().Implements(valuerType) {
		dv, err := v.(driver.Valuer).Value()
		if err != nil {
			return "", err
		}
		v = dv
	}

	switch x := v.(type) {
	case nil:
		return "", nil
	case time.Time:
		if x.IsZero() {
			return "", nil
		}
		if layout == "" {
			layout = time.RFC3339
		}
		return x.Format(layout), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case string:
		return x, nil
	default:
		return fmt.Sprint(x), nil
	}
}

func (cw *CSVWriter[T]) Close() error {
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("failed to flush: %w", err)
	}
	return cw.file.Close()
}
