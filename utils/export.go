package utils

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jing2uo/finfo2db/model"
)

// PriceRow PriceRecord 的 Parquet 行, 空值用 optional 列表示
type PriceRow struct {
	Code         string    `parquet:"code,dict"`
	Date         time.Time `parquet:"date"`
	Time         *string   `parquet:"time,optional"`
	Floor        *string   `parquet:"floor,optional,dict"`
	Type         *string   `parquet:"type,optional,dict"`
	BasicPrice   *float64  `parquet:"basic_price,optional"`
	CeilingPrice *float64  `parquet:"ceiling_price,optional"`
	FloorPrice   *float64  `parquet:"floor_price,optional"`
	Open         *float64  `parquet:"open,optional"`
	High         *float64  `parquet:"high,optional"`
	Low          *float64  `parquet:"low,optional"`
	Close        *float64  `parquet:"close,optional"`
	Average      *float64  `parquet:"average,optional"`
	AdOpen       *float64  `parquet:"ad_open,optional"`
	AdHigh       *float64  `parquet:"ad_high,optional"`
	AdLow        *float64  `parquet:"ad_low,optional"`
	AdClose      *float64  `parquet:"ad_close,optional"`
	AdAverage    *float64  `parquet:"ad_average,optional"`
	NmVolume     *float64  `parquet:"nm_volume,optional"`
	NmValue      *float64  `parquet:"nm_value,optional"`
	PtVolume     *float64  `parquet:"pt_volume,optional"`
	PtValue      *float64  `parquet:"pt_value,optional"`
	Change       *float64  `parquet:"change,optional"`
	AdChange     *float64  `parquet:"ad_change,optional"`
	PctChange    *float64  `parquet:"pct_change,optional"`
}

func ToPriceRow(r model.PriceRecord) PriceRow {
	return PriceRow{
		Code:         r.Code,
		Date:         model.DateOf(r.Date),
		Time:         r.Time.Ptr(),
		Floor:        r.Floor.Ptr(),
		Type:         r.Type.Ptr(),
		BasicPrice:   r.BasicPrice.Ptr(),
		CeilingPrice: r.CeilingPrice.Ptr(),
		FloorPrice:   r.FloorPrice.Ptr(),
		Open:         r.Open.Ptr(),
		High:         r.High.Ptr(),
		Low:          r.Low.Ptr(),
		Close:        r.Close.Ptr(),
		Average:      r.Average.Ptr(),
		AdOpen:       r.AdOpen.Ptr(),
		AdHigh:       r.AdHigh.Ptr(),
		AdLow:        r.AdLow.Ptr(),
		AdClose:      r.AdClose.Ptr(),
		AdAverage:    r.AdAverage.Ptr(),
		NmVolume:     r.NmVolume.Ptr(),
		NmValue:      r.NmValue.Ptr(),
		PtVolume:     r.PtVolume.Ptr(),
		PtValue:      r.PtValue.Ptr(),
		Change:       r.Change.Ptr(),
		AdChange:     r.AdChange.Ptr(),
		PctChange:    r.PctChange.Ptr(),
	}
}

const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// ExportPrices 把记录写到 dir/<name>.<format>, 返回文件路径
func ExportPrices(dir, name, format string, records []model.PriceRecord) (string, error) {
	if err := CheckOutputDir(dir); err != nil {
		return "", err
	}

	switch format {
	case FormatParquet:
		path := filepath.Join(dir, name+".parquet")
		pw, err := NewParquetWriter[PriceRow](path)
		if err != nil {
			return "", err
		}
		rows := make([]PriceRow, len(records))
		for i, r := range records {
			rows[i] = ToPriceRow(r)
		}
		if err := pw.Write(rows); err != nil {
			pw.Close()
			return "", err
		}
		return path, pw.Close()

	case FormatCSV:
		path := filepath.Join(dir, name+".csv")
		cw, err := NewCSVWriter[model.PriceRecord](path)
		if err != nil {
			return "", err
		}
		if err := cw.Write(records); err != nil {
			cw.Close()
			return "", err
		}
		return path, cw.Close()

	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
}
