package ingest

import (
	"github.com/jing2uo/finfo2db/model"
)

// Filter 只保留日期严格晚于水位的记录, 保持原有顺序
// 水位为空时原样返回
func Filter(records []model.PriceRecord, wm Watermark) []model.PriceRecord {
	if !wm.Valid {
		return records
	}

	kept := make([]model.PriceRecord, 0, len(records))
	for _, rec := range records {
		if model.DateOf(rec.Date).After(wm.Date) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// FilterBySymbol 按每只股票自己的水位过滤, 没有历史数据的股票全部保留
func FilterBySymbol(records []model.PriceRecord, wm Watermark) []model.PriceRecord {
	if !wm.Valid {
		return records
	}

	kept := make([]model.PriceRecord, 0, len(records))
	for _, rec := range records {
		latest, ok := wm.BySymbol[rec.Code]
		if !ok || model.DateOf(rec.Date).After(latest) {
			kept = append(kept, rec)
		}
	}
	return kept
}

func apply(records []model.PriceRecord, wm Watermark, mode Mode) []model.PriceRecord {
	if mode == ModeSymbol {
		return FilterBySymbol(records, wm)
	}
	return Filter(records, wm)
}
