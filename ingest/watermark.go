package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jing2uo/finfo2db/model"
)

// Store 同步流程用到的存储能力, database.DataRepository 均已实现
type Store interface {
	InitSchema(ctx context.Context) error
	TableExists(ctx context.Context, tableName string) (bool, error)
	GetLatestDate(ctx context.Context, tableName string, dateCol string) (time.Time, error)
	GetLatestDatesByCode(ctx context.Context) (map[string]time.Time, error)
	AppendPrices(ctx context.Context, records []model.PriceRecord) (int, error)
}

type Mode string

const (
	// ModeGlobal 所有股票共用一个水位: MAX(date)
	ModeGlobal Mode = "global"
	// ModeSymbol 每只股票各自的水位, 可补齐落后股票的数据
	ModeSymbol Mode = "symbol"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeGlobal:
		return ModeGlobal, nil
	case ModeSymbol:
		return ModeSymbol, nil
	default:
		return "", fmt.Errorf("unknown watermark mode %q", s)
	}
}

// Watermark 存储中已有数据的最大日期, Valid 为 false 表示表不存在或为空
type Watermark struct {
	Date     time.Time
	Valid    bool
	BySymbol map[string]time.Time
}

func (w Watermark) String() string {
	if !w.Valid {
		return "none"
	}
	return w.Date.Format("2006-01-02")
}

// ReadWatermark 每次运行都重新计算, 不做缓存
func ReadWatermark(ctx context.Context, store Store, mode Mode) (Watermark, error) {
	table := model.TablePrices.TableName

	exists, err := store.TableExists(ctx, table)
	if err != nil {
		return Watermark{}, &model.StorageError{Op: "read watermark", Err: err}
	}
	if !exists {
		return Watermark{}, nil
	}

	latest, err := store.GetLatestDate(ctx, table, "date")
	if err != nil {
		return Watermark{}, &model.StorageError{Op: "read watermark", Err: err}
	}
	if latest.IsZero() {
		return Watermark{}, nil
	}

	wm := Watermark{Date: model.DateOf(latest), Valid: true}

	if mode == ModeSymbol {
		bySymbol, err := store.GetLatestDatesByCode(ctx)
		if err != nil {
			return Watermark{}, &model.StorageError{Op: "read watermark", Err: err}
		}
		wm.BySymbol = bySymbol
	}

	return wm, nil
}
