package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/jing2uo/finfo2db/model"
)

type Writer struct {
	store  Store
	logger *zap.Logger
}

func NewWriter(store Store, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, logger: logger}
}

// EnsureSchema 建表与视图, 可重复调用
func (w *Writer) EnsureSchema(ctx context.Context) error {
	if err := w.store.InitSchema(ctx); err != nil {
		return &model.StorageError{Op: "ensure schema", Err: err}
	}
	return nil
}

// AppendAll 空输入不发出任何语句
func (w *Writer) AppendAll(ctx context.Context, records []model.PriceRecord) (int, error) {
	if len(records) == 0 {
		w.logger.Info("nothing to insert")
		return 0, nil
	}

	written, err := w.store.AppendPrices(ctx, records)
	if err != nil {
		return 0, &model.StorageError{Op: "append", Err: err}
	}

	w.logger.Info("appended price records",
		zap.Int("records", len(records)),
		zap.Int("written", written))
	return written, nil
}
