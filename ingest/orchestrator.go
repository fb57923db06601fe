package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"go.uber.org/zap"

	"github.com/jing2uo/finfo2db/model"
)

type Stage string

const (
	StageFetching         Stage = "fetching"
	StageReadingWatermark Stage = "reading_watermark"
	StageFiltering        Stage = "filtering"
	StageWriting          Stage = "writing"
	StageDone             Stage = "done"
)

// StageError 记录失败发生在哪个阶段, Err 保留原始错误类型
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("sync failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type Fetcher interface {
	FetchPrices(ctx context.Context, symbols []string, from, to time.Time) ([]model.PriceRecord, error)
}

type RunOptions struct {
	Symbols  []string
	FromDate time.Time
	ToDate   time.Time
	Mode     Mode
}

func (o RunOptions) validate() error {
	if len(o.Symbols) == 0 {
		return errors.New("no symbols to sync")
	}
	if o.ToDate.Before(o.FromDate) {
		return fmt.Errorf("to date %s is before from date %s",
			o.ToDate.Format("2006-01-02"), o.FromDate.Format("2006-01-02"))
	}
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	return nil
}

type Outcome struct {
	RunID      uuid.UUID
	Stage      Stage
	Options    RunOptions
	Fetched    int
	Accepted   int
	Written    int
	Watermark  Watermark
	Records    []model.PriceRecord
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

func (o *Outcome) Failed() bool { return o.Err != nil }

// SyncLog 转成审计表的一行
func (o *Outcome) SyncLog() model.SyncLog {
	entry := model.SyncLog{
		RunID:      o.RunID.String(),
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
		Stage:      string(o.Stage),
		Status:     "completed",
		FromDate:   model.DateOf(o.Options.FromDate),
		ToDate:     model.DateOf(o.Options.ToDate),
		Fetched:    int64(o.Fetched),
		Accepted:   int64(o.Accepted),
		Written:    int64(o.Written),
	}
	if o.Watermark.Valid {
		entry.Watermark = null.TimeFrom(o.Watermark.Date)
	}
	if o.Err != nil {
		entry.Status = "failed"
		entry.Error = null.StringFrom(o.Err.Error())
	}
	return entry
}

type Orchestrator struct {
	fetcher Fetcher
	store   Store
	writer  *Writer
	logger  *zap.Logger
	now     func() time.Time
}

func NewOrchestrator(fetcher Fetcher, store Store, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher: fetcher,
		store:   store,
		writer:  NewWriter(store, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Run 依次执行 fetching → reading_watermark → filtering → writing
// 任一阶段失败即终止, 返回的 Outcome 总是非空, 其 Err 与返回的 error 相同
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Outcome, error) {
	out := &Outcome{
		RunID:     uuid.New(),
		Stage:     StageFetching,
		Options:   opts,
		StartedAt: o.now(),
	}
	log := o.logger.With(zap.String("run_id", out.RunID.String()))

	fail := func(stage Stage, err error) (*Outcome, error) {
		out.Stage = stage
		out.Err = &StageError{Stage: stage, Err: err}
		out.FinishedAt = o.now()
		log.Error("sync failed", zap.String("stage", string(stage)), zap.Error(err))
		return out, out.Err
	}

	if err := opts.validate(); err != nil {
		return fail(StageFetching, err)
	}
	mode, _ := ParseMode(string(opts.Mode))

	log.Info("fetching prices",
		zap.Strings("symbols", opts.Symbols),
		zap.Time("from", opts.FromDate),
		zap.Time("to", opts.ToDate))

	records, err := o.fetcher.FetchPrices(ctx, opts.Symbols, opts.FromDate, opts.ToDate)
	if err != nil {
		return fail(StageFetching, err)
	}
	out.Fetched = len(records)

	if err := ctx.Err(); err != nil {
		return fail(StageReadingWatermark, err)
	}
	out.Stage = StageReadingWatermark
	wm, err := ReadWatermark(ctx, o.store, mode)
	if err != nil {
		return fail(StageReadingWatermark, err)
	}
	out.Watermark = wm
	log.Info("read watermark", zap.Stringer("watermark", wm), zap.String("mode", string(mode)))

	out.Stage = StageFiltering
	accepted := apply(records, wm, mode)
	out.Accepted = len(accepted)
	out.Records = accepted

	if err := ctx.Err(); err != nil {
		return fail(StageWriting, err)
	}
	out.Stage = StageWriting
	if err := o.writer.EnsureSchema(ctx); err != nil {
		return fail(StageWriting, err)
	}
	written, err := o.writer.AppendAll(ctx, accepted)
	if err != nil {
		return fail(StageWriting, err)
	}
	out.Written = written

	out.Stage = StageDone
	out.FinishedAt = o.now()
	log.Info("sync finished",
		zap.Int("fetched", out.Fetched),
		zap.Int("accepted", out.Accepted),
		zap.Int("written", out.Written),
		zap.Duration("elapsed", out.FinishedAt.Sub(out.StartedAt)))

	return out, nil
}
