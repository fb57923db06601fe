package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jing2uo/finfo2db/config"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

// NewRunner 使用标准 5 段 cron 表达式, 按 loc 时区触发
// 上一次任务未结束时跳过本次触发
func NewRunner(logger *zap.Logger, baseCtx context.Context, loc *time.Location) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	r.logger.Info("cron started")
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

// retryPolicy 固定间隔重试整次运行, retries 为 0 时只执行一次
func retryPolicy(ctx context.Context, cfg config.ScheduleConfig) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.RetryDelay), uint64(cfg.Retries)),
		ctx,
	)
}

func runWithRetry(ctx context.Context, cfg config.ScheduleConfig, logger *zap.Logger, job func(context.Context) error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return job(ctx)
	}, retryPolicy(ctx, cfg), func(err error, next time.Duration) {
		logger.Warn("sync attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", next),
			zap.Error(err))
	})
}

// Daemon 按 schedule.spec 定时执行, ctx 取消后等待当前任务结束再退出
func Daemon(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %s: %w", cfg.Sync.Timezone, err)
	}

	if _, err := runOptions(cfg, time.Now()); err != nil {
		return err
	}

	locker, err := newLocker(cfg.Lock)
	if err != nil {
		return fmt.Errorf("failed to create sync lock: %w", err)
	}
	defer locker.Close()

	runner := NewRunner(logger, ctx, loc)
	_, err = runner.Add(cfg.Schedule.Spec, func(ctx context.Context) {
		err := runWithRetry(ctx, cfg.Schedule, logger, func(ctx context.Context) error {
			return runDaily(ctx, cfg, logger, locker, time.Now())
		})
		if err != nil {
			logger.Error("scheduled sync failed", zap.Error(err))
			fmt.Printf("🛑 定时任务失败: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule spec %q: %w", cfg.Schedule.Spec, err)
	}

	fmt.Printf("⏰ 定时任务已启动: %s (%s)\n", cfg.Schedule.Spec, loc)
	runner.Start()
	<-ctx.Done()
	runner.Stop()
	return nil
}
