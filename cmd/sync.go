package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jing2uo/finfo2db/config"
	"github.com/jing2uo/finfo2db/lock"
	"github.com/jing2uo/finfo2db/workflow"
)

// Sync 执行一次每日任务图, 供外部 cron 调用
func Sync(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	locker, err := newLocker(cfg.Lock)
	if err != nil {
		return fmt.Errorf("failed to create sync lock: %w", err)
	}
	defer locker.Close()

	return runDaily(ctx, cfg, logger, locker, time.Now())
}

func runDaily(ctx context.Context, cfg config.Config, logger *zap.Logger, locker lock.Locker, now time.Time) error {
	opts, err := runOptions(cfg, now)
	if err != nil {
		return err
	}

	unlock, err := locker.TryLock(ctx)
	if errors.Is(err, lock.ErrLocked) {
		fmt.Println("🔒 另一个同步任务正在运行, 本次跳过")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release sync lease", zap.Error(err))
		}
	}()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	args := &workflow.TaskArgs{
		Options:      opts,
		Fetcher:      newFetcher(cfg, logger),
		Logger:       logger,
		ExportDir:    cfg.Export.Dir,
		ExportFormat: cfg.Export.Format,
		Today:        opts.ToDate,
	}

	executor := workflow.NewTaskExecutor(db, workflow.DailyTasks())
	results, err := executor.Run(ctx, workflow.DailyTaskNames(), args)
	for _, name := range workflow.DailyTaskNames() {
		if r, ok := results[name]; ok && r.State == workflow.StateFailed && name != workflow.NameSyncPrices {
			fmt.Printf("⚠️ 任务 %s 失败: %v\n", name, r.Error)
		}
	}
	if err != nil {
		return fmt.Errorf("workflow execution failed: %w", err)
	}

	fmt.Println("🚀 今日任务执行成功")
	return nil
}
