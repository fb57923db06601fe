package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jing2uo/finfo2db/config"
	"github.com/jing2uo/finfo2db/database"
	"github.com/jing2uo/finfo2db/finfo"
	"github.com/jing2uo/finfo2db/ingest"
	"github.com/jing2uo/finfo2db/lock"
	"github.com/jing2uo/finfo2db/utils"
)

func openDB(ctx context.Context, cfg config.Config) (database.DataRepository, error) {
	db, err := database.NewDB(cfg.DB.URI, database.WithBatchSize(cfg.DB.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newFetcher(cfg config.Config, logger *zap.Logger) *finfo.Client {
	return finfo.NewClient(cfg.API.BaseURL,
		finfo.WithTimeout(cfg.API.Timeout),
		finfo.WithUserAgent(cfg.API.UserAgent),
		finfo.WithPageSize(cfg.API.PageSize),
		finfo.WithMaxPages(cfg.API.MaxPages),
		finfo.WithLogger(logger),
	)
}

// runOptions 每次运行重新计算, daemon 跨天时 to_date 随之前进
func runOptions(cfg config.Config, now time.Time) (ingest.RunOptions, error) {
	symbols, err := utils.NormalizeSymbols(cfg.Sync.Symbols)
	if err != nil {
		return ingest.RunOptions{}, err
	}

	from, to, err := cfg.Window(now)
	if err != nil {
		return ingest.RunOptions{}, err
	}

	mode, err := ingest.ParseMode(cfg.Sync.WatermarkMode)
	if err != nil {
		return ingest.RunOptions{}, err
	}

	return ingest.RunOptions{Symbols: symbols, FromDate: from, ToDate: to, Mode: mode}, nil
}

func newLocker(cfg config.LockConfig) (lock.Locker, error) {
	if cfg.RedisAddr == "" {
		return lock.NopLocker{}, nil
	}
	return lock.NewRedisLocker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Key, cfg.TTL)
}
