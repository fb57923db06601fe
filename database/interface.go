package database

import (
	"context"
	"time"

	"github.com/jing2uo/finfo2db/model"
)

type DataRepository interface {
	Connect(ctx context.Context) error
	Close() error

	InitSchema(ctx context.Context) error
	TableExists(ctx context.Context, tableName string) (bool, error)

	// GetLatestDate 表为空时返回零值
	GetLatestDate(ctx context.Context, tableName string, dateCol string) (time.Time, error)
	GetLatestDatesByCode(ctx context.Context) (map[string]time.Time, error)

	// AppendPrices 返回实际写入的行数, 主键冲突的行不计入
	AppendPrices(ctx context.Context, records []model.PriceRecord) (int, error)
	QueryPrices(ctx context.Context, code string, startDate, endDate *time.Time) ([]model.PriceRecord, error)
	QueryLatestPrices(ctx context.Context) ([]model.LatestPrice, error)
	CountRows(ctx context.Context, tableName string) (int64, error)

	InsertSyncLog(ctx context.Context, entry model.SyncLog) error
	RecentSyncLogs(ctx context.Context, limit int) ([]model.SyncLog, error)
}
