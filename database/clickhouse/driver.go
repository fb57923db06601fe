package clickhouse

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jing2uo/finfo2db/model"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
)

type ClickHouseDriver struct {
	dsn       string
	database  string
	batchSize int
	db        *sqlx.DB

	viewImpls map[model.ViewID]func(ctx context.Context) error
}

func NewClickHouseDriver(u *url.URL, batchSize int) (*ClickHouseDriver, error) {
	q := u.Query()

	// 1. Host 必填
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("clickhouse host is required")
	}

	// 2. TCP 端口 (默认 9000)
	tcpPort := u.Port()
	if tcpPort == "" {
		tcpPort = "9000"
	}

	// 3. 处理 Database (默认 "default")
	database := strings.TrimPrefix(u.Path, "/")
	if database == "" {
		database = "default"
	}

	// 4. 处理 User (默认 "default")
	user := u.User.Username()
	if user == "" {
		user = "default"
	}

	pass, passSet := u.User.Password()

	// 旧版配置里的 http_port 已无用
	q.Del("http_port")

	dsn := &url.URL{
		Scheme:   "clickhouse",
		Host:     fmt.Sprintf("%s:%s", host, tcpPort),
		Path:     "/" + database,
		RawQuery: q.Encode(),
	}
	// 根据是否显式设置了密码（包括空密码）来重建 UserInfo
	if passSet {
		dsn.User = url.UserPassword(user, pass)
	} else {
		dsn.User = url.User(user)
	}

	if batchSize <= 0 {
		batchSize = model.DefaultBatchSize
	}

	return &ClickHouseDriver{
		dsn:       dsn.String(),
		database:  database,
		batchSize: batchSize,
		viewImpls: make(map[model.ViewID]func(ctx context.Context) error),
	}, nil
}

func (d *ClickHouseDriver) Connect(ctx context.Context) error {
	db, err := sqlx.Open("clickhouse", d.dsn)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)
	db.Mapper = reflectx.NewMapperFunc("col", strings.ToLower)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("clickhouse ping failed: %w", err)
	}

	d.db = db
	return nil
}

func (d *ClickHouseDriver) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *ClickHouseDriver) InitSchema(ctx context.Context) error {
	for _, t := range model.AllTables() {
		if err := d.createTableInternal(ctx, t); err != nil {
			return fmt.Errorf("failed to create table %s: %w", t.TableName, err)
		}
	}

	d.registerViews()
	for _, viewID := range model.AllViews() {
		implFunc, exists := d.viewImpls[viewID]
		if !exists {
			return fmt.Errorf("[ClickHouse] Missing implementation for view: %s", viewID)
		}
		if err := implFunc(ctx); err != nil {
			return fmt.Errorf("failed to create view %s: %w", viewID, err)
		}
	}
	return nil
}

func (d *ClickHouseDriver) TableExists(ctx context.Context, tableName string) (bool, error) {
	var count uint64
	err := d.db.GetContext(ctx, &count,
		"SELECT count() FROM system.tables WHERE database = ? AND name = ?", d.database, tableName)
	if err != nil {
		return false, fmt.Errorf("failed to check existence of table %s: %w", tableName, err)
	}
	return count > 0, nil
}
