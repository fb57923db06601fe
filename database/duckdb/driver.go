package duckdb

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jing2uo/finfo2db/model"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
)

type DuckDBDriver struct {
	dsn       string
	batchSize int
	db        *sqlx.DB
	viewImpls map[model.ViewID]func(ctx context.Context) error
}

// NewDriver DSN 为空时使用内存库
func NewDriver(cfg model.DBConfig) *DuckDBDriver {
	return &DuckDBDriver{
		dsn:       cfg.DSN,
		batchSize: cfg.ChunkSize(),
		viewImpls: make(map[model.ViewID]func(ctx context.Context) error),
	}
}

func (d *DuckDBDriver) Connect(ctx context.Context) error {
	db, err := sqlx.Open("duckdb", d.dsn)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)
	db.Mapper = reflectx.NewMapperFunc("col", strings.ToLower)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("duckdb ping failed: %w", err)
	}

	d.db = db
	return nil
}

func (d *DuckDBDriver) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *DuckDBDriver) InitSchema(ctx context.Context) error {
	for _, t := range model.AllTables() {
		if err := d.createTableInternal(ctx, t); err != nil {
			return err
		}
	}

	d.registerViews()
	for _, viewID := range model.AllViews() {
		implFunc, exists := d.viewImpls[viewID]
		if !exists {
			return fmt.Errorf("[DuckDB] Missing implementation for required view: %s", viewID)
		}
		if err := implFunc(ctx); err != nil {
			return fmt.Errorf("failed to create view %s: %w", viewID, err)
		}
	}

	return nil
}

func (d *DuckDBDriver) TableExists(ctx context.Context, tableName string) (bool, error) {
	var count int
	err := d.db.GetContext(ctx, &count,
		`SELECT count(*) FROM information_schema.tables WHERE table_name = ?`, tableName)
	if err != nil {
		return false, fmt.Errorf("failed to check existence of table %s: %w", tableName, err)
	}
	return count > 0, nil
}
