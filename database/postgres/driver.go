package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jing2uo/finfo2db/model"
)

type PostgresDriver struct {
	dsn       string
	batchSize int
	pool      *pgxpool.Pool
	viewImpls map[model.ViewID]func(ctx context.Context) error
}

func NewDriver(cfg model.DBConfig) *PostgresDriver {
	return &PostgresDriver{
		dsn:       cfg.DSN,
		batchSize: cfg.ChunkSize(),
		viewImpls: make(map[model.ViewID]func(ctx context.Context) error),
	}
}

func (d *PostgresDriver) Connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(d.dsn)
	if err != nil {
		return fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("postgres ping failed: %w", err)
	}

	d.pool = pool
	return nil
}

func (d *PostgresDriver) Close() error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}

func (d *PostgresDriver) InitSchema(ctx context.Context) error {
	for _, t := range model.AllTables() {
		if err := d.createTableInternal(ctx, t); err != nil {
			return err
		}
	}

	d.registerViews()
	for _, viewID := range model.AllViews() {
		implFunc, exists := d.viewImpls[viewID]
		if !exists {
			return fmt.Errorf("[Postgres] Missing implementation for required view: %s", viewID)
		}
		if err := implFunc(ctx); err != nil {
			return fmt.Errorf("failed to create view %s: %w", viewID, err)
		}
	}
	return nil
}

func (d *PostgresDriver) TableExists(ctx context.Context, tableName string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, tableName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existence of table %s: %w", tableName, err)
	}
	return exists, nil
}
