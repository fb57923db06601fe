package cmd

import (
	"context"
	"fmt"

	"github.com/jing2uo/finfo2db/config"
)

// Init 建表与视图, 不拉取数据
func Init(ctx context.Context, cfg config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	fmt.Println("🚀 数据库初始化成功")
	return nil
}
