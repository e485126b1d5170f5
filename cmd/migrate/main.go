// cmd/migrate — 独立迁移入口, 对已配置的数据库执行 migrations/ 下的脚本。
package main

import (
	"context"
	"os"

	"github.com/multi-agent/reasonspace/internal/config"
	"github.com/multi-agent/reasonspace/internal/database"
	"github.com/multi-agent/reasonspace/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		logger.Error("database init failed", logger.FieldError, err)
		os.Exit(1)
	}
	defer pool.Close()

	dir := "./migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if err := database.Migrate(ctx, pool, dir); err != nil {
		logger.Error("migration failed", logger.FieldError, err)
		os.Exit(1)
	}
	logger.Info("migration complete", logger.FieldPath, dir)
}
