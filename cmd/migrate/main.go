package main

import (
	"context"
	"log"

	"punchout-catalog/internal/config"
	"punchout-catalog/internal/db"
	"punchout-catalog/internal/logger"
	"punchout-catalog/internal/migrate"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	defer zlog.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		zlog.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		zlog.Fatal("apply migrations", zap.Error(err))
	}

	zlog.Info("migrations applied")
}
