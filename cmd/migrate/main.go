package main

import (
	"context"
	"flag"

	"giftdrive-storefront/internal/config"
	"giftdrive-storefront/internal/db"
	"giftdrive-storefront/internal/logging"
	"giftdrive-storefront/internal/migrate"
	"go.uber.org/zap"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	flag.Parse()

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if *down {
		if err := migrate.Down(ctx, pool); err != nil {
			logger.Fatal("roll back migration", zap.Error(err))
		}
		logger.Info("last migration rolled back")
		return
	}

	if err := migrate.Apply(ctx, pool, logger); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}
}
