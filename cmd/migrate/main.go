package main

import (
	"context"
	"log"
	"time"

	"customs-calc/internal/repository"
	"customs-calc/pkg/config"
	"customs-calc/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, closeStore, err := repository.Open(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer closeStore()

	if store == nil {
		appLogger.Info("Memory driver selected, nothing to migrate")
		return
	}

	appLogger.Info("Creating schema", zap.String("driver", cfg.Database.Driver))
	if err := store.EnsureSchema(ctx); err != nil {
		appLogger.Fatal("Failed to create schema", zap.Error(err))
	}
	appLogger.Info("Schema is up to date")
}
