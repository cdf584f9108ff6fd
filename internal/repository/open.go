package repository

import (
	"context"
	"fmt"

	"customs-calc/internal/models"
	"customs-calc/pkg/config"
	"customs-calc/pkg/postgres"
	"customs-calc/pkg/sqlite"

	"go.uber.org/zap"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DurableStore is a calculation store backed by a database.
type DurableStore interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, c *models.Calculation) error
	ListRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Calculation, error)
	ListAll(ctx context.Context) ([]*models.Calculation, error)
	Stats(ctx context.Context, q models.StatsQuery) (*models.CalculationStats, error)
}

// Open connects the store selected by cfg.Driver. The memory driver returns
// a nil store; callers then rely on the in-memory mirror alone.
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (DurableStore, func(), error) {
	switch cfg.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewCalculationRepository(pool, logger), pool.Close, nil
	case DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteCalculationRepository(db, logger), func() { _ = db.Close() }, nil
	case DriverMemory:
		return nil, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
