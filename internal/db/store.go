package db

import (
	"context"
	"fmt"

	"tapminer/internal/config"
	"tapminer/internal/logger"
	"tapminer/internal/migrations"
	"tapminer/internal/repository"
	"tapminer/internal/repository/sqlite"
	"tapminer/internal/store"
)

// OpenStore opens the Account Store selected by cfg.StoreDriver. With
// migrate set, pending Postgres migrations are applied first; the SQLite
// schema is always created on open.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite store opened", "path", cfg.SQLitePath)
		return st, nil

	case config.DriverPostgres:
		pool, err := Open(ctx, cfg.DatabaseURL, PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, err
		}
		if migrate {
			applied, err := migrations.Apply(ctx, pool)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			if len(applied) > 0 {
				logger.Info("migrations applied", "files", applied)
			}
		}
		logger.Info("database connected", "max_conns", pool.Config().MaxConns)
		return repository.NewStore(pool), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
