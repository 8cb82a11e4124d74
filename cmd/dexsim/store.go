package main

import (
	"context"
	"fmt"

	"swapRouter/internal/config"
	"swapRouter/internal/model"
	"swapRouter/internal/storage"
	"swapRouter/internal/storage/postgres"
	"swapRouter/internal/storage/sqlite"
)

// stores bundles the persistence selected by a StoreConfig. pools is nil
// for the file backend.
type stores struct {
	state storage.StateStore
	pools storage.PoolStore
	close func()
}

type poolLister interface {
	Pools(ctx context.Context) ([]model.PoolSnapshot, error)
}

func openStores(ctx context.Context, cfg config.StoreConfig) (stores, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return stores{
			state: storage.NewFileStateStore(cfg.StateFile, cfg.LockPath),
			close: func() {},
		}, nil
	case config.BackendSqlite:
		db, err := sqlite.Open(cfg.SqlitePath, cfg.LockPath, storage.DefaultStateName)
		if err != nil {
			return stores{}, err
		}
		return stores{state: db, pools: db, close: func() { _ = db.Close() }}, nil
	case config.BackendPostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN, storage.DefaultStateName)
		if err != nil {
			return stores{}, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return stores{}, err
		}
		return stores{state: pg, pools: pg, close: pg.Close}, nil
	default:
		return stores{}, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
