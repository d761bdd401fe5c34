// Package db opens the shared PostgreSQL pool.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// TableOwner is any store that can create its own tables.
type TableOwner interface {
	EnsureTable(ctx context.Context) error
}

// EnsureTables creates tables in the given order. Stores with foreign keys
// must come after the stores they reference.
func EnsureTables(ctx context.Context, owners ...TableOwner) error {
	for _, o := range owners {
		if err := o.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure %T: %w", o, err)
		}
	}
	return nil
}
