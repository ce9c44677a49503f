// Package postgres implements the session, user and persona stores on
// PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds connection pool settings.
type Config struct {
	DSN         string
	MaxConns    int32
	MinConns    int32
	MaxLifetime time.Duration
}

// DB wraps the connection pool shared by the stores in this package.
type DB struct {
	pool *pgxpool.Pool
}

// Open connects, pings and runs pending migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = 30 * time.Minute
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &DB{pool: pool}, nil
}

// Ping checks database connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Sessions returns the practice session store.
func (db *DB) Sessions() *SessionStore {
	return &SessionStore{pool: db.pool}
}

// Users returns the identity store.
func (db *DB) Users() *UserStore {
	return &UserStore{pool: db.pool}
}

// Personas returns the persona store.
func (db *DB) Personas() *PersonaStore {
	return &PersonaStore{pool: db.pool}
}
