// Package store persists the §3 entities to Postgres via pgx/v5, the way
// the rest of the pack wires a ledger store: a thin Store wrapping a
// *pgxpool.Pool, one method per read/write operation, ON CONFLICT upserts
// for idempotent replay (§4.3, §8).
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0xintuition/ethmultivault-indexer/internal/config"
)

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("store: not found")

// Store wraps the connection pool every consumer writes through.
type Store struct {
	db     *pgxpool.Pool
	schema string
}

// New opens a pool sized per cfg.Postgres (minimum/maximum pool connections,
// §6 "Database connection parameters") against the configured schema.
func New(ctx context.Context, cfg config.Postgres) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	minConns := cfg.MinConns
	if minConns <= 0 {
		minConns = 5
	}
	poolCfg.MinConns = minConns
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	poolCfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return &Store{db: pool, schema: schema}, nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.db.Close()
}

// Pool exposes the underlying pool for callers (e.g. the admin HTTP surface)
// that need a direct health check.
func (s *Store) Pool() *pgxpool.Pool {
	return s.db
}

func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
