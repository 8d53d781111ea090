// Package postgres provides a Postgres-backed sink implementation.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drunksu/crawler/internal/pipeline"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for product rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Sink upserts product records into a Postgres table keyed by fingerprint.
type Sink struct {
	pool   execCloser
	table  string
	hasher pipeline.Hasher
	clock  pipeline.Clock
}

// New creates a Postgres-backed Sink using the provided config.
func New(ctx context.Context, cfg Config, hasher pipeline.Hasher, clock pipeline.Clock) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "suning_products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Sink{
		pool:   pool,
		table:  table,
		hasher: hasher,
		clock:  clock,
	}, nil
}

// NewWithPool constructs a Sink from an existing pool (primarily for
// testing).
func NewWithPool(pool execCloser, table string, hasher pipeline.Hasher, clock pipeline.Clock) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "suning_products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Sink{pool: pool, table: table, hasher: hasher, clock: clock}, nil
}

// EnsureSchema creates the product table if it does not exist. Called once
// at startup; per-call storage never touches the schema.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	row_key   TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	price     TEXT NOT NULL,
	stored_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Store upserts the record under its fingerprint key and returns that key.
func (s *Sink) Store(ctx context.Context, record pipeline.ProductRecord) (string, error) {
	key, err := pipeline.StorageKey(s.hasher, record)
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (row_key, title, price, stored_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (row_key) DO UPDATE SET
	title = EXCLUDED.title,
	price = EXCLUDED.price,
	stored_at = EXCLUDED.stored_at`, s.table)

	if _, err := s.pool.Exec(ctx, query, key, record.Title, record.Price, s.clock.Now()); err != nil {
		return "", fmt.Errorf("upsert record: %w", err)
	}
	return key, nil
}

// Close releases the underlying pool resources.
func (s *Sink) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
