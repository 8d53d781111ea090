// Package redissink persists product records into Redis hash rows.
package redissink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/drunksu/crawler/internal/pipeline"
)

// Config controls the Redis connection and row layout.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Table        string
	ColumnFamily string
}

// Sink implements pipeline.Sink on Redis. Each record becomes one hash at
// `<table>:<fingerprint>` with `<family>:title` and `<family>:price` fields,
// so re-storing the same logical record overwrites the same row.
type Sink struct {
	client *redis.Client
	table  string
	family string
	hasher pipeline.Hasher
}

// New connects to Redis and verifies the connection before returning, so a
// misconfigured backend fails at startup rather than on the first store.
func New(ctx context.Context, cfg Config, hasher pipeline.Hasher) (*Sink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewWithClient(client, cfg.Table, cfg.ColumnFamily, hasher), nil
}

// NewWithClient constructs a Sink from an existing client (primarily for
// testing).
func NewWithClient(client *redis.Client, table, family string, hasher pipeline.Hasher) *Sink {
	if table == "" {
		table = "suning_products"
	}
	if family == "" {
		family = "info"
	}
	return &Sink{
		client: client,
		table:  table,
		family: family,
		hasher: hasher,
	}
}

// Store upserts the record under its fingerprint key and returns that key.
func (s *Sink) Store(ctx context.Context, record pipeline.ProductRecord) (string, error) {
	key, err := pipeline.StorageKey(s.hasher, record)
	if err != nil {
		return "", err
	}
	row := s.table + ":" + key
	err = s.client.HSet(ctx, row,
		s.family+":title", record.Title,
		s.family+":price", record.Price,
	).Err()
	if err != nil {
		return "", fmt.Errorf("upsert record: %w", err)
	}
	return key, nil
}

// Close releases the underlying client.
func (s *Sink) Close() error {
	return s.client.Close()
}
