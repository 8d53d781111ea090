// Package memory provides an in-memory sink for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/drunksu/crawler/internal/pipeline"
)

// Sink stores product records in a map keyed by fingerprint.
type Sink struct {
	mu     sync.Mutex
	rows   map[string]pipeline.ProductRecord
	hasher pipeline.Hasher
}

// New constructs a Sink.
func New(hasher pipeline.Hasher) *Sink {
	return &Sink{
		rows:   make(map[string]pipeline.ProductRecord),
		hasher: hasher,
	}
}

// Store upserts the record under its fingerprint key and returns that key.
func (s *Sink) Store(_ context.Context, record pipeline.ProductRecord) (string, error) {
	key, err := pipeline.StorageKey(s.hasher, record)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.rows[key] = record
	s.mu.Unlock()
	return key, nil
}

// Get returns the record stored under key, if any.
func (s *Sink) Get(key string) (pipeline.ProductRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.rows[key]
	return record, ok
}

// Len reports the number of stored rows.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
