package pipeline

import (
	"context"
	"time"
)

// Fetcher retrieves the raw document for a target. Implementations never
// return an error past this boundary: transport failures surface as a
// RawDocument tagged DocumentTransportError and the worker decides what to
// do next.
type Fetcher interface {
	Fetch(ctx context.Context, target Target) RawDocument
}

// Extractor turns a raw document into zero or more product records.
// Implementations convert parse failures into an OutcomeError rather than
// propagating them.
type Extractor interface {
	Extract(doc RawDocument) Outcome
}

// Sink persists a product record under its deterministic storage key and
// returns the key it wrote. Upsert semantics make Store idempotent for
// records with identical title and price.
type Sink interface {
	Store(ctx context.Context, record ProductRecord) (string, error)
}

// Queue is the bounded FIFO shared by all workers. MarkDone must be called
// once per dequeued target so Join can await a full drain.
type Queue interface {
	Enqueue(ctx context.Context, target Target) error
	TryEnqueue(target Target) error
	Dequeue(ctx context.Context) (Target, error)
	MarkDone()
	Join(ctx context.Context) error
}

// Hasher computes digests for record fingerprinting.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
