// Package dispatcher manages worker fan-out over the work queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/drunksu/crawler/internal/pipeline"
	"github.com/drunksu/crawler/internal/worker"
)

// Dispatcher fans out queued targets to a fixed pool of workers.
type Dispatcher struct {
	queue   pipeline.Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue pipeline.Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until the context finishes and every
// worker has returned.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, target pipeline.Target) error {
	if err := d.queue.Enqueue(ctx, target); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// Join blocks until every enqueued target has been marked done.
func (d *Dispatcher) Join(ctx context.Context) error {
	if err := d.queue.Join(ctx); err != nil {
		return fmt.Errorf("queue join: %w", err)
	}
	return nil
}
