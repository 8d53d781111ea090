// Package memory provides the bounded in-memory work queue.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/drunksu/crawler/internal/pipeline"
)

// ErrQueueFull is returned by TryEnqueue when the queue is at capacity.
var ErrQueueFull = errors.New("queue full")

// DefaultCapacity bounds pending targets when no capacity is configured.
const DefaultCapacity = 1000

// Queue is a bounded FIFO of pending targets with drain accounting. The
// capacity bound is the pipeline's only backpressure mechanism.
type Queue struct {
	ch chan pipeline.Target

	mu          sync.Mutex
	cond        *sync.Cond
	outstanding int

	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		ch: make(chan pipeline.Target, capacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue pushes a target, blocking while the queue is at capacity until
// space frees up or the context ends.
func (q *Queue) Enqueue(ctx context.Context, target pipeline.Target) error {
	q.addOutstanding()
	select {
	case <-ctx.Done():
		q.finishOutstanding()
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- target:
		return nil
	}
}

// TryEnqueue pushes a target without blocking, failing with ErrQueueFull
// when the queue is at capacity.
func (q *Queue) TryEnqueue(target pipeline.Target) error {
	q.addOutstanding()
	select {
	case q.ch <- target:
		return nil
	default:
		q.finishOutstanding()
		return ErrQueueFull
	}
}

// Dequeue pops the next target, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (pipeline.Target, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case target, ok := <-q.ch:
		if !ok {
			return "", errors.New("queue closed")
		}
		return target, nil
	}
}

// MarkDone records that a previously dequeued target has finished
// processing, success or failure. Workers must call it exactly once per
// dequeued target.
func (q *Queue) MarkDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.outstanding <= 0 {
		panic("queue: MarkDone called for more targets than enqueued")
	}
	q.outstanding--
	if q.outstanding == 0 {
		q.cond.Broadcast()
	}
}

// Join blocks until every enqueued target has been marked done or the
// context ends.
func (q *Queue) Join(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		q.mu.Lock()
		for q.outstanding > 0 {
			q.cond.Wait()
		}
		q.mu.Unlock()
		close(drained)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("join canceled: %w", ctx.Err())
	case <-drained:
		return nil
	}
}

// Pending reports the number of targets enqueued but not yet marked done.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding
}

// Len reports the number of targets waiting to be dequeued.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}

func (q *Queue) addOutstanding() {
	q.mu.Lock()
	q.outstanding++
	q.mu.Unlock()
}

func (q *Queue) finishOutstanding() {
	q.mu.Lock()
	q.outstanding--
	if q.outstanding == 0 {
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}
