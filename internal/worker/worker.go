// Package worker implements the crawl pipeline execution loop.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/drunksu/crawler/internal/metrics"
	"github.com/drunksu/crawler/internal/pipeline"
)

// Worker consumes queued targets and drives fetch, extract and store for
// each one. Every failure along the way is contained within the iteration:
// a bad target never terminates a worker or the pool.
type Worker struct {
	queue     pipeline.Queue
	fetcher   pipeline.Fetcher
	extractor pipeline.Extractor
	sink      pipeline.Sink
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue pipeline.Queue,
	fetcher pipeline.Fetcher,
	extractor pipeline.Extractor,
	sink pipeline.Sink,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     queue,
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		logger:    logger,
	}
}

// Run blocks, consuming targets until the context finishes. Cancellation is
// observed between iterations; the current target is always completed.
func (w *Worker) Run(ctx context.Context) {
	for {
		target, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.process(ctx, target)
	}
}

func (w *Worker) process(ctx context.Context, target pipeline.Target) {
	// Drain accounting must stay correct on every path, including panics
	// escaping a fetcher or extractor implementation.
	defer w.queue.MarkDone()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("target processing panicked",
				zap.String("url", string(target)),
				zap.Any("panic", r),
			)
		}
	}()

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	w.logger.Info("crawling target", zap.String("url", string(target)))

	doc := w.fetcher.Fetch(ctx, target)
	metrics.ObservePage(string(target), string(doc.Status), doc.Duration)

	switch doc.Status {
	case pipeline.DocumentTransportError:
		w.logger.Error("fetch failed",
			zap.String("url", string(target)),
			zap.Int("status_code", doc.StatusCode),
			zap.String("reason", doc.Reason),
		)
		return
	case pipeline.DocumentEmpty:
		w.logger.Warn("fetched empty document", zap.String("url", string(target)))
		return
	}

	outcome := w.extractor.Extract(doc)
	metrics.ObserveOutcome(string(outcome.Status))

	switch outcome.Status {
	case pipeline.OutcomeSuccess:
		w.storeRecords(ctx, target, outcome.Records)
	case pipeline.OutcomeEmpty:
		w.logger.Warn("no product records on page", zap.String("url", string(target)))
	case pipeline.OutcomeError:
		w.logger.Error("extract failed",
			zap.String("url", string(target)),
			zap.String("reason", outcome.Reason),
		)
	}
}

func (w *Worker) storeRecords(ctx context.Context, target pipeline.Target, records []pipeline.ProductRecord) {
	for _, record := range records {
		key, err := w.sink.Store(ctx, record)
		if err != nil {
			metrics.ObserveStoreFailure()
			w.logger.Error("store record failed",
				zap.String("url", string(target)),
				zap.String("title", record.Title),
				zap.Error(err),
			)
			continue
		}
		metrics.ObserveRecordStored()
		w.logger.Info("record stored",
			zap.String("url", string(target)),
			zap.String("key", key),
			zap.String("title", record.Title),
			zap.String("price", record.Price),
		)
	}
}
