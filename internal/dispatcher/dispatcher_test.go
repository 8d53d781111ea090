package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	goqueryextractor "github.com/drunksu/crawler/internal/extractor/goquery"
	md5hash "github.com/drunksu/crawler/internal/hash/md5"
	"github.com/drunksu/crawler/internal/metrics"
	"github.com/drunksu/crawler/internal/pipeline"
	queuememory "github.com/drunksu/crawler/internal/queue/memory"
	sinkmemory "github.com/drunksu/crawler/internal/sink/memory"
	"github.com/drunksu/crawler/internal/worker"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

// scriptedFetcher serves canned documents keyed by URL.
type scriptedFetcher struct {
	mu   sync.Mutex
	docs map[pipeline.Target]pipeline.RawDocument
}

func (f *scriptedFetcher) Fetch(_ context.Context, target pipeline.Target) pipeline.RawDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[target]; ok {
		doc.Target = target
		return doc
	}
	return pipeline.RawDocument{Target: target, Status: pipeline.DocumentTransportError, Reason: "unreachable"}
}

func TestDispatcherDrainsQueue(t *testing.T) {
	t.Parallel()

	const pages = 12
	listing := `<div class="product-item"><span class="title">Item %d</span><span class="price">¥%d</span></div>`

	docs := make(map[pipeline.Target]pipeline.RawDocument, pages)
	targets := make([]pipeline.Target, 0, pages)
	for i := 0; i < pages; i++ {
		target := pipeline.Target(fmt.Sprintf("https://catalog.example.com/p%d", i))
		targets = append(targets, target)
		docs[target] = pipeline.RawDocument{
			Status: pipeline.DocumentOK,
			Body:   []byte(fmt.Sprintf(listing, i, i)),
		}
	}
	// One target fails at transport; drain accounting must be unaffected.
	docs[targets[3]] = pipeline.RawDocument{Status: pipeline.DocumentTransportError, Reason: "timeout"}

	queue := queuememory.NewQueue(pages)
	hasher := md5hash.New()
	sink := sinkmemory.New(hasher)
	extractor := goqueryextractor.New(goqueryextractor.Config{})
	fetcher := &scriptedFetcher{docs: docs}

	workers := make([]*worker.Worker, 0, 5)
	for i := 0; i < 5; i++ {
		workers = append(workers, worker.New(queue, fetcher, extractor, sink, zap.NewNop()))
	}
	d := New(queue, workers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	for _, target := range targets {
		require.NoError(t, d.Enqueue(ctx, target))
	}

	joinCtx, joinCancel := context.WithTimeout(ctx, 5*time.Second)
	defer joinCancel()
	require.NoError(t, d.Join(joinCtx))

	// 11 pages succeeded with one record each.
	require.Equal(t, pages-1, sink.Len())
}

func TestDispatcherEndToEnd(t *testing.T) {
	t.Parallel()

	const page = `<html><body>
<div class="product-item"><span class="title">Phone X</span><span class="price">¥999</span></div>
<div class="product-item"><span class="title">Case Y</span><span class="price">¥19</span></div>
</body></html>`

	queue := queuememory.NewQueue(4)
	hasher := md5hash.New()
	sink := sinkmemory.New(hasher)
	extractor := goqueryextractor.New(goqueryextractor.Config{})
	fetcher := &scriptedFetcher{docs: map[pipeline.Target]pipeline.RawDocument{
		"https://catalog.example.com/list": {Status: pipeline.DocumentOK, Body: []byte(page)},
	}}

	d := New(queue, []*worker.Worker{worker.New(queue, fetcher, extractor, sink, zap.NewNop())})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.Enqueue(ctx, "https://catalog.example.com/list"))

	joinCtx, joinCancel := context.WithTimeout(ctx, 5*time.Second)
	defer joinCancel()
	require.NoError(t, d.Join(joinCtx))

	require.Equal(t, 2, sink.Len())
	phone, ok := sink.Get("595243abf341b6b0943774e13e4e76b6")
	require.True(t, ok, "expected row keyed by md5 of title+price")
	require.Equal(t, pipeline.ProductRecord{Title: "Phone X", Price: "¥999"}, phone)

	caseRecord, ok := sink.Get("fa598dd5024ca010c6c0e9be3b622ae4")
	require.True(t, ok)
	require.Equal(t, pipeline.ProductRecord{Title: "Case Y", Price: "¥19"}, caseRecord)
}
