// Package headless contains a fetcher that renders JavaScript via a browser.
package headless

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/drunksu/crawler/internal/pipeline"
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	MaxParallel       int
	UserAgent         string
	Referer           string
	AcceptLanguage    string
	NavigationTimeout time.Duration
}

// Fetcher implements pipeline.Fetcher using chromedp and headless Chrome.
// It exists for catalog pages that render listings client-side; the contract
// matches the HTTP fetcher, including the no-error boundary.
type Fetcher struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a headless fetcher backed by chromedp.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch navigates with a headless browser and returns the fully rendered
// DOM. Navigation failures surface as a transport-error document.
func (f *Fetcher) Fetch(ctx context.Context, target pipeline.Target) pipeline.RawDocument {
	doc := pipeline.RawDocument{
		Target: target,
		Status: pipeline.DocumentTransportError,
	}
	start := time.Now()

	if err := f.acquire(ctx); err != nil {
		doc.Reason = err.Error()
		doc.Duration = time.Since(start)
		return doc
	}
	defer f.release()

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavigationTimeout)
	defer cancel()

	status := newStatusCapture()
	chromedp.ListenTarget(taskCtx, status.captureEvent)

	html, err := f.runHeadless(taskCtx, target)
	doc.Duration = time.Since(start)
	doc.StatusCode = status.snapshot()
	if err != nil {
		doc.Reason = err.Error()
		return doc
	}
	if doc.StatusCode >= http.StatusMultipleChoices {
		doc.Reason = fmt.Sprintf("document status %d", doc.StatusCode)
		return doc
	}

	doc.Body = []byte(html)
	if len(bytes.TrimSpace(doc.Body)) == 0 {
		doc.Status = pipeline.DocumentEmpty
		return doc
	}
	doc.Status = pipeline.DocumentOK
	return doc
}

func (f *Fetcher) runHeadless(ctx context.Context, target pipeline.Target) (string, error) {
	var html string
	actions := []chromedp.Action{
		f.networkSetupAction(),
		chromedp.Navigate(string(target)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (f *Fetcher) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		headers := network.Headers{}
		if f.cfg.Referer != "" {
			headers["Referer"] = f.cfg.Referer
		}
		if f.cfg.AcceptLanguage != "" {
			headers["Accept-Language"] = f.cfg.AcceptLanguage
		}
		if len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}

// statusCapture records the HTTP status of the top-level document response.
type statusCapture struct {
	mu     sync.RWMutex
	status int
}

func newStatusCapture() *statusCapture {
	return &statusCapture{}
}

func (s *statusCapture) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	s.mu.Lock()
	s.status = int(resp.Response.Status)
	s.mu.Unlock()
}

func (s *statusCapture) snapshot() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
