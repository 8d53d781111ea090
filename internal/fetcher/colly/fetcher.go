// Package collyfetcher implements Fetcher using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/drunksu/crawler/internal/pipeline"
	"github.com/drunksu/crawler/internal/proxy"
)

// Config controls collector behavior and the fixed outbound header set.
type Config struct {
	UserAgent      string
	Referer        string
	Accept         string
	AcceptLanguage string
	Timeout        time.Duration
}

// Fetcher implements pipeline.Fetcher using the Colly collector. One pooled
// transport is shared by all workers for connection reuse; the proxy pool,
// when non-empty, supplies a per-request upstream.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config, proxies *proxy.Pool) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Re-crawling the same listing page must refresh its rows, so revisits
	// are allowed; storage writes are idempotent.
	c.AllowURLRevisit = true

	transport := newHTTPTransport(proxies)
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET. Transport failures, timeouts and non-2xx
// statuses are reported through the document status tag; Fetch never returns
// an error to its caller.
func (f *Fetcher) Fetch(ctx context.Context, target pipeline.Target) pipeline.RawDocument {
	start := time.Now()

	// The collector goroutine owns its document; on cancellation the caller
	// gets a fresh one so an in-flight response cannot race the return value.
	done := make(chan pipeline.RawDocument, 1)
	go func() {
		doc := pipeline.RawDocument{
			Target: target,
			Status: pipeline.DocumentTransportError,
		}
		collector := f.buildCollector(&doc)
		if err := collector.Visit(string(target)); err != nil && doc.Reason == "" {
			doc.Reason = err.Error()
		}
		done <- doc
	}()

	select {
	case <-ctx.Done():
		return pipeline.RawDocument{
			Target:   target,
			Status:   pipeline.DocumentTransportError,
			Reason:   "fetch canceled: " + ctx.Err().Error(),
			Duration: time.Since(start),
		}
	case doc := <-done:
		doc.Duration = time.Since(start)
		return doc
	}
}

func (f *Fetcher) buildCollector(doc *pipeline.RawDocument) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	collector.OnRequest(func(r *colly.Request) {
		f.applyHeaders(r)
	})

	collector.OnResponse(func(r *colly.Response) {
		doc.StatusCode = r.StatusCode
		doc.Body = append([]byte(nil), r.Body...)
		if len(bytes.TrimSpace(r.Body)) == 0 {
			doc.Status = pipeline.DocumentEmpty
			return
		}
		doc.Status = pipeline.DocumentOK
	})

	collector.OnError(func(r *colly.Response, err error) {
		doc.Status = pipeline.DocumentTransportError
		doc.Body = nil
		if r != nil {
			doc.StatusCode = r.StatusCode
		}
		if err != nil {
			doc.Reason = err.Error()
		}
	})

	return collector
}

// applyHeaders sets the fixed header set carried on every request: client
// identity, referrer, locale and fetch metadata.
func (f *Fetcher) applyHeaders(r *colly.Request) {
	if f.cfg.Referer != "" {
		r.Headers.Set("Referer", f.cfg.Referer)
	}
	if f.cfg.Accept != "" {
		r.Headers.Set("Accept", f.cfg.Accept)
	}
	if f.cfg.AcceptLanguage != "" {
		r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
	}
	r.Headers.Set("Sec-Fetch-Dest", "document")
	r.Headers.Set("Sec-Fetch-Mode", "navigate")
	r.Headers.Set("Sec-Fetch-Site", "same-origin")
}

func newHTTPTransport(proxies *proxy.Pool) *http.Transport {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	if proxies != nil && proxies.Size() > 0 {
		t.Proxy = func(*http.Request) (*url.URL, error) {
			endpoint, ok := proxies.Select()
			if !ok {
				return nil, nil // direct connection
			}
			u, err := url.Parse(endpoint)
			if err != nil {
				return nil, nil
			}
			return u, nil
		}
	}
	return t
}
