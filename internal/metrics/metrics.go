// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerPagesTotal           *prometheus.CounterVec
	crawlerFetchDurationSeconds *prometheus.HistogramVec
	crawlerOutcomesTotal        *prometheus.CounterVec
	crawlerRecordsStoredTotal   prometheus.Counter
	crawlerStoreFailuresTotal   prometheus.Counter
	crawlerActiveWorkers        prometheus.Gauge
	crawlerQueuePending         prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of pages fetched, labeled by site and fetch status.",
			},
			[]string{"site", "status"},
		)

		crawlerFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		crawlerOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_extract_outcomes_total",
				Help: "Total number of extraction outcomes, labeled by tag.",
			},
			[]string{"outcome"},
		)

		crawlerRecordsStoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_records_stored_total",
				Help: "Total number of product records written to the sink.",
			},
		)

		crawlerStoreFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_store_failures_total",
				Help: "Total number of failed sink writes.",
			},
		)

		crawlerActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently processing a target.",
			},
		)

		crawlerQueuePending = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_queue_pending",
				Help: "Number of targets enqueued but not yet marked done.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage records one fetch attempt.
func ObservePage(site, status string, duration time.Duration) {
	sanitized := SanitizeSite(site)
	crawlerPagesTotal.WithLabelValues(sanitized, status).Inc()
	crawlerFetchDurationSeconds.WithLabelValues(sanitized).Observe(duration.Seconds())
}

// ObserveOutcome increments the extraction outcome counter for the given tag.
func ObserveOutcome(outcome string) {
	crawlerOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveRecordStored increments the stored-record counter.
func ObserveRecordStored() {
	crawlerRecordsStoredTotal.Inc()
}

// ObserveStoreFailure increments the failed-write counter.
func ObserveStoreFailure() {
	crawlerStoreFailuresTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	crawlerActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	crawlerActiveWorkers.Dec()
}

// SetQueuePending records the current drain backlog.
func SetQueuePending(n int) {
	crawlerQueuePending.Set(float64(n))
}
