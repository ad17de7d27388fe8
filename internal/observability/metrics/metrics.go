// Package metrics exposes search and indexing counters on a private
// Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/docsearch/pkg/types"
)

const namespace = "docsearch"

// Metrics records engine activity. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	searchesTotal     *prometheus.CounterVec
	searchDuration    *prometheus.HistogramVec
	searchResults     prometheus.Histogram
	indexedTotal      prometheus.Counter
	mutationsTotal    *prometheus.CounterVec
	documents         prometheus.Gauge
	snapshotsTotal    *prometheus.CounterVec
	indexingDuration  prometheus.Histogram
	indexingFailTotal prometheus.Counter
}

// New creates a Metrics with its own registry
func New(service string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "search",
			Name:        "requests_total",
			Help:        "Total completed searches by method and cache outcome.",
			ConstLabels: constLabels,
		},
		[]string{"method", "cache_hit"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "search",
			Name:        "duration_seconds",
			Help:        "Search duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method"},
	)
	searchResults := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "search",
			Name:        "results",
			Help:        "Distribution of results returned per search.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 50},
			ConstLabels: constLabels,
		},
	)
	indexedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "index",
			Name:        "documents_added_total",
			Help:        "Total documents inserted into the index.",
			ConstLabels: constLabels,
		},
	)
	mutationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "index",
			Name:        "mutations_total",
			Help:        "Total index mutations by operation and status.",
			ConstLabels: constLabels,
		},
		[]string{"operation", "status"},
	)
	documents := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "index",
			Name:        "documents",
			Help:        "Documents currently indexed.",
			ConstLabels: constLabels,
		},
	)
	snapshotsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "snapshot",
			Name:        "operations_total",
			Help:        "Total snapshot saves and restores by status.",
			ConstLabels: constLabels,
		},
		[]string{"operation", "status"},
	)
	indexingDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "indexer",
			Name:        "run_duration_seconds",
			Help:        "Indexing run duration in seconds.",
			Buckets:     prometheus.ExponentialBuckets(0.01, 4, 8),
			ConstLabels: constLabels,
		},
	)
	indexingFailTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "indexer",
			Name:        "documents_failed_total",
			Help:        "Total documents that failed to embed.",
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(
		searchesTotal,
		searchDuration,
		searchResults,
		indexedTotal,
		mutationsTotal,
		documents,
		snapshotsTotal,
		indexingDuration,
		indexingFailTotal,
	)

	return &Metrics{
		registry:          registry,
		searchesTotal:     searchesTotal,
		searchDuration:    searchDuration,
		searchResults:     searchResults,
		indexedTotal:      indexedTotal,
		mutationsTotal:    mutationsTotal,
		documents:         documents,
		snapshotsTotal:    snapshotsTotal,
		indexingDuration:  indexingDuration,
		indexingFailTotal: indexingFailTotal,
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one completed search
func (m *Metrics) ObserveSearch(method types.SearchMethod, cacheHit bool, results int, d time.Duration) {
	if m == nil {
		return
	}
	m.searchesTotal.WithLabelValues(string(method), strconv.FormatBool(cacheHit)).Inc()
	m.searchDuration.WithLabelValues(string(method)).Observe(d.Seconds())
	m.searchResults.Observe(float64(results))
}

// RecordMutation records an index mutation and the resulting corpus size
func (m *Metrics) RecordMutation(operation string, added int, documents int, err error) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(operation, status(err)).Inc()
	if err != nil {
		return
	}
	if added > 0 {
		m.indexedTotal.Add(float64(added))
	}
	m.documents.Set(float64(documents))
}

// RecordSnapshot records a snapshot save or restore
func (m *Metrics) RecordSnapshot(operation string, err error) {
	if m == nil {
		return
	}
	m.snapshotsTotal.WithLabelValues(operation, status(err)).Inc()
}

// RecordIndexingRun records one indexer run
func (m *Metrics) RecordIndexingRun(d time.Duration, failed int) {
	if m == nil {
		return
	}
	m.indexingDuration.Observe(d.Seconds())
	if failed > 0 {
		m.indexingFailTotal.Add(float64(failed))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
