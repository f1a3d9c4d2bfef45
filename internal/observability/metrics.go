// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Search metrics
	SearchesTotal  *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	ResultsCount   prometheus.Histogram

	// Aggregator metrics
	SourceRecords  *prometheus.CounterVec
	SourceFailures *prometheus.CounterVec

	// Resolver metrics
	Resolutions *prometheus.CounterVec

	// Gateway metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCErrors      *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Watcher metrics
	WatchPrefetches prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_search"
	}

	return &Metrics{
		SearchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total number of search requests by outcome",
		}, []string{"status"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ResultsCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results_count",
			Help:      "Number of records returned per search",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		SourceRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "records_total",
			Help:      "Total candidate records produced per source",
		}, []string{"source"}),
		SourceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "failures_total",
			Help:      "Total aggregator failures per source",
		}, []string{"source"}),
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Total mint resolutions by outcome",
		}, []string{"outcome"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "RPC call duration in seconds by method",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"method"}),
		RPCErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "errors_total",
			Help:      "Total RPC errors by kind",
		}, []string{"kind"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txcache",
			Name:      "hits_total",
			Help:      "Total transaction cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txcache",
			Name:      "misses_total",
			Help:      "Total transaction cache misses",
		}),
		WatchPrefetches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "prefetches_total",
			Help:      "Total transactions prefetched by the live watcher",
		}),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSearch records one completed search request.
func RecordSearch(status string, durationSeconds float64, results int) {
	DefaultMetrics.SearchesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SearchDuration.Observe(durationSeconds)
	DefaultMetrics.ResultsCount.Observe(float64(results))
}

// RecordSourceRecords adds produced record counts for a source.
func RecordSourceRecords(source string, n int) {
	DefaultMetrics.SourceRecords.WithLabelValues(source).Add(float64(n))
}

// RecordSourceFailure increments the failure counter for a source.
func RecordSourceFailure(source string) {
	DefaultMetrics.SourceFailures.WithLabelValues(source).Inc()
}

// RecordResolution records a resolver outcome.
func RecordResolution(outcome string) {
	DefaultMetrics.Resolutions.WithLabelValues(outcome).Inc()
}

// RecordRPCError increments the RPC error counter for an error kind.
func RecordRPCError(kind string) {
	DefaultMetrics.RPCErrors.WithLabelValues(kind).Inc()
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	DefaultMetrics.CacheMisses.Inc()
}

// RecordWatchPrefetch increments the watcher prefetch counter.
func RecordWatchPrefetch() {
	DefaultMetrics.WatchPrefetches.Inc()
}
