// Package metrics declares the Prometheus collectors for profrank.
// Collectors register with the default registry on import and are served
// by the HTTP API at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "profrank"

var (
	// Ingestion Metrics
	IngestionCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_cycles_total",
			Help:      "Ingestion cycles by result",
		},
		[]string{"result"}, // "succeeded", "failed"
	)

	IngestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      "Duration of ingestion cycles in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	IngestionPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_pages_committed_total",
			Help:      "Pages committed to the cache",
		},
	)

	IngestionSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_records_skipped_total",
			Help:      "Malformed records dropped by normalisation",
		},
	)

	ReviewsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_reviews_added_total",
			Help:      "Reviews newly inserted into the cache",
		},
	)

	FetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_fetch_retries_total",
			Help:      "Page fetches retried after a transport error",
		},
	)

	RefreshInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_in_progress",
			Help:      "1 while an ingestion cycle runs",
		},
	)

	CacheLastRefresh = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful ingestion start",
		},
	)

	// Source Metrics
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Requests to the review source by outcome",
		},
		[]string{"outcome"}, // "ok", "http_error", "rate_limited", "network", "decode", "breaker_open"
	)

	SourceRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Latency of review source requests",
			Buckets:   prometheus.DefBuckets,
		},
	)

	SourceBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_circuit_breaker_state",
			Help:      "Source circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Query Metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of read queries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	QueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_errors_total",
			Help:      "Read queries that returned an error",
		},
		[]string{"operation"},
	)

	AggregateRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_rebuilds_total",
			Help:      "Department and course aggregate rebuilds",
		},
	)
)

// RecordIngestion records a finished cycle.
func RecordIngestion(duration time.Duration, err error) {
	result := "succeeded"
	if err != nil {
		result = "failed"
	}
	IngestionCycles.WithLabelValues(result).Inc()
	IngestionDuration.Observe(duration.Seconds())
}

// RecordSourceRequest records one source round trip.
func RecordSourceRequest(outcome string, duration time.Duration) {
	SourceRequests.WithLabelValues(outcome).Inc()
	if duration > 0 {
		SourceRequestDuration.Observe(duration.Seconds())
	}
}

// RecordQuery records a read query.
func RecordQuery(operation string, duration time.Duration, err error) {
	QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		QueryErrors.WithLabelValues(operation).Inc()
	}
}

// SetRefreshing toggles the in-progress gauge.
func SetRefreshing(running bool) {
	if running {
		RefreshInProgress.Set(1)
		return
	}
	RefreshInProgress.Set(0)
}
