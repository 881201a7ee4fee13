package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog source
	CatalogFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_fetch_total",
			Help: "Remote catalog document fetches by resource and result",
		},
		[]string{"resource", "result"}, // result: ok, error, breaker_open
	)

	CatalogFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_fetch_duration_seconds",
			Help:    "Duration of remote catalog fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	CatalogItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_items",
			Help: "Records in the current normalized snapshot",
		},
		[]string{"resource"},
	)

	CatalogDroppedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_dropped_records_total",
			Help: "Raw records excluded during normalization",
		},
		[]string{"resource", "reason"},
	)

	CatalogBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_circuit_breaker_state",
			Help: "Catalog source breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Search cache
	SearchCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_hits_total",
			Help: "Search queries answered from the result cache",
		},
	)

	SearchCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_cache_misses_total",
			Help: "Search queries computed against the snapshot",
		},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Jobs
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Scheduled job executions by job and result",
		},
		[]string{"job", "result"},
	)
)

// RecordCatalogFetch records one remote fetch
func RecordCatalogFetch(resource, result string, duration time.Duration) {
	CatalogFetchTotal.WithLabelValues(resource, result).Inc()
	CatalogFetchDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordAPIRequest records one HTTP request
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordJobRun records a scheduled job execution
func RecordJobRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	JobRunsTotal.WithLabelValues(job, result).Inc()
}
