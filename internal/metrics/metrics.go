// Package metrics holds the prometheus collectors shared by the server, worker and admin binaries.
// Collectors register on the default registry; expose them with promhttp.Handler().
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rebuild outcome label values
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

var (
	// AffinityRebuildsTotal counts rebuild attempts by outcome
	AffinityRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_rebuilds_total",
			Help: "Affinity matrix rebuild attempts by outcome",
		},
		[]string{"outcome"},
	)

	// AffinityRebuildDuration observes the wall time of completed rebuilds
	AffinityRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_rebuild_duration_seconds",
			Help:    "Duration of affinity matrix rebuilds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 900, 1800},
		},
	)

	// AffinityEntriesWritten counts affinity entries persisted
	AffinityEntriesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_entries_written_total",
			Help: "Affinity entries written to the store",
		},
	)

	// AffinityBatchWrites counts batch persistence calls by outcome
	AffinityBatchWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_batch_writes_total",
			Help: "Affinity store batch insert calls by outcome",
		},
		[]string{"outcome"},
	)

	// AffinityRebuildInProgress is 1 while a rebuild runs in this process
	AffinityRebuildInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_rebuild_in_progress",
			Help: "Whether an affinity rebuild is running in this process",
		},
	)

	// RecommendationsTotal counts recommend calls by strategy and outcome
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Recommendation requests by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	// RecommendationDuration observes recommend latency by strategy
	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Recommendation latency by strategy",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"strategy"},
	)

	// WorkerPoolRejected counts tasks rejected because the pool queue was full or stopped
	WorkerPoolRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_pool_rejected_total",
			Help: "Tasks rejected by the background worker pool",
		},
		[]string{"reason"},
	)

	// WorkerPoolQueueDepth tracks tasks waiting in the worker pool queue
	WorkerPoolQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_pool_queue_depth",
			Help: "Tasks waiting in the background worker pool queue",
		},
	)

	// CircuitBreakerState reports breaker state per collaborator (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTPRequestsTotal counts served HTTP requests by route template, method and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	// HTTPRequestDuration observes HTTP latency by route template and method
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
