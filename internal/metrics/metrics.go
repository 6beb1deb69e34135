package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks outbound calls to the resource API.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productsync_api_requests_total",
			Help: "Total number of resource API requests (by endpoint, method and status).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Measures duration of resource API requests.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "productsync_api_request_duration_seconds",
			Help:    "Duration of resource API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms -> ~16s
		},
		[]string{"endpoint", "method"},
	)

	// Tracks cache hits and misses per resource family.
	CacheAccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productsync_cache_access_total",
			Help: "Number of cache hits/misses per resource.",
		},
		[]string{"resource", "result"}, // result = "hit" | "miss"
	)

	// Counts loads that joined an already in-flight fetch instead of
	// issuing their own.
	CoalescedLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productsync_coalesced_loads_total",
			Help: "Number of loads deduplicated onto an in-flight fetch.",
		},
		[]string{"resource"},
	)

	// Counts responses discarded because a newer request superseded them.
	StaleResponsesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productsync_stale_responses_discarded_total",
			Help: "Number of fetch responses dropped by request-id arbitration.",
		},
		[]string{"resource"},
	)

	// Tracks background prefetch outcomes.
	PrefetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productsync_prefetch_total",
			Help: "Background prefetch outcomes per resource.",
		},
		[]string{"resource", "result"}, // result = "ok" | "error" | "cached"
	)

	// Counts optimistic mutations that had to be rolled back.
	OptimisticRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "productsync_optimistic_rollbacks_total",
			Help: "Number of optimistic mutations rolled back after a remote failure.",
		},
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productsync_errors_total",
			Help: "Count of sync-layer errors by component.",
		},
		[]string{"component", "reason"},
	)
)

// IncCache records a cache access outcome for a resource family.
func IncCache(resource string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheAccess.WithLabelValues(resource, result).Inc()
}

// IncError records a component-level error.
func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// ObserveAPIRequest records one resource API call.
func ObserveAPIRequest(endpoint, method, status string, start time.Time) {
	APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	APIRequestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
}
