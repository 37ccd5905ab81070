// Package metrics registers the Prometheus metrics used by the gateway.
// Import this package (via blank import) from the server entry point to
// register all metrics before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Admission outcome label values.
const (
	OutcomeAdmitted      = "admitted"
	OutcomeMissingKey    = "missing_key"
	OutcomeInvalidKey    = "invalid_key"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeStoreError    = "store_error"
)

var (
	// AdmissionsTotal counts admission gate decisions by outcome.
	AdmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagw_admissions_total",
			Help: "Total admission gate decisions by outcome.",
		},
		[]string{"outcome"},
	)

	// RequestDuration observes end-to-end request latency in seconds per route.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagw_request_duration_seconds",
			Help:    "End-to-end request duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"route"},
	)

	// UpstreamRequestsTotal counts outbound extractions by upstream and result
	// ("success", "error", "circuit_open").
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagw_upstream_requests_total",
			Help: "Total upstream extraction calls by result.",
		},
		[]string{"upstream", "result"},
	)

	// UpstreamDuration observes upstream extraction latency in seconds.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagw_upstream_duration_seconds",
			Help:    "Upstream extraction duration in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"upstream"},
	)

	// RateLimitRejections counts requests rejected by the per-IP rate limiter.
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediagw_rate_limit_rejections_total",
			Help: "Total requests rejected by the per-IP rate limiter.",
		},
	)

	// CacheLookups counts upstream result cache lookups by outcome (hit/miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagw_result_cache_lookups_total",
			Help: "Upstream result cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
)
