package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ProviderRequestsTotal counts upstream provider requests by outcome.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainfolio_provider_requests_total",
			Help: "Upstream provider requests partitioned by provider, chain and status.",
		},
		[]string{"provider", "chain", "status"},
	)

	// CacheOpsTotal counts derived-payload cache hits and misses.
	CacheOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainfolio_cache_ops_total",
			Help: "Derived-payload cache operations partitioned by result.",
		},
		[]string{"result"},
	)

	// HTTPRequestDuration observes handler latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainfolio_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)

// MustRegisterMetrics registers all collectors with the default registry.
// Call once at startup.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		CacheOpsTotal,
		HTTPRequestDuration,
	)
}
