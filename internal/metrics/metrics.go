// Package metrics holds the Prometheus collectors exposed on /metrics.
//
//   - space_http_requests_total{method,route,status}
//   - space_http_request_duration_seconds{method,route}
//   - space_upstream_requests_total{provider,outcome}
//   - space_circuit_breaker_state{name} (0 closed, 1 half-open, 2 open)
//   - space_cache_hits_total{domain}, space_cache_misses_total{domain}
//   - space_cache_evictions_total, space_cache_entries
//   - space_persist_failures_total{table}
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "space_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "space_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "space_upstream_requests_total",
			Help: "Calls to third-party providers by outcome",
		},
		[]string{"provider", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "space_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "space_cache_hits_total",
			Help: "In-process response cache hits",
		},
		[]string{"domain"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "space_cache_misses_total",
			Help: "In-process response cache misses, including expired entries",
		},
		[]string{"domain"},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "space_cache_evictions_total",
			Help: "Entries removed by the size bound or the janitor",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "space_cache_entries",
			Help: "Entries currently held by the in-process cache",
		},
	)

	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "space_persist_failures_total",
			Help: "Best-effort writes to the persistent store that failed",
		},
		[]string{"table"},
	)
)
