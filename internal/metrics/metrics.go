// Package metrics exposes Prometheus instrumentation for resolution,
// filtering, caching and HTTP traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Resolutions counts related-article resolutions.
	// Labels:
	//   - strategy: "curated", "derived", "none"
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsblog_related_resolutions_total",
			Help: "Total number of related article resolutions",
		},
		[]string{"strategy"},
	)

	// ResolveDuration measures resolver latency including storage reads
	ResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsblog_related_resolve_duration_seconds",
			Help:    "Duration of related article resolution",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// FilterRejections counts filter requests with invalid input.
	// Labels:
	//   - set: filter set name
	//   - mode: "strict", "lenient"
	FilterRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsblog_filter_invalid_total",
			Help: "Filter requests containing invalid values",
		},
		[]string{"set", "mode"},
	)

	// CacheLookups counts facet cache lookups.
	// Labels:
	//   - facet: facet name
	//   - result: "hit", "miss"
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsblog_facet_cache_lookups_total",
			Help: "Facet cache lookups by result",
		},
		[]string{"facet", "result"},
	)

	// CacheBreakerTransitions counts facet cache circuit breaker state changes.
	// Labels:
	//   - from, to: "closed", "half-open", "open"
	CacheBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsblog_facet_cache_breaker_transitions_total",
			Help: "Facet cache circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)

	// RateLimited counts requests rejected by the per-client rate limiter
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsblog_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// HTTPRequests counts served requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsblog_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration measures request latency per route
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsblog_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveResolution records one resolution
func ObserveResolution(strategy string, started time.Time) {
	Resolutions.WithLabelValues(strategy).Inc()
	ResolveDuration.Observe(time.Since(started).Seconds())
}

// ObserveCache records a cache lookup; it matches the cache hook signature
func ObserveCache(facet string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(facet, result).Inc()
}

// ObserveBreaker records a breaker transition; it matches the breaker
// hook signature
func ObserveBreaker(from, to string) {
	CacheBreakerTransitions.WithLabelValues(from, to).Inc()
}

// ObserveFilterRejection records invalid filter input
func ObserveFilterRejection(set string, strict bool) {
	mode := "lenient"
	if strict {
		mode = "strict"
	}
	FilterRejections.WithLabelValues(set, mode).Inc()
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
