// Package metrics holds the Prometheus metrics for the gateway surface.
// Module-specific metrics (registry health, dispatch) live next to their
// modules.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request-level Prometheus metrics.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	RateLimitRejected  prometheus.Counter
	AuthFailuresTotal  prometheus.Counter
}

// New creates and registers all gateway metrics.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ninefold_requests_total",
			Help: "Total HTTP requests by path, tier and status",
		}, []string{"path", "tier", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ninefold_request_duration_seconds",
			Help:    "HTTP request latency by path",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ninefold_cache_hits_total",
			Help: "Total query responses served from cache",
		}),
		CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ninefold_cache_misses_total",
			Help: "Total query responses that bypassed or missed the cache",
		}),
		RateLimitRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ninefold_ratelimit_rejected_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		AuthFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ninefold_auth_failures_total",
			Help: "Total requests rejected by authentication",
		}),
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(path, tier string, status int, d time.Duration) {
	if tier == "" {
		tier = "anonymous"
	}
	m.RequestsTotal.WithLabelValues(path, tier, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path).Observe(d.Seconds())
}

// IncrementCacheHit records a cache hit.
func (m *Metrics) IncrementCacheHit() { m.CacheHitsTotal.Inc() }

// IncrementCacheMiss records a cache miss or bypass.
func (m *Metrics) IncrementCacheMiss() { m.CacheMissesTotal.Inc() }

// IncrementRateLimited records a rate-limited request.
func (m *Metrics) IncrementRateLimited() { m.RateLimitRejected.Inc() }

// IncrementAuthFailure records an authentication failure.
func (m *Metrics) IncrementAuthFailure() { m.AuthFailuresTotal.Inc() }
