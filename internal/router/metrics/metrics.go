package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for dispatch planning and execution.
type Metrics struct {
	DispatchesTotal    *prometheus.CounterVec
	SpecialistCalls    *prometheus.CounterVec
	DroppedCallsTotal  prometheus.Counter
	SpecialistLatency  *prometheus.HistogramVec
}

// New creates and registers all router metrics.
func New() *Metrics {
	return &Metrics{
		DispatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ninefold_dispatches_total",
			Help: "Total dispatches by mode (single, multi)",
		}, []string{"mode"}),
		SpecialistCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ninefold_specialist_calls_total",
			Help: "Total specialist calls by specialist and result",
		}, []string{"specialist", "result"}),
		DroppedCallsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ninefold_dropped_calls_total",
			Help: "Total planned specialist calls dropped after retries",
		}),
		SpecialistLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ninefold_specialist_latency_seconds",
			Help:    "Specialist call latency by specialist",
			Buckets: prometheus.DefBuckets,
		}, []string{"specialist"}),
	}
}

// ObserveDispatch records one executed plan.
func (m *Metrics) ObserveDispatch(synthesis bool) {
	mode := "single"
	if synthesis {
		mode = "multi"
	}
	m.DispatchesTotal.WithLabelValues(mode).Inc()
}

// ObserveCall records one finished specialist call attempt chain.
func (m *Metrics) ObserveCall(specialist string, ok bool, seconds float64) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.SpecialistCalls.WithLabelValues(specialist, result).Inc()
	if ok {
		m.SpecialistLatency.WithLabelValues(specialist).Observe(seconds)
	}
}

// IncrementDropped records one dropped planned call.
func (m *Metrics) IncrementDropped() { m.DroppedCallsTotal.Inc() }
