package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the registry and health prober.
type Metrics struct {
	SpecialistsByState *prometheus.GaugeVec
	ProbesTotal        *prometheus.CounterVec
	UnhealthySignals   prometheus.Counter
}

// New creates and registers all registry metrics.
func New() *Metrics {
	return &Metrics{
		SpecialistsByState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ninefold_specialists",
			Help: "Number of registered specialists by health state",
		}, []string{"state"}),
		ProbesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ninefold_probes_total",
			Help: "Total health probes by result",
		}, []string{"result"}),
		UnhealthySignals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ninefold_unhealthy_signals_total",
			Help: "Total lifecycle signals emitted for unhealthy specialists",
		}),
	}
}

// ObserveProbe records one probe result.
func (m *Metrics) ObserveProbe(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.ProbesTotal.WithLabelValues(result).Inc()
}

// SetStateCounts replaces the per-state specialist gauges.
func (m *Metrics) SetStateCounts(counts map[string]int) {
	for state, n := range counts {
		m.SpecialistsByState.WithLabelValues(state).Set(float64(n))
	}
}

// IncrementUnhealthySignal records one emitted lifecycle signal.
func (m *Metrics) IncrementUnhealthySignal() { m.UnhealthySignals.Inc() }
