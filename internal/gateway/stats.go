package gateway

import (
	"sync"
	"time"
)

// Stats aggregates gateway-level counters for the stats endpoint. Prometheus
// carries the operational series; this is the caller-facing summary.
type Stats struct {
	mu             sync.Mutex
	queries        uint64
	cacheHits      uint64
	synthesized    uint64
	degraded       uint64
	totalLatencyMS int64
}

// StatsSnapshot is the wire form of the aggregate counters.
type StatsSnapshot struct {
	Queries       uint64  `json:"queries"`
	CacheHits     uint64  `json:"cache_hits"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	Synthesized   uint64  `json:"synthesized"`
	SynthesisRate float64 `json:"synthesis_rate"`
	Degraded      uint64  `json:"degraded"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
}

func NewStats() *Stats {
	return &Stats{}
}

// RecordQuery folds one answered query into the aggregates.
func (s *Stats) RecordQuery(cacheHit, degraded, synthesized bool, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if cacheHit {
		s.cacheHits++
	}
	if degraded {
		s.degraded++
	}
	if synthesized {
		s.synthesized++
	}
	s.totalLatencyMS += latency.Milliseconds()
}

// Snapshot returns a consistent copy of the aggregates.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Queries:     s.queries,
		CacheHits:   s.cacheHits,
		Synthesized: s.synthesized,
		Degraded:    s.degraded,
	}
	if s.queries > 0 {
		snap.CacheHitRate = float64(s.cacheHits) / float64(s.queries)
		snap.SynthesisRate = float64(s.synthesized) / float64(s.queries)
		snap.AvgLatencyMS = float64(s.totalLatencyMS) / float64(s.queries)
	}
	return snap
}
