// Package models defines the routing decision audit record.
package models

import "time"

// Decision is one recorded routing outcome, kept for the dashboard surface.
type Decision struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	CallerID     string    `json:"caller_id"`
	Query        string    `json:"query"`
	Domains      []string  `json:"domains"`
	Specialists  []string  `json:"specialists"`
	Dropped      []string  `json:"dropped,omitempty"`
	Reasoning    string    `json:"reasoning"`
	Confidence   float64   `json:"confidence"`
	CacheHit     bool      `json:"cache_hit"`
	Degraded     bool      `json:"degraded"`
	UsedFallback bool      `json:"used_fallback"`
	LatencyMS    int64     `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
