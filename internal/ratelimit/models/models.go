// Package models defines tier and rate limit types shared by the limiter
// service, its stores, and the gateway middleware.
package models

import "time"

// Tier classifies a caller for rate limiting and feature gating.
type Tier string

const (
	TierFree    Tier = "free"
	TierBeta    Tier = "beta"
	TierPremium Tier = "premium"
)

// ParseTier maps a claim or key record value to a known tier. Unknown values
// fall back to free so a misconfigured caller never gains headroom.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierBeta:
		return TierBeta
	case TierPremium:
		return TierPremium
	default:
		return TierFree
	}
}

// String returns the string representation.
func (t Tier) String() string {
	return string(t)
}

// StatsEligible reports whether the tier may read the aggregate stats
// surface.
func (t Tier) StatsEligible() bool {
	return t == TierBeta || t == TierPremium
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}
