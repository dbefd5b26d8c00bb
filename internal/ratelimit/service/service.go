// Package service applies the per-tier rate limit policy.
package service

import (
	"context"
	"time"

	"ninefold/internal/platform/config"
	"ninefold/internal/ratelimit/models"
)

// BucketStore is the token bucket backend.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

// Limiter resolves a caller's tier to a limit and consults the bucket store.
type Limiter struct {
	store BucketStore
	cfg   config.RateLimit
}

func New(store BucketStore, cfg config.RateLimit) *Limiter {
	return &Limiter{store: store, cfg: cfg}
}

// Check consumes one token for the caller. Buckets are keyed by caller id
// alone; a tier change mid-window simply alters the refill rate going
// forward.
func (l *Limiter) Check(ctx context.Context, callerID string, tier models.Tier) (*models.RateLimitResult, error) {
	limit := l.limitFor(tier)
	if l.cfg.Disabled {
		return &models.RateLimitResult{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	return l.store.Allow(ctx, callerID, limit, l.cfg.Window)
}

// Reset clears the caller's bucket.
func (l *Limiter) Reset(ctx context.Context, callerID string) error {
	return l.store.Reset(ctx, callerID)
}

func (l *Limiter) limitFor(tier models.Tier) int {
	switch tier {
	case models.TierPremium:
		return l.cfg.PremiumLimit
	case models.TierBeta:
		return l.cfg.BetaLimit
	default:
		return l.cfg.FreeLimit
	}
}
