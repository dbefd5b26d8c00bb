package cache

import (
	"context"
	"time"

	"ninefold/internal/synthesizer"
	"ninefold/pkg/platform/sentinel"
)

// Entry is one cached synthesized result with its expiry bookkeeping.
type Entry struct {
	Result    synthesizer.Result `json:"result"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// Store is a TTL'd fingerprint-to-result map. A miss returns
// sentinel.ErrNotFound; any other error means the store itself is
// unavailable and callers should bypass it rather than fail the request.
type Store interface {
	Get(ctx context.Context, fingerprint string) (Entry, error)
	Set(ctx context.Context, fingerprint string, result synthesizer.Result, ttl time.Duration) error
}

// Noop is used when caching is disabled: every lookup misses and writes are
// discarded.
type Noop struct{}

func (Noop) Get(context.Context, string) (Entry, error) {
	return Entry{}, sentinel.ErrNotFound
}

func (Noop) Set(context.Context, string, synthesizer.Result, time.Duration) error {
	return nil
}
