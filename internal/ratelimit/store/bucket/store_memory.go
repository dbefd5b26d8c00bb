// Package bucket implements per-caller token buckets with continuous refill.
package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"ninefold/internal/ratelimit/models"
)

// InMemoryBucketStore keeps one token bucket per key. The store-level RWMutex
// guards only map membership; each bucket carries its own mutex so unrelated
// callers never serialize on a shared lock.
type InMemoryBucketStore struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
	now     func() time.Time
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// Option configures an InMemoryBucketStore.
type Option func(*InMemoryBucketStore)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryBucketStore) { s.now = now }
}

// NewInMemoryBucketStore creates a new in-memory bucket store.
func NewInMemoryBucketStore(opts ...Option) *InMemoryBucketStore {
	s := &InMemoryBucketStore{
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Allow consumes one token from the key's bucket if available. The bucket
// refills continuously at limit tokens per window rather than resetting on a
// boundary, so a burst at the end of one window cannot double up with a burst
// at the start of the next.
func (s *InMemoryBucketStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	b := s.getOrCreateBucket(key, limit)
	now := s.now()
	refillPerSec := float64(limit) / window.Seconds()

	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(float64(limit), b.tokens+elapsed*refillPerSec)
		b.lastRefill = now
	}

	if b.tokens < 1 {
		retryAfter := int(math.Ceil((1 - b.tokens) / refillPerSec))
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    now.Add(time.Duration((float64(limit)-b.tokens)/refillPerSec) * time.Second),
			RetryAfter: retryAfter,
		}, nil
	}

	b.tokens--
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: int(b.tokens),
		ResetAt:   now.Add(time.Duration((float64(limit)-b.tokens)/refillPerSec) * time.Second),
	}, nil
}

// Reset clears the bucket for a key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

func (s *InMemoryBucketStore) getOrCreateBucket(key string, limit int) *tokenBucket {
	s.mu.RLock()
	b := s.buckets[key]
	s.mu.RUnlock()
	if b != nil {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b = s.buckets[key]; b != nil {
		return b
	}
	b = &tokenBucket{tokens: float64(limit), lastRefill: s.now()}
	s.buckets[key] = b
	return b
}
