package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ninefold/internal/platform/config"
	"ninefold/internal/ratelimit/models"
)

type recordingStore struct {
	lastKey   string
	lastLimit int
}

func (s *recordingStore) Allow(_ context.Context, key string, limit int, _ time.Duration) (*models.RateLimitResult, error) {
	s.lastKey = key
	s.lastLimit = limit
	return &models.RateLimitResult{Allowed: true, Limit: limit, Remaining: limit - 1}, nil
}

func (s *recordingStore) Reset(context.Context, string) error { return nil }

func testRateLimitConfig() config.RateLimit {
	return config.RateLimit{
		Window:       time.Minute,
		FreeLimit:    60,
		BetaLimit:    300,
		PremiumLimit: 300,
	}
}

func TestCheckUsesTierLimit(t *testing.T) {
	store := &recordingStore{}
	limiter := New(store, testRateLimitConfig())

	cases := []struct {
		tier  models.Tier
		limit int
	}{
		{models.TierFree, 60},
		{models.TierBeta, 300},
		{models.TierPremium, 300},
		{models.Tier("unknown"), 60},
	}
	for _, tc := range cases {
		_, err := limiter.Check(context.Background(), "caller-1", tc.tier)
		require.NoError(t, err)
		assert.Equal(t, tc.limit, store.lastLimit, "tier %s", tc.tier)
		assert.Equal(t, "caller-1", store.lastKey)
	}
}

func TestCheckDisabledAlwaysAllows(t *testing.T) {
	cfg := testRateLimitConfig()
	cfg.Disabled = true
	limiter := New(&recordingStore{}, cfg)

	result, err := limiter.Check(context.Background(), "caller-1", models.TierFree)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
