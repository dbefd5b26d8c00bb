package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ninefold/internal/synthesizer"
	"ninefold/pkg/platform/sentinel"
)

const cacheKeyPrefix = "cache:fp:"

// RedisStore shares cached results across instances. The client lifecycle is
// managed externally.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, fingerprint string) (Entry, error) {
	raw, err := s.client.Get(ctx, cacheKeyPrefix+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("cache get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// treat a corrupt payload as a miss rather than an outage
		return Entry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *RedisStore) Set(ctx context.Context, fingerprint string, result synthesizer.Result, ttl time.Duration) error {
	now := time.Now()
	entry := Entry{Result: result, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := s.client.Set(ctx, cacheKeyPrefix+fingerprint, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
