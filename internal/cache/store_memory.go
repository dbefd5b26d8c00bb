package cache

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"ninefold/internal/synthesizer"
	"ninefold/pkg/platform/sentinel"
)

const shardCount = 32

// MemoryStore is a sharded in-process cache. Each shard has its own mutex so
// unrelated fingerprints never contend on a single lock.
type MemoryStore struct {
	shards [shardCount]*shard
	now    func() time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]Entry)}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) shardFor(fingerprint string) *shard {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	return s.shards[h.Sum32()%shardCount]
}

func (s *MemoryStore) Get(_ context.Context, fingerprint string) (Entry, error) {
	sh := s.shardFor(fingerprint)
	sh.mu.RLock()
	entry, ok := sh.entries[fingerprint]
	sh.mu.RUnlock()
	if !ok || s.now().After(entry.ExpiresAt) {
		return Entry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) Set(_ context.Context, fingerprint string, result synthesizer.Result, ttl time.Duration) error {
	now := s.now()
	entry := Entry{Result: result, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	sh := s.shardFor(fingerprint)
	sh.mu.Lock()
	sh.entries[fingerprint] = entry
	sh.mu.Unlock()
	return nil
}

// Sweep removes expired entries and reports how many were evicted. Expired
// entries are already invisible to Get; sweeping only reclaims memory.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	var evicted int
	for _, sh := range s.shards {
		sh.mu.Lock()
		for fp, entry := range sh.entries {
			if now.After(entry.ExpiresAt) {
				delete(sh.entries, fp)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// RunJanitor sweeps on the given interval until ctx is cancelled.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
