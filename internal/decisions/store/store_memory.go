package store

import (
	"context"
	"sync"

	"ninefold/internal/decisions/models"
)

const defaultCapacity = 1000

// InMemoryStore keeps the most recent decisions in a ring buffer.
type InMemoryStore struct {
	mu       sync.RWMutex
	entries  []models.Decision
	next     int
	filled   bool
	capacity int
}

// NewInMemory creates a ring-buffered store. capacity <= 0 uses the default.
func NewInMemory(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &InMemoryStore{
		entries:  make([]models.Decision, capacity),
		capacity: capacity,
	}
}

func (s *InMemoryStore) Append(_ context.Context, decision models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.next] = decision
	s.next++
	if s.next == s.capacity {
		s.next = 0
		s.filled = true
	}
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.next
	if s.filled {
		size = s.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]models.Decision, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := s.next - i
		if idx < 0 {
			idx += s.capacity
		}
		out = append(out, s.entries[idx])
	}
	return out, nil
}
