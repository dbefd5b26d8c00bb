package apikey

import (
	"context"
	"sync"

	"ninefold/internal/auth/models"
	"ninefold/pkg/platform/sentinel"
)

// InMemoryStore keeps issued keys in a map. Suitable for single-instance
// deployments and tests.
type InMemoryStore struct {
	mu   sync.RWMutex
	keys map[string]models.APIKey
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{keys: make(map[string]models.APIKey)}
}

func (s *InMemoryStore) Save(_ context.Context, key models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.KeyID] = key
	return nil
}

func (s *InMemoryStore) FindByKeyID(_ context.Context, keyID string) (models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok := s.keys[keyID]; ok {
		return key, nil
	}
	return models.APIKey{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Delete(_ context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[keyID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.keys, keyID)
	return nil
}
