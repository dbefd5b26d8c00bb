package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ninefold/internal/decisions/models"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory(5)
}

func decision(n int) models.Decision {
	return models.Decision{
		ID:          fmt.Sprintf("dec-%d", n),
		RequestID:   fmt.Sprintf("req-%d", n),
		CallerID:    "caller-1",
		Query:       "what architecture fits",
		Domains:     []string{"architecture"},
		Specialists: []string{"rhys"},
		Confidence:  0.8,
		CreatedAt:   time.Now(),
	}
}

func (s *MemoryStoreSuite) TestRecentNewestFirst() {
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		s.Require().NoError(s.store.Append(ctx, decision(i)))
	}

	got, err := s.store.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal("dec-3", got[0].ID)
	s.Equal("dec-1", got[2].ID)
}

func (s *MemoryStoreSuite) TestRecentHonorsLimit() {
	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		s.Require().NoError(s.store.Append(ctx, decision(i)))
	}

	got, err := s.store.Recent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("dec-4", got[0].ID)
	s.Equal("dec-3", got[1].ID)
}

func (s *MemoryStoreSuite) TestRingBufferEvictsOldest() {
	ctx := context.Background()
	for i := 1; i <= 7; i++ {
		s.Require().NoError(s.store.Append(ctx, decision(i)))
	}

	got, err := s.store.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 5)
	s.Equal("dec-7", got[0].ID)
	s.Equal("dec-3", got[4].ID)
}

func (s *MemoryStoreSuite) TestEmptyStore() {
	got, err := s.store.Recent(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(got)
}
