package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ninefold/internal/synthesizer"
	"ninefold/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	now   time.Time
	store *MemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.now = time.Now()
	s.store = NewMemory(WithClock(func() time.Time { return s.now }))
}

func (s *MemoryStoreSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func sampleResult(text string) synthesizer.Result {
	return synthesizer.Result{
		Text:         text,
		Confidence:   0.85,
		Contributors: []string{"rhys", "wraith"},
		Fingerprint:  Fingerprint(text, "rhys@v1,wraith@v1"),
	}
}

func (s *MemoryStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	result := sampleResult("merged answer")

	err := s.store.Set(ctx, result.Fingerprint, result, time.Hour)
	s.Require().NoError(err)

	entry, err := s.store.Get(ctx, result.Fingerprint)
	s.Require().NoError(err)
	s.Equal(result, entry.Result)
	s.Equal(s.now.Add(time.Hour), entry.ExpiresAt)
}

func (s *MemoryStoreSuite) TestMissReturnsNotFound() {
	_, err := s.store.Get(context.Background(), "unknown")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestExpiredEntryNotServed() {
	ctx := context.Background()
	result := sampleResult("stale soon")

	err := s.store.Set(ctx, result.Fingerprint, result, time.Minute)
	s.Require().NoError(err)

	s.advance(2 * time.Minute)

	_, err = s.store.Get(ctx, result.Fingerprint)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestSweepEvictsOnlyExpired() {
	ctx := context.Background()
	fresh := sampleResult("fresh")
	stale := sampleResult("stale")

	s.Require().NoError(s.store.Set(ctx, fresh.Fingerprint, fresh, time.Hour))
	s.Require().NoError(s.store.Set(ctx, stale.Fingerprint, stale, time.Minute))

	s.advance(10 * time.Minute)

	s.Equal(1, s.store.Sweep())

	_, err := s.store.Get(ctx, fresh.Fingerprint)
	s.Require().NoError(err)
	_, err = s.store.Get(ctx, stale.Fingerprint)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestConcurrentAccess() {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			fp := fmt.Sprintf("fp-%d", n)
			_ = s.store.Set(ctx, fp, sampleResult(fp), time.Hour)
			_, _ = s.store.Get(ctx, fp)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		_, err := s.store.Get(ctx, fmt.Sprintf("fp-%d", i))
		s.Require().NoError(err)
	}
}
