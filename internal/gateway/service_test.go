package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ninefold/internal/cache"
	"ninefold/internal/classifier"
	decstore "ninefold/internal/decisions/store"
	"ninefold/internal/registry"
	"ninefold/internal/registry/models"
	"ninefold/internal/router"
	"ninefold/internal/specialist"
	"ninefold/internal/synthesizer"
	dErrors "ninefold/pkg/domain-errors"
	"ninefold/pkg/requestcontext"
)

type scriptedSpecialist struct {
	text      string
	certainty float64
	fail      bool
}

type fakeClient struct {
	mu      sync.Mutex
	byPoint map[string]scriptedSpecialist
	calls   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{byPoint: make(map[string]scriptedSpecialist)}
}

func (c *fakeClient) script(endpoint, text string, certainty float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byPoint[endpoint] = scriptedSpecialist{text: text, certainty: certainty}
}

func (c *fakeClient) Query(_ context.Context, endpoint string, _ specialist.Request) (specialist.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	sp, ok := c.byPoint[endpoint]
	if !ok || sp.fail {
		return specialist.Response{}, errors.New("specialist error")
	}
	return specialist.Response{Text: sp.text, Certainty: sp.certainty, CertaintyReported: true}, nil
}

func (c *fakeClient) Check(context.Context, string) error { return nil }

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type env struct {
	service  *Service
	registry *registry.Registry
	client   *fakeClient
}

func newEnv(t *testing.T, registrations ...models.Registration) *env {
	t.Helper()
	reg := registry.New(registry.WithHealthyThreshold(1))
	for _, r := range registrations {
		reg.Register(r)
		_, err := reg.RecordProbe(r.ID, true)
		require.NoError(t, err)
	}

	client := newFakeClient()
	logger := slog.New(slog.DiscardHandler)
	rt := router.New(classifier.New(), reg, client, logger, nil, router.Config{
		MaxSpecialists:  3,
		DominanceRatio:  2.0,
		CallTimeout:     time.Second,
		OverallDeadline: 2 * time.Second,
		RetryBackoff:    time.Millisecond,
	})
	synth := synthesizer.New(synthesizer.Config{
		FloorConfidence: 0.7,
		CeilConfidence:  1.0,
		MaxDropPenalty:  0.15,
	})

	svc := New(rt, synth, reg, cache.NewMemory(), decstore.NewInMemory(100), logger, nil, time.Hour)
	return &env{service: svc, registry: reg, client: client}
}

func registration(id, domain string) models.Registration {
	return models.Registration{
		ID: id, Name: id, Endpoint: "http://" + id + ".local", Version: "v1",
		Domains: []models.DomainTag{{Domain: domain, Weight: 1.0}},
	}
}

func TestSpecialistLookup(t *testing.T) {
	env := newEnv(t, registration("rhys", "architecture"))

	sp, err := env.service.Specialist(context.Background(), "rhys")
	require.NoError(t, err)
	assert.Equal(t, "rhys", sp.ID)

	_, err = env.service.Specialist(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestQuerySingleSpecialist(t *testing.T) {
	// one healthy specialist for the only matched domain: no synthesis, the
	// answer carries that specialist's own certainty
	e := newEnv(t, registration("rhys", "architecture"))
	e.client.script("http://rhys.local", "layer the services", 0.82)

	result, err := e.service.Query(context.Background(), "how should the system architecture evolve")
	require.NoError(t, err)
	assert.Equal(t, "layer the services", result.Answer)
	assert.Equal(t, 0.82, result.Confidence)
	assert.Equal(t, []string{"rhys"}, result.Contributors)
	assert.False(t, result.Degraded)
	assert.False(t, result.Cached)
}

func TestQuerySynthesizesAcrossDomains(t *testing.T) {
	// both domains healthy: two specialists answer and the combined
	// confidence beats either alone
	e := newEnv(t,
		registration("rhys", "architecture"),
		registration("wraith", "security"),
	)
	e.client.script("http://rhys.local", "isolate the modules", 0.8)
	e.client.script("http://wraith.local", "audit the boundary", 0.78)

	result, err := e.service.Query(context.Background(), "architecture design with security risk in mind")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rhys", "wraith"}, result.Contributors)
	assert.Contains(t, result.Answer, "[rhys]")
	assert.Contains(t, result.Answer, "[wraith]")
	assert.Greater(t, result.Confidence, 0.8)
	assert.False(t, result.Degraded)
}

func TestQueryDegradesWhenDomainUnserved(t *testing.T) {
	// the security specialist never passed a probe, so its domain cannot be
	// served and the answer is flagged degraded with lower confidence
	e := newEnv(t, registration("rhys", "architecture"))
	e.registry.Register(registration("wraith", "security"))
	e.client.script("http://rhys.local", "isolate the modules", 0.8)

	result, err := e.service.Query(context.Background(), "architecture design with security risk in mind")
	require.NoError(t, err)
	assert.Equal(t, []string{"rhys"}, result.Contributors)
	assert.True(t, result.Degraded)

	healthy := newEnv(t,
		registration("rhys", "architecture"),
		registration("wraith", "security"),
	)
	healthy.client.script("http://rhys.local", "isolate the modules", 0.8)
	healthy.client.script("http://wraith.local", "audit the boundary", 0.78)
	full, err := healthy.service.Query(context.Background(), "architecture design with security risk in mind")
	require.NoError(t, err)
	assert.Less(t, result.Confidence, full.Confidence)
}

func TestQueryServedFromCacheWithinTTL(t *testing.T) {
	e := newEnv(t, registration("rhys", "architecture"))
	e.client.script("http://rhys.local", "layer the services", 0.82)

	first, err := e.service.Query(context.Background(), "how should the system architecture evolve")
	require.NoError(t, err)
	callsAfterFirst := e.client.callCount()

	second, err := e.service.Query(context.Background(), "how should the system architecture evolve")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, callsAfterFirst, e.client.callCount(), "cache hit must not contact specialists")
}

func TestQueryCacheInvalidatedByVersionChange(t *testing.T) {
	e := newEnv(t, registration("rhys", "architecture"))
	e.client.script("http://rhys.local", "layer the services", 0.82)

	_, err := e.service.Query(context.Background(), "how should the system architecture evolve")
	require.NoError(t, err)

	// redeploy rhys under a new version and re-establish health
	redeployed := registration("rhys", "architecture")
	redeployed.Version = "v2"
	e.registry.Register(redeployed)
	_, err = e.registry.RecordProbe("rhys", true)
	require.NoError(t, err)

	result, err := e.service.Query(context.Background(), "how should the system architecture evolve")
	require.NoError(t, err)
	assert.False(t, result.Cached, "stale entry keyed to v1 must not be served")
}

func TestQueryNoSpecialistsAvailable(t *testing.T) {
	e := newEnv(t)

	_, err := e.service.Query(context.Background(), "how should the system architecture evolve")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeSpecialistUnavailable))
}

func TestQueryInvalidInput(t *testing.T) {
	e := newEnv(t, registration("rhys", "architecture"))

	_, err := e.service.Query(context.Background(), "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidQuery))
}

func TestQueryRecordsDecision(t *testing.T) {
	e := newEnv(t, registration("rhys", "architecture"))
	e.client.script("http://rhys.local", "layer the services", 0.82)

	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	ctx = requestcontext.WithCaller(ctx, "caller-1", "beta")

	_, err := e.service.Query(ctx, "how should the system architecture evolve")
	require.NoError(t, err)

	decisions, err := e.service.RecentDecisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "req-42", decisions[0].RequestID)
	assert.Equal(t, "caller-1", decisions[0].CallerID)
	assert.Equal(t, []string{"rhys"}, decisions[0].Specialists)
	assert.False(t, decisions[0].CacheHit)
}

func TestStatsTrackCacheHitRate(t *testing.T) {
	e := newEnv(t, registration("rhys", "architecture"))
	e.client.script("http://rhys.local", "layer the services", 0.82)

	ctx := context.Background()
	_, err := e.service.Query(ctx, "how should the system architecture evolve")
	require.NoError(t, err)
	_, err = e.service.Query(ctx, "how should the system architecture evolve")
	require.NoError(t, err)

	snap := e.service.Stats().Snapshot()
	assert.Equal(t, uint64(2), snap.Queries)
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, 0.5, snap.CacheHitRate)
}
