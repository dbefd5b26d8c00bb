package health

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ninefold/internal/lifecycle"
	"ninefold/internal/registry"
	"ninefold/internal/registry/models"
)

// scriptedChecker fails the endpoints listed in down and succeeds otherwise.
type scriptedChecker struct {
	mu   sync.Mutex
	down map[string]bool
}

func (c *scriptedChecker) Check(_ context.Context, endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down[endpoint] {
		return errors.New("connection refused")
	}
	return nil
}

func (c *scriptedChecker) setDown(endpoint string, down bool) {
	c.mu.Lock()
	c.down[endpoint] = down
	c.mu.Unlock()
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newProberFixture(t *testing.T) (*registry.Registry, *scriptedChecker, *lifecycle.Recorder, *Prober) {
	t.Helper()
	reg := registry.New(registry.WithHealthyThreshold(2), registry.WithUnhealthyThreshold(2))
	checker := &scriptedChecker{down: make(map[string]bool)}
	recorder := lifecycle.NewRecorder()
	prober := New(reg, checker, recorder, testLogger(), nil, time.Minute, time.Second)
	return reg, checker, recorder, prober
}

func TestProbeAllEstablishesHealth(t *testing.T) {
	reg, _, _, prober := newProberFixture(t)
	reg.Register(models.Registration{
		ID: "rhys", Name: "rhys", Endpoint: "http://rhys.local", Version: "v1",
		Domains: []models.DomainTag{{Domain: "architecture", Weight: 1.0}},
	})

	ctx := context.Background()
	prober.ProbeAll(ctx)
	sp, err := reg.Get("rhys")
	require.NoError(t, err)
	assert.Equal(t, models.HealthUnknown, sp.Health, "one success is not enough")

	prober.ProbeAll(ctx)
	sp, _ = reg.Get("rhys")
	assert.Equal(t, models.HealthHealthy, sp.Health)
}

func TestProbeEmitsLifecycleSignalOnceOnUnhealthy(t *testing.T) {
	reg, checker, recorder, prober := newProberFixture(t)
	reg.Register(models.Registration{
		ID: "wraith", Name: "wraith", Endpoint: "http://wraith.local", Version: "v3",
		Domains: []models.DomainTag{{Domain: "security", Weight: 1.0}},
	})

	ctx := context.Background()
	prober.ProbeAll(ctx)
	prober.ProbeAll(ctx) // healthy

	checker.setDown("http://wraith.local", true)
	prober.ProbeAll(ctx) // degraded
	assert.Empty(t, recorder.Events())

	prober.ProbeAll(ctx) // degraded -> unhealthy, signal fires
	events := recorder.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "wraith", events[0].SpecialistID)
	assert.Equal(t, "v3", events[0].Version)
	assert.Equal(t, string(models.HealthUnhealthy), events[0].State)

	prober.ProbeAll(ctx) // still unhealthy, no repeat signal
	assert.Len(t, recorder.Events(), 1)
}

func TestProbeRecoversThroughDegraded(t *testing.T) {
	reg, checker, _, prober := newProberFixture(t)
	reg.Register(models.Registration{
		ID: "flux", Name: "flux", Endpoint: "http://flux.local", Version: "v1",
		Domains: []models.DomainTag{{Domain: "transformation", Weight: 1.0}},
	})

	ctx := context.Background()
	prober.ProbeAll(ctx)
	prober.ProbeAll(ctx) // healthy

	checker.setDown("http://flux.local", true)
	prober.ProbeAll(ctx)
	prober.ProbeAll(ctx)
	sp, _ := reg.Get("flux")
	require.Equal(t, models.HealthUnhealthy, sp.Health)

	checker.setDown("http://flux.local", false)
	prober.ProbeAll(ctx)
	sp, _ = reg.Get("flux")
	assert.Equal(t, models.HealthDegraded, sp.Health)

	prober.ProbeAll(ctx)
	sp, _ = reg.Get("flux")
	assert.Equal(t, models.HealthHealthy, sp.Health)
}

func TestProberSkipsDisabled(t *testing.T) {
	reg, _, recorder, prober := newProberFixture(t)
	reg.Register(models.Registration{
		ID: "vireon", Name: "vireon", Endpoint: "http://vireon.local", Version: "v1",
		Domains: []models.DomainTag{{Domain: "protection", Weight: 1.0}},
	})
	require.NoError(t, reg.Deregister("vireon"))

	prober.ProbeAll(context.Background())
	sp, _ := reg.Get("vireon")
	assert.Equal(t, models.HealthDisabled, sp.Health)
	assert.Empty(t, recorder.Events())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	_, _, _, prober := newProberFixture(t)
	prober.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		prober.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("prober did not stop after cancel")
	}
}
