// Package health runs the background probe loop that drives specialist
// health state. Probing is fully decoupled from request handling: it runs on
// its own ticker, probes specialists concurrently, and never takes a lock
// across a network call.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ninefold/internal/lifecycle"
	"ninefold/internal/registry"
	"ninefold/internal/registry/metrics"
	"ninefold/internal/registry/models"
)

// Checker is the probe side of the specialist contract.
type Checker interface {
	Check(ctx context.Context, endpoint string) error
}

// Prober probes all registered specialists on a fixed interval and applies
// the results to the registry's health state machine. Transitions into
// unhealthy are signalled to the lifecycle manager.
type Prober struct {
	registry  *registry.Registry
	checker   Checker
	publisher lifecycle.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	interval time.Duration
	timeout  time.Duration
}

// New creates a Prober. metrics may be nil in tests.
func New(
	reg *registry.Registry,
	checker Checker,
	publisher lifecycle.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
	interval, timeout time.Duration,
) *Prober {
	return &Prober{
		registry:  reg,
		checker:   checker,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		interval:  interval,
		timeout:   timeout,
	}
}

// Run blocks probing until ctx is cancelled. Call in a dedicated goroutine.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.ProbeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProbeAll(ctx)
		}
	}
}

// ProbeAll probes every non-disabled specialist once, concurrently.
func (p *Prober) ProbeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sp := range p.registry.Snapshot() {
		if sp.Health == models.HealthDisabled {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.probeOne(ctx, sp)
		}()
	}
	wg.Wait()
	p.publishStateCounts()
}

func (p *Prober) probeOne(ctx context.Context, sp models.Specialist) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.checker.Check(probeCtx, sp.Endpoint)
	ok := err == nil
	if p.metrics != nil {
		p.metrics.ObserveProbe(ok)
	}

	outcome, recErr := p.registry.RecordProbe(sp.ID, ok)
	if recErr != nil {
		// deregistered between snapshot and probe
		return
	}

	if outcome.Previous != outcome.Current {
		p.logger.InfoContext(ctx, "specialist health transition",
			"specialist_id", sp.ID,
			"from", string(outcome.Previous),
			"to", string(outcome.Current),
		)
	}

	if outcome.BecameUnhealthy {
		if p.metrics != nil {
			p.metrics.IncrementUnhealthySignal()
		}
		ev := lifecycle.Event{
			SpecialistID:        sp.ID,
			Name:                sp.Name,
			Version:             sp.Version,
			State:               string(outcome.Current),
			ConsecutiveFailures: outcome.Specialist.ConsecutiveFailures,
			Timestamp:           time.Now().UTC(),
		}
		if err := p.publisher.Publish(ctx, ev); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish lifecycle event",
				"specialist_id", sp.ID,
				"error", err,
			)
		}
	}
}

func (p *Prober) publishStateCounts() {
	if p.metrics == nil {
		return
	}
	counts := map[string]int{
		string(models.HealthUnknown):   0,
		string(models.HealthHealthy):   0,
		string(models.HealthDegraded):  0,
		string(models.HealthUnhealthy): 0,
		string(models.HealthDisabled):  0,
	}
	for _, sp := range p.registry.Snapshot() {
		counts[string(sp.Health)]++
	}
	p.metrics.SetStateCounts(counts)
}
