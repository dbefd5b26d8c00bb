// Package registry owns the specialist table and its health state machine.
// Each entry carries its own mutex so probes and requests touching different
// specialists never contend; the registry-wide lock guards only map
// membership and is never held across an entry operation.
package registry

import (
	"sort"
	"strings"
	"sync"

	"ninefold/internal/registry/models"
	"ninefold/pkg/platform/sentinel"
)

// Registry is the owned, internally synchronized specialist table.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	healthyThreshold   int
	unhealthyThreshold int
}

type entry struct {
	mu sync.Mutex
	sp models.Specialist
}

// Option customizes a Registry.
type Option func(*Registry)

// WithHealthyThreshold sets the number of consecutive successful probes
// needed to reach healthy (from unknown or degraded).
func WithHealthyThreshold(m int) Option {
	return func(r *Registry) { r.healthyThreshold = m }
}

// WithUnhealthyThreshold sets the number of consecutive failed probes that
// moves degraded to unhealthy.
func WithUnhealthyThreshold(n int) Option {
	return func(r *Registry) { r.unhealthyThreshold = n }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:            make(map[string]*entry),
		healthyThreshold:   2,
		unhealthyThreshold: 3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a specialist or replaces an existing registration. Health is
// reset to unknown so the prober re-establishes it; a changed version marker
// implicitly invalidates cache entries fingerprinted with the old one.
func (r *Registry) Register(reg models.Registration) {
	sp := models.Specialist{
		ID:       reg.ID,
		Name:     reg.Name,
		Endpoint: reg.Endpoint,
		Version:  reg.Version,
		Domains:  append([]models.DomainTag(nil), reg.Domains...),
		Health:   models.HealthUnknown,
	}

	r.mu.Lock()
	e, ok := r.entries[reg.ID]
	if !ok {
		r.entries[reg.ID] = &entry{sp: sp}
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	e.mu.Lock()
	e.sp = sp
	e.mu.Unlock()
}

// Deregister marks a specialist disabled. Disabled is terminal until the
// specialist is re-registered.
func (r *Registry) Deregister(id string) error {
	e, ok := r.lookup(id)
	if !ok {
		return sentinel.ErrNotFound
	}
	e.mu.Lock()
	e.sp.Health = models.HealthDisabled
	e.sp.ConsecutiveSuccesses = 0
	e.sp.ConsecutiveFailures = 0
	e.mu.Unlock()
	return nil
}

// Get returns a snapshot of one specialist.
func (r *Registry) Get(id string) (models.Specialist, error) {
	e, ok := r.lookup(id)
	if !ok {
		return models.Specialist{}, sentinel.ErrNotFound
	}
	e.mu.Lock()
	sp := snapshotLocked(e)
	e.mu.Unlock()
	return sp, nil
}

// Snapshot returns copies of all specialists ordered by id.
func (r *Registry) Snapshot() []models.Specialist {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]models.Specialist, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, snapshotLocked(e))
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EligibleForDomain returns dispatch-eligible specialists serving the domain,
// ordered by health rank (healthy before degraded), then declared domain
// weight descending, then id for stability.
func (r *Registry) EligibleForDomain(domain string) []models.Specialist {
	var out []models.Specialist
	for _, sp := range r.Snapshot() {
		if !sp.Health.DispatchEligible() {
			continue
		}
		if sp.DomainWeight(domain) > 0 {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Health.Rank() != b.Health.Rank() {
			return a.Health.Rank() < b.Health.Rank()
		}
		if a.DomainWeight(domain) != b.DomainWeight(domain) {
			return a.DomainWeight(domain) > b.DomainWeight(domain)
		}
		return a.ID < b.ID
	})
	return out
}

// ProbeOutcome describes the state transition produced by one probe result.
type ProbeOutcome struct {
	Specialist     models.Specialist
	Previous       models.HealthState
	Current        models.HealthState
	BecameUnhealthy bool
}

// RecordProbe applies one probe result to the health state machine:
//
//	unknown   --M successes--> healthy
//	healthy   --1 failure----> degraded
//	degraded  --N failures---> unhealthy
//	unhealthy --1 success----> degraded
//	degraded  --M successes--> healthy
//
// Disabled entries ignore probes. The returned outcome tells the caller
// whether the entry just crossed into unhealthy so it can signal the
// lifecycle manager.
func (r *Registry) RecordProbe(id string, ok bool) (ProbeOutcome, error) {
	e, found := r.lookup(id)
	if !found {
		return ProbeOutcome{}, sentinel.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.sp.Health
	if prev == models.HealthDisabled {
		return ProbeOutcome{Specialist: snapshotLocked(e), Previous: prev, Current: prev}, nil
	}

	if ok {
		e.sp.ConsecutiveSuccesses++
		e.sp.ConsecutiveFailures = 0
	} else {
		e.sp.ConsecutiveFailures++
		e.sp.ConsecutiveSuccesses = 0
	}

	switch prev {
	// unknown stays unknown on failure; only successes move it
	case models.HealthUnknown:
		if ok && e.sp.ConsecutiveSuccesses >= r.healthyThreshold {
			e.sp.Health = models.HealthHealthy
		}
	case models.HealthHealthy:
		if !ok {
			e.sp.Health = models.HealthDegraded
		}
	case models.HealthDegraded:
		if ok && e.sp.ConsecutiveSuccesses >= r.healthyThreshold {
			e.sp.Health = models.HealthHealthy
		} else if !ok && e.sp.ConsecutiveFailures >= r.unhealthyThreshold {
			e.sp.Health = models.HealthUnhealthy
		}
	case models.HealthUnhealthy:
		if ok {
			e.sp.Health = models.HealthDegraded
		}
	}

	return ProbeOutcome{
		Specialist:      snapshotLocked(e),
		Previous:        prev,
		Current:         e.sp.Health,
		BecameUnhealthy: prev != models.HealthUnhealthy && e.sp.Health == models.HealthUnhealthy,
	}, nil
}

// IncLoad marks one in-flight call to the specialist.
func (r *Registry) IncLoad(id string) {
	if e, ok := r.lookup(id); ok {
		e.mu.Lock()
		e.sp.Load++
		e.mu.Unlock()
	}
}

// DecLoad marks one finished call to the specialist.
func (r *Registry) DecLoad(id string) {
	if e, ok := r.lookup(id); ok {
		e.mu.Lock()
		if e.sp.Load > 0 {
			e.sp.Load--
		}
		e.mu.Unlock()
	}
}

// VersionSignature builds the specialist-set identifier embedded in cache
// fingerprints: the sorted id@version pairs of the given specialists. Any
// version change produces a different signature, so stale cache entries
// simply stop matching.
func VersionSignature(specialists []models.Specialist) string {
	pairs := make([]string, 0, len(specialists))
	for _, sp := range specialists {
		pairs = append(pairs, sp.ID+"@"+sp.Version)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	return e, ok
}

func snapshotLocked(e *entry) models.Specialist {
	sp := e.sp
	sp.Domains = append([]models.DomainTag(nil), e.sp.Domains...)
	return sp
}
