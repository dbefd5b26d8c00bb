// Package models defines the specialist data model shared by the registry,
// the router and the gateway. Router and handlers only ever see snapshot
// copies; the live entries are owned exclusively by the registry.
package models

import "time"

// HealthState is the probe-driven state of a specialist.
type HealthState string

const (
	HealthUnknown   HealthState = "unknown"
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
	HealthDisabled  HealthState = "disabled"
)

// DispatchEligible reports whether a specialist in this state may receive
// query traffic. Only healthy and degraded specialists are eligible.
func (s HealthState) DispatchEligible() bool {
	return s == HealthHealthy || s == HealthDegraded
}

// Rank orders states for dispatch preference: healthy before degraded.
// Ineligible states sort last.
func (s HealthState) Rank() int {
	switch s {
	case HealthHealthy:
		return 0
	case HealthDegraded:
		return 1
	case HealthUnknown:
		return 2
	case HealthUnhealthy:
		return 3
	default:
		return 4
	}
}

// DomainTag declares a specialist's competence in a domain with a weight
// used for ordering among peers.
type DomainTag struct {
	Domain string  `json:"domain"`
	Weight float64 `json:"weight"`
}

// Specialist is a snapshot of one registered specialist. Values are copies;
// mutating a snapshot has no effect on the registry.
type Specialist struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Endpoint string      `json:"endpoint"`
	Version  string      `json:"version"`
	Domains  []DomainTag `json:"domains"`
	Health   HealthState `json:"health"`
	Load     int64       `json:"load"`

	ConsecutiveSuccesses int       `json:"-"`
	ConsecutiveFailures  int       `json:"-"`
	LastProbe            time.Time `json:"-"`
}

// DomainWeight returns the declared weight for a domain, or zero when the
// specialist does not serve it.
func (s Specialist) DomainWeight(domain string) float64 {
	for _, tag := range s.Domains {
		if tag.Domain == domain {
			return tag.Weight
		}
	}
	return 0
}

// Registration is the external registration payload for a specialist.
// Re-registering an existing id replaces its endpoint, domains and version
// and resets health to unknown.
type Registration struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Endpoint string      `json:"endpoint"`
	Version  string      `json:"version"`
	Domains  []DomainTag `json:"domains"`
}
