package router

import (
	"fmt"
	"strings"
	"time"

	"ninefold/internal/classifier"
	"ninefold/internal/registry/models"
	dErrors "ninefold/pkg/domain-errors"
)

// PlannedCall is one specialist selected for a query, tagged with the
// classified domain and weight that earned it the slot. The weight is kept
// even if the call later fails, so drop penalties reflect what was planned.
type PlannedCall struct {
	SpecialistID string  `json:"specialist_id"`
	Domain       string  `json:"domain"`
	Weight       float64 `json:"weight"`
}

// Omission records a classified domain that could not be served.
type Omission struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

// Plan is the ordered set of specialists selected to answer a query.
type Plan struct {
	Calls             []PlannedCall `json:"calls"`
	Omitted           []Omission    `json:"omitted,omitempty"`
	SynthesisRequired bool          `json:"synthesis_required"`
	UsedFallback      bool          `json:"used_fallback"`
	Reasoning         string        `json:"reasoning"`
	EstimatedLatency  time.Duration `json:"-"`
}

// TotalWeight sums the planned weights of all calls.
func (p Plan) TotalWeight() float64 {
	var total float64
	for _, c := range p.Calls {
		total += c.Weight
	}
	return total
}

// SpecialistIDs returns the planned specialist ids in order.
func (p Plan) SpecialistIDs() []string {
	ids := make([]string, len(p.Calls))
	for i, c := range p.Calls {
		ids[i] = c.SpecialistID
	}
	return ids
}

// eligibility is the registry view the planner needs.
type eligibility interface {
	EligibleForDomain(domain string) []models.Specialist
	Get(id string) (models.Specialist, error)
}

// buildPlan turns classified domains into a dispatch plan.
//
// Decision rule: when the top domain's weight reaches dominanceRatio times
// the runner-up's, one specialist suffices and no synthesis happens.
// Otherwise the best eligible specialist of each of the top maxSpecialists
// domains is planned and synthesis merges their answers. Domains with no
// eligible specialist are dropped with a recorded omission; a plan that ends
// up empty falls back to the configured generalist or fails.
func buildPlan(
	reg eligibility,
	domains []classifier.DomainWeight,
	maxSpecialists int,
	dominanceRatio float64,
	fallbackSpecialist string,
) (Plan, error) {
	selected := domains
	dominant := len(domains) == 1 ||
		(len(domains) > 1 && dominanceRatio > 0 && domains[0].Weight >= dominanceRatio*domains[1].Weight)
	if dominant {
		selected = domains[:1]
	} else if len(selected) > maxSpecialists {
		selected = selected[:maxSpecialists]
	}

	var plan Plan
	seen := make(map[string]bool)
	for _, dw := range selected {
		eligible := reg.EligibleForDomain(dw.Domain)
		if len(eligible) == 0 {
			plan.Omitted = append(plan.Omitted, Omission{
				Domain: dw.Domain,
				Reason: "no eligible specialist",
			})
			continue
		}
		best := eligible[0]
		if seen[best.ID] {
			continue
		}
		seen[best.ID] = true
		plan.Calls = append(plan.Calls, PlannedCall{
			SpecialistID: best.ID,
			Domain:       dw.Domain,
			Weight:       dw.Weight,
		})
	}

	if len(plan.Calls) == 0 {
		// generalist fallback: used even when it declares none of the
		// classified domains, as long as it is dispatch-eligible
		if fallbackSpecialist != "" {
			if sp, err := reg.Get(fallbackSpecialist); err == nil && sp.Health.DispatchEligible() {
				plan.Calls = append(plan.Calls, PlannedCall{
					SpecialistID: sp.ID,
					Domain:       domains[0].Domain,
					Weight:       domains[0].Weight,
				})
				plan.UsedFallback = true
			}
		}
		if len(plan.Calls) == 0 {
			return Plan{}, dErrors.New(dErrors.CodeSpecialistUnavailable,
				"no eligible specialist for any classified domain")
		}
	}

	plan.SynthesisRequired = len(plan.Calls) > 1
	plan.Reasoning = reasoning(plan, dominant)
	plan.EstimatedLatency = estimateLatency(plan)
	return plan, nil
}

func reasoning(plan Plan, dominant bool) string {
	switch {
	case plan.UsedFallback:
		return fmt.Sprintf("fallback specialist %s handles the query; no domain-matched specialist was available", plan.Calls[0].SpecialistID)
	case len(plan.Calls) == 1 && dominant:
		return fmt.Sprintf("single specialist %s suffices for dominant domain %s", plan.Calls[0].SpecialistID, plan.Calls[0].Domain)
	case len(plan.Calls) == 1:
		return fmt.Sprintf("single specialist %s covers the only servable domain %s", plan.Calls[0].SpecialistID, plan.Calls[0].Domain)
	default:
		return fmt.Sprintf("multi-specialist consultation: %s; responses will be synthesized", strings.Join(plan.SpecialistIDs(), ", "))
	}
}

// estimateLatency mirrors the rough serving model used by the analyze
// endpoint: a fixed base, per-specialist overhead, and a synthesis surcharge.
func estimateLatency(plan Plan) time.Duration {
	estimate := 100 * time.Millisecond
	estimate += time.Duration(len(plan.Calls)) * 50 * time.Millisecond
	if plan.SynthesisRequired {
		estimate += 200 * time.Millisecond
	}
	return estimate
}
