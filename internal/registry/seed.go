package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"ninefold/internal/registry/models"
)

// DefaultSeed returns the built-in specialist roster, one per domain, with
// endpoints rooted at baseURL. Deployments with their own topology provide a
// seed file instead.
func DefaultSeed(baseURL string) []models.Registration {
	roster := []struct {
		id     string
		domain string
	}{
		{"rhys", "architecture"},
		{"ketheriel", "wisdom"},
		{"wraith", "security"},
		{"flux", "transformation"},
		{"kairos", "timing"},
		{"chalyth", "strategy"},
		{"seraphel", "communication"},
		{"vireon", "protection"},
		{"ake", "synthesis"},
	}

	regs := make([]models.Registration, 0, len(roster))
	for _, r := range roster {
		regs = append(regs, models.Registration{
			ID:       r.id,
			Name:     r.id,
			Endpoint: fmt.Sprintf("%s/%s", baseURL, r.id),
			Version:  "v1",
			Domains:  []models.DomainTag{{Domain: r.domain, Weight: 1.0}},
		})
	}
	return regs
}

// LoadSeedFile reads a JSON list of registrations.
func LoadSeedFile(path string) ([]models.Registration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var regs []models.Registration
	if err := json.Unmarshal(raw, &regs); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return regs, nil
}
