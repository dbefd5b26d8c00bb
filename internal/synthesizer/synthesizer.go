// Package synthesizer merges specialist responses into a single answer with
// a derived, bounded confidence score.
package synthesizer

import (
	"fmt"
	"strings"

	"ninefold/internal/router"
	"ninefold/internal/specialist"
	dErrors "ninefold/pkg/domain-errors"
)

// defaultCertainty stands in when a specialist reports no certainty of its own.
const defaultCertainty = 0.7

// Config bounds the confidence score and caps the drop penalty.
type Config struct {
	FloorConfidence float64
	CeilConfidence  float64
	MaxDropPenalty  float64
}

// Result is the merged answer plus structured attribution metadata.
type Result struct {
	Text         string   `json:"text"`
	Confidence   float64  `json:"confidence"`
	Contributors []string `json:"contributors"`
	Dropped      []string `json:"dropped,omitempty"`
	Degraded     bool     `json:"degraded"`
	Fingerprint  string   `json:"fingerprint,omitempty"`
}

// Synthesizer derives one answer from a dispatch result.
type Synthesizer struct {
	cfg Config
}

func New(cfg Config) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Synthesize merges the responses of a dispatch into one Result.
//
// A single successful response passes through with its own certainty. With
// several, the merged text attributes each section to its specialist and the
// confidence starts from the strongest contributor's certainty plus an
// agreement bonus that grows with contributor count. Every dropped call
// subtracts a penalty proportional to its planned weight, so losing a planned
// specialist can never raise confidence. The final score is clamped to the
// configured bounds.
func (s *Synthesizer) Synthesize(dispatch router.DispatchResult) (Result, error) {
	if len(dispatch.Responses) == 0 {
		return Result{}, dErrors.New(dErrors.CodeInternal, "nothing to synthesize")
	}

	result := Result{
		Contributors: make([]string, 0, len(dispatch.Responses)),
		Degraded:     dispatch.Degraded(),
	}
	for _, resp := range dispatch.Responses {
		result.Contributors = append(result.Contributors, resp.SpecialistID)
	}
	for _, d := range dispatch.Dropped {
		result.Dropped = append(result.Dropped, d.SpecialistID)
	}

	if len(dispatch.Responses) == 1 {
		only := dispatch.Responses[0]
		result.Text = only.Text
		result.Confidence = s.clamp(certainty(only) - s.dropPenalty(dispatch))
		return result, nil
	}

	result.Text = mergeText(dispatch.Responses)
	result.Confidence = s.clamp(s.combined(dispatch.Responses) - s.dropPenalty(dispatch))
	return result, nil
}

// combined is the pre-penalty score for a multi-specialist answer: the
// strongest contributor's certainty plus an agreement bonus. Using the max
// rather than the mean keeps the score non-decreasing when another agreeing
// specialist joins an otherwise identical plan.
func (s *Synthesizer) combined(responses []specialist.Response) float64 {
	var max float64
	for _, resp := range responses {
		if c := certainty(resp); c > max {
			max = c
		}
	}
	return max + s.agreementBonus(len(responses))
}

// agreementBonus steps through the confidence band by contributor count:
// one voice earns nothing, two earn half the band, three or more the full
// band (before clamping).
func (s *Synthesizer) agreementBonus(contributors int) float64 {
	band := s.cfg.CeilConfidence - s.cfg.FloorConfidence
	switch {
	case contributors >= 3:
		return band
	case contributors == 2:
		return band / 2
	default:
		return 0
	}
}

// dropPenalty scales MaxDropPenalty by the share of planned weight that was
// dropped. A fully delivered plan pays nothing.
func (s *Synthesizer) dropPenalty(dispatch router.DispatchResult) float64 {
	if len(dispatch.Dropped) == 0 {
		return 0
	}
	planned := dispatch.Analysis.Plan.TotalWeight()
	if planned <= 0 {
		return s.cfg.MaxDropPenalty
	}
	var droppedWeight float64
	for _, d := range dispatch.Dropped {
		droppedWeight += d.Weight
	}
	return s.cfg.MaxDropPenalty * droppedWeight / planned
}

func (s *Synthesizer) clamp(score float64) float64 {
	if score < s.cfg.FloorConfidence {
		return s.cfg.FloorConfidence
	}
	if score > s.cfg.CeilConfidence {
		return s.cfg.CeilConfidence
	}
	return score
}

func certainty(resp specialist.Response) float64 {
	if !resp.CertaintyReported {
		return defaultCertainty
	}
	return resp.Certainty
}

func mergeText(responses []specialist.Response) string {
	var b strings.Builder
	for i, resp := range responses {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s", resp.SpecialistID, resp.Text)
	}
	return b.String()
}
