// Package classifier maps free-text queries to weighted domain tags using a
// configurable keyword association table. Classification is deterministic:
// identical text and table always yield identical results. It has no side
// effects and holds no mutable state.
package classifier

import (
	"sort"
	"strings"
	"unicode"

	dErrors "ninefold/pkg/domain-errors"
)

// DomainWeight is one classified domain with its accumulated weight.
type DomainWeight struct {
	Domain string  `json:"domain"`
	Weight float64 `json:"weight"`
}

// Classifier scores query text against a keyword table.
type Classifier struct {
	table              *Table
	maxQueryLen        int
	inclusionThreshold float64
	fallbackDomain     string
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithTable replaces the default association table.
func WithTable(t *Table) Option {
	return func(c *Classifier) { c.table = t }
}

// WithMaxQueryLen overrides the maximum accepted query length in bytes.
func WithMaxQueryLen(n int) Option {
	return func(c *Classifier) { c.maxQueryLen = n }
}

// WithInclusionThreshold overrides the minimum weight a domain needs to be
// included in the result.
func WithInclusionThreshold(t float64) Option {
	return func(c *Classifier) { c.inclusionThreshold = t }
}

// WithFallbackDomain overrides the domain returned when nothing qualifies.
func WithFallbackDomain(d string) Option {
	return func(c *Classifier) { c.fallbackDomain = d }
}

// New builds a Classifier with the default table and thresholds.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		table:              DefaultTable(),
		maxQueryLen:        8192,
		inclusionThreshold: 0.25,
		fallbackDomain:     "architecture",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize lowercases text and collapses runs of whitespace. The same
// normalization feeds both classification and cache fingerprinting so a
// query's cache key and its routing agree.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Classify returns the weighted domains matched by text, highest weight
// first, ties broken by domain name. Domains below the inclusion threshold
// are dropped; when nothing qualifies the configured fallback domain is
// returned at exactly the threshold weight.
func (c *Classifier) Classify(text string) ([]DomainWeight, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return nil, dErrors.New(dErrors.CodeInvalidQuery, "query text is empty")
	}
	if len(text) > c.maxQueryLen {
		return nil, dErrors.New(dErrors.CodeInvalidQuery, "query text exceeds maximum length")
	}

	weights := make(map[string]float64)
	for _, token := range tokenize(normalized) {
		for _, assoc := range c.table.associations[token] {
			weights[assoc.Domain] += assoc.Weight
		}
	}

	result := make([]DomainWeight, 0, len(weights))
	for domain, weight := range weights {
		if weight >= c.inclusionThreshold {
			result = append(result, DomainWeight{Domain: domain, Weight: weight})
		}
	}

	if len(result) == 0 {
		return []DomainWeight{{Domain: c.fallbackDomain, Weight: c.inclusionThreshold}}, nil
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Weight != result[j].Weight {
			return result[i].Weight > result[j].Weight
		}
		return result[i].Domain < result[j].Domain
	})
	return result, nil
}

// tokenize splits normalized text into distinct lowercase word tokens.
// Each distinct token counts once no matter how often it repeats, so
// keyword-stuffed queries do not inflate their own weights.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}
