package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ninefold/pkg/domain-errors"
)

func TestClassifyDeterministic(t *testing.T) {
	c := New()
	query := "how do we design a secure database architecture for the migration"

	first, err := c.Classify(query)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	for range 10 {
		again, err := c.Classify(query)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestClassifyMatchesExpectedDomains(t *testing.T) {
	c := New()

	got, err := c.Classify("Review the system architecture and check for security vulnerability risk")
	require.NoError(t, err)

	domains := make(map[string]float64)
	for _, dw := range got {
		domains[dw.Domain] = dw.Weight
	}
	assert.Contains(t, domains, "architecture")
	assert.Contains(t, domains, "security")
	// security matches three keywords, architecture two
	assert.Greater(t, domains["security"], domains["architecture"])
}

func TestClassifyOrderedByWeightThenName(t *testing.T) {
	table := NewTable(map[string][]Association{
		"alpha": {{Domain: "strategy", Weight: 0.3}, {Domain: "timing", Weight: 0.3}},
	})
	c := New(WithTable(table))

	got, err := c.Classify("alpha")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// equal weights: name order decides
	assert.Equal(t, "strategy", got[0].Domain)
	assert.Equal(t, "timing", got[1].Domain)
}

func TestClassifyFallbackWhenNothingQualifies(t *testing.T) {
	c := New(WithFallbackDomain("wisdom"))

	got, err := c.Classify("qwertyuiop zxcvbnm")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wisdom", got[0].Domain)
	assert.InDelta(t, 0.25, got[0].Weight, 1e-9)
}

func TestClassifyRepeatedKeywordCountsOnce(t *testing.T) {
	c := New()

	single, err := c.Classify("architecture")
	require.NoError(t, err)
	stuffed, err := c.Classify("architecture architecture architecture")
	require.NoError(t, err)

	assert.Equal(t, single, stuffed)
}

func TestClassifyInvalidInput(t *testing.T) {
	c := New(WithMaxQueryLen(64))

	_, err := c.Classify("   ")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidQuery))

	_, err = c.Classify(strings.Repeat("architecture ", 20))
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidQuery))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "how do we scale", Normalize("  How   do\twe SCALE  "))
}
