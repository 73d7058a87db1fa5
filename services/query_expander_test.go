package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandAlwaysKeepsOriginalFirst(t *testing.T) {
	qe := NewQueryExpander(testConfig())

	variants := qe.Expand("How do I upload an invoice?")

	require.NotEmpty(t, variants)
	assert.Equal(t, "How do I upload an invoice?", variants[0])
}

func TestExpandSubstitutesSynonyms(t *testing.T) {
	qe := NewQueryExpander(testConfig())

	variants := qe.Expand("How do I upload an invoice?")

	joined := strings.Join(variants, "|")
	assert.Contains(t, joined, "submit")
	assert.Contains(t, joined, "bill")
}

func TestExpandCapsVariantCount(t *testing.T) {
	qe := NewQueryExpander(testConfig())

	// Touches several synonym entries at once; without the cap this
	// would produce far more than five variants.
	variants := qe.Expand("How do I create, update, delete and upload an invoice in the tracker?")

	assert.LessOrEqual(t, len(variants), 5)
}

func TestExpandNoMatchesReturnsOnlyOriginal(t *testing.T) {
	qe := NewQueryExpander(testConfig())

	variants := qe.Expand("What color is the office carpet?")

	assert.Equal(t, []string{"What color is the office carpet?"}, variants)
}

func TestExpandDeduplicatesCaseInsensitively(t *testing.T) {
	qe := NewQueryExpander(testConfig())

	variants := qe.Expand("login Login")

	seen := make(map[string]bool)
	for _, v := range variants {
		key := strings.ToLower(v)
		assert.False(t, seen[key], "duplicate variant %q", v)
		seen[key] = true
	}
}
