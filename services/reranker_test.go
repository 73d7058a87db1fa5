package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

func TestRerankTitleMatchBeatsContentMatch(t *testing.T) {
	rr := NewReranker(testConfig())

	results := []models.RetrievalResult{
		{
			ID:         "content-hit",
			Content:    "The invoice must be stamped before filing.",
			Metadata:   models.ChunkMetadata{Title: "Filing procedure"},
			Similarity: 0.70,
		},
		{
			ID:         "title-hit",
			Content:    "Stamp and file within two days.",
			Metadata:   models.ChunkMetadata{Title: "Invoice filing"},
			Similarity: 0.70,
		},
	}

	reranked := rr.Rerank("How do I file an invoice?", results)

	require.Len(t, reranked, 2)
	assert.Equal(t, "title-hit", reranked[0].ID)
	assert.Greater(t, reranked[0].Similarity, reranked[1].Similarity)
}

func TestRerankCapsSimilarityAtOne(t *testing.T) {
	rr := NewReranker(testConfig())

	results := []models.RetrievalResult{{
		ID:         "near-perfect",
		Content:    "invoice filing stamp",
		Metadata:   models.ChunkMetadata{Title: "invoice filing stamp"},
		Similarity: 0.99,
	}}

	reranked := rr.Rerank("invoice filing stamp", results)

	assert.Equal(t, 1.0, reranked[0].Similarity)
}

func TestRerankIgnoresShortTerms(t *testing.T) {
	rr := NewReranker(testConfig())

	results := []models.RetrievalResult{{
		ID:         "a",
		Content:    "do it to an on",
		Metadata:   models.ChunkMetadata{Title: "do it"},
		Similarity: 0.5,
	}}

	reranked := rr.Rerank("do it to an on", results)

	assert.Equal(t, 0.5, reranked[0].Similarity)
}

func TestRerankDoesNotMutateInput(t *testing.T) {
	rr := NewReranker(testConfig())

	results := []models.RetrievalResult{{
		ID:         "a",
		Content:    "escalation path details",
		Metadata:   models.ChunkMetadata{Title: "Escalation"},
		Similarity: 0.5,
	}}

	_ = rr.Rerank("escalation", results)

	assert.Equal(t, 0.5, results[0].Similarity)
}
