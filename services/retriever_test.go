package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/vectorstore"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubIndex struct {
	result   *vectorstore.QueryResult
	queryErr error

	added         int
	deleteCalled  bool
	ensureCalled  bool
	addCollection string
}

func (s *stubIndex) Query(ctx context.Context, collection string, embedding []float32, k int) (*vectorstore.QueryResult, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.result, nil
}

func (s *stubIndex) EnsureCollection(ctx context.Context, name string) error {
	s.ensureCalled = true
	return nil
}

func (s *stubIndex) DeleteCollection(ctx context.Context, name string) error {
	s.deleteCalled = true
	return nil
}

func (s *stubIndex) Add(ctx context.Context, collection string, ids []string, embeddings [][]float32, documents []string, metadatas []models.ChunkMetadata) error {
	s.added = len(ids)
	s.addCollection = collection
	return nil
}

func TestRetrieveForVariantsPropagatesMissingIndex(t *testing.T) {
	r := NewRetriever(testConfig(), &stubEmbedder{}, &stubIndex{queryErr: vectorstore.ErrIndexUnavailable})

	_, err := r.RetrieveForVariants(context.Background(), []string{"a", "b"})

	assert.ErrorIs(t, err, vectorstore.ErrIndexUnavailable)
}

func TestRetrieveForVariantsQueriesEachVariant(t *testing.T) {
	index := &stubIndex{result: &vectorstore.QueryResult{
		IDs:       []string{"id-1"},
		Documents: []string{"Reset a password\n\nOpen the console."},
		Distances: []float64{0.25},
		Metadatas: []models.ChunkMetadata{{Title: "Reset a password"}},
	}}
	r := NewRetriever(testConfig(), &stubEmbedder{}, index)

	perVariant, err := r.RetrieveForVariants(context.Background(), []string{"q1", "q2", "q3"})

	require.NoError(t, err)
	require.Len(t, perVariant, 3)
	for _, candidates := range perVariant {
		require.Len(t, candidates, 1)
		assert.Equal(t, 0.25, candidates[0].Distance)
	}
}

func TestMergeResultsDeduplicatesByPrefixKeepingMinDistance(t *testing.T) {
	doc := "Shared chunk content for deduplication"
	perVariant := [][]candidate{
		{{ID: "a", Document: doc, Distance: 0.4}},
		{{ID: "b", Document: doc, Distance: 0.2}},
		{{ID: "c", Document: "Another chunk entirely", Distance: 0.3}},
	}

	results, distances := MergeResults(perVariant, 5)

	require.Len(t, results, 2)
	// Sorted ascending by distance: the deduplicated shared chunk wins.
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, []float64{0.2, 0.3}, distances)
	assert.InDelta(t, 0.8, results[0].Similarity, 1e-9)
}

func TestMergeResultsPrefixKeyIgnoresTailDifferences(t *testing.T) {
	prefix := strings.Repeat("x", mergeKeyLen)
	perVariant := [][]candidate{
		{{ID: "a", Document: prefix + " tail one", Distance: 0.5}},
		{{ID: "b", Document: prefix + " different tail", Distance: 0.1}},
	}

	results, _ := MergeResults(perVariant, 5)

	// Same 200-char prefix means same logical chunk.
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestMergeResultsTruncatesToTopN(t *testing.T) {
	var perVariant [][]candidate
	for i := 0; i < 10; i++ {
		perVariant = append(perVariant, []candidate{{
			ID:       string(rune('a' + i)),
			Document: strings.Repeat(string(rune('a'+i)), 10),
			Distance: float64(i) / 10,
		}})
	}

	results, distances := MergeResults(perVariant, 3)

	require.Len(t, results, 3)
	assert.Equal(t, []float64{0, 0.1, 0.2}, distances)
}

func TestMergeResultsDeterministicOnTies(t *testing.T) {
	perVariant := [][]candidate{
		{{ID: "z", Document: "zzz doc", Distance: 0.3}},
		{{ID: "a", Document: "aaa doc", Distance: 0.3}},
	}

	first, _ := MergeResults(perVariant, 5)
	second, _ := MergeResults([][]candidate{perVariant[1], perVariant[0]}, 5)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "a", first[0].ID)
}

func TestMergeResultsClampsSimilarity(t *testing.T) {
	perVariant := [][]candidate{
		{{ID: "far", Document: "very distant chunk", Distance: 1.7}},
	}

	results, _ := MergeResults(perVariant, 5)

	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Similarity)
}
