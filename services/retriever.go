package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/vectorstore"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

// Embedder turns text into a similarity vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the subset of the vector store the pipeline needs.
type VectorIndex interface {
	Query(ctx context.Context, collection string, embedding []float32, k int) (*vectorstore.QueryResult, error)
	EnsureCollection(ctx context.Context, name string) error
	DeleteCollection(ctx context.Context, name string) error
	Add(ctx context.Context, collection string, ids []string, embeddings [][]float32, documents []string, metadatas []models.ChunkMetadata) error
}

// candidate is one (document, distance, metadata) triple prior to merging.
type candidate struct {
	ID       string
	Document string
	Distance float64
	Metadata models.ChunkMetadata
}

// Retriever embeds query variants and runs one similarity query per
// variant against the index, fanning out concurrently.
type Retriever struct {
	embedder   Embedder
	index      VectorIndex
	collection string
	queryK     int
	legacyK    int
}

func NewRetriever(cfg *config.Config, embedder Embedder, index VectorIndex) *Retriever {
	return &Retriever{
		embedder:   embedder,
		index:      index,
		collection: cfg.ChromaCollection,
		queryK:     cfg.QueryK,
		legacyK:    cfg.LegacyK,
	}
}

// RetrieveForVariants issues one k-NN query per variant concurrently and
// returns the per-variant candidate lists. Completion order does not
// matter; the merge step is order-independent. A missing collection is
// surfaced as vectorstore.ErrIndexUnavailable immediately and never
// retried here.
func (r *Retriever) RetrieveForVariants(ctx context.Context, variants []string) ([][]candidate, error) {
	type variantResult struct {
		candidates []candidate
		err        error
	}

	results := make([]variantResult, len(variants))
	var wg sync.WaitGroup

	for i, variant := range variants {
		wg.Add(1)
		go func(i int, variant string) {
			defer wg.Done()
			candidates, err := r.retrieveOne(ctx, variant, r.queryK)
			results[i] = variantResult{candidates: candidates, err: err}
		}(i, variant)
	}
	wg.Wait()

	perVariant := make([][]candidate, 0, len(variants))
	var lastErr error
	for i, res := range results {
		if res.err != nil {
			if errors.Is(res.err, vectorstore.ErrIndexUnavailable) {
				return nil, res.err
			}
			logger.Warn("Variant retrieval failed", "variant", variants[i], "error", res.err)
			lastErr = res.err
			continue
		}
		perVariant = append(perVariant, res.candidates)
	}

	if len(perVariant) == 0 && lastErr != nil {
		return nil, lastErr
	}

	return perVariant, nil
}

// Retrieve is the legacy single-query path kept for simple callers that
// do not expand the question.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]models.RetrievalResult, error) {
	candidates, err := r.retrieveOne(ctx, question, r.legacyK)
	if err != nil {
		return nil, err
	}

	results := make([]models.RetrievalResult, len(candidates))
	for i, c := range candidates {
		results[i] = toRetrievalResult(c)
	}
	return results, nil
}

func (r *Retriever) retrieveOne(ctx context.Context, query string, k int) ([]candidate, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	res, err := r.index.Query(ctx, r.collection, embedding, k)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(res.Documents))
	for i, doc := range res.Documents {
		c := candidate{Document: doc}
		if i < len(res.IDs) {
			c.ID = res.IDs[i]
		}
		if i < len(res.Distances) {
			c.Distance = res.Distances[i]
		}
		if i < len(res.Metadatas) {
			c.Metadata = res.Metadatas[i]
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// mergeKeyLen is the document-prefix length used to deduplicate hits
// across variants. The same underlying chunk can come back under
// different store-assigned ids from different variant queries, so content
// is the only reliable correlation key.
const mergeKeyLen = 200

// MergeResults deduplicates candidates across variant result sets,
// keeping the lowest-distance instance of each document, sorted ascending
// by distance and truncated to topN. Deterministic and order-independent
// in its inputs.
func MergeResults(perVariant [][]candidate, topN int) ([]models.RetrievalResult, []float64) {
	best := make(map[string]candidate)
	for _, candidates := range perVariant {
		for _, c := range candidates {
			key := mergeKey(c.Document)
			if existing, ok := best[key]; !ok || c.Distance < existing.Distance {
				best[key] = c
			}
		}
	}

	merged := make([]candidate, 0, len(best))
	for _, c := range best {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Distance != merged[j].Distance {
			return merged[i].Distance < merged[j].Distance
		}
		return mergeKey(merged[i].Document) < mergeKey(merged[j].Document)
	})

	if topN > 0 && len(merged) > topN {
		merged = merged[:topN]
	}

	results := make([]models.RetrievalResult, len(merged))
	distances := make([]float64, len(merged))
	for i, c := range merged {
		results[i] = toRetrievalResult(c)
		distances[i] = c.Distance
	}

	return results, distances
}

func mergeKey(document string) string {
	if len(document) > mergeKeyLen {
		return document[:mergeKeyLen]
	}
	return document
}

func toRetrievalResult(c candidate) models.RetrievalResult {
	similarity := 1 - c.Distance
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	return models.RetrievalResult{
		ID:         c.ID,
		Content:    c.Document,
		Metadata:   c.Metadata,
		Similarity: similarity,
	}
}
