package services

import (
	"sort"
	"strings"
	"unicode"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

// Reranker applies a keyword-boost heuristic on top of vector similarity.
// Embedding similarity often ranks a verbose, loosely-related passage
// above a short one whose title is an exact lexical match for the
// question's subject; boosting title hits corrects that systematically.
type Reranker struct {
	titleBoost   float64
	contentBoost float64
}

func NewReranker(cfg *config.Config) *Reranker {
	return &Reranker{
		titleBoost:   cfg.TitleBoost,
		contentBoost: cfg.ContentBoost,
	}
}

// Rerank reorders results by boosted similarity, descending. The boost
// never lowers a similarity and the result is capped at 1.0. Ties keep
// input order.
func (rr *Reranker) Rerank(question string, results []models.RetrievalResult) []models.RetrievalResult {
	terms := queryTerms(question)

	reranked := make([]models.RetrievalResult, len(results))
	copy(reranked, results)

	for i := range reranked {
		title := strings.ToLower(reranked[i].Metadata.Title)
		content := strings.ToLower(reranked[i].Content)

		boost := 0.0
		for _, term := range terms {
			if strings.Contains(title, term) {
				boost += rr.titleBoost
			} else if strings.Contains(content, term) {
				// Body hits only count for terms not already found in
				// the title.
				boost += rr.contentBoost
			}
		}

		similarity := reranked[i].Similarity + boost
		if similarity > 1.0 {
			similarity = 1.0
		}
		reranked[i].Similarity = similarity
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Similarity > reranked[j].Similarity
	})

	return reranked
}

// queryTerms tokenizes the question into lowercase terms longer than two
// characters. Short tokens boost everything and nothing.
func queryTerms(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
