package services

import (
	"context"
	"strings"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
)

// Generator is the text-generation surface the scorer and validator need.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	SelfAssess(ctx context.Context, question, answer, contextText string) (float64, error)
}

// Phrases that move the heuristic answer-quality estimate. Kept short on
// purpose; they only matter when self-assessment is unavailable.
var highConfidencePhrases = []string{
	"according to",
	"the procedure is",
	"you must",
	"the sop states",
	"follow these steps",
	"as outlined",
}

var lowConfidencePhrases = []string{
	"i think",
	"i believe",
	"maybe",
	"possibly",
	"might be",
	"not sure",
	"unclear",
}

const insufficientInfoPhrase = "contain enough information"

// ConfidenceScorer blends retrieval-quality confidence with generated
// answer quality. Retrieval distance alone cannot detect a generation
// failure (the model ignoring good context) and LLM self-assessment alone
// is unreliable and gameable, so high combined confidence requires both
// signals to agree.
type ConfidenceScorer struct {
	generator       Generator
	retrievalWeight float64
	llmWeight       float64
	highThreshold   float64
	mediumThreshold float64
}

func NewConfidenceScorer(cfg *config.Config, generator Generator) *ConfidenceScorer {
	return &ConfidenceScorer{
		generator:       generator,
		retrievalWeight: cfg.RetrievalWeight,
		llmWeight:       cfg.LLMWeight,
		highThreshold:   cfg.HighConfidence,
		mediumThreshold: cfg.MediumConfidence,
	}
}

// Score computes the combined confidence for one answered question.
func (cs *ConfidenceScorer) Score(ctx context.Context, question, answer string, distances []float64, contextText string) float64 {
	retrieval := RetrievalConfidence(distances)
	llm := cs.llmConfidence(ctx, question, answer, contextText)
	return cs.Combine(retrieval, llm)
}

// RetrievalConfidence maps merged distances to [0,1]. Assumes
// cosine-style distances; see the config note on distance semantics.
func RetrievalConfidence(distances []float64) float64 {
	if len(distances) == 0 {
		return 0
	}

	sum := 0.0
	for _, d := range distances {
		sum += d
	}
	confidence := 1 - sum/float64(len(distances))

	return clamp01(confidence)
}

// Combine applies the configured weighting. Weights sum to 1, so the
// result is monotonic in both inputs and stays in [0,1].
func (cs *ConfidenceScorer) Combine(retrieval, llm float64) float64 {
	return clamp01(retrieval*cs.retrievalWeight + llm*cs.llmWeight)
}

// Level maps a combined confidence to the policy bands.
func (cs *ConfidenceScorer) Level(confidence float64) string {
	switch {
	case confidence >= cs.highThreshold:
		return "high"
	case confidence >= cs.mediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

func (cs *ConfidenceScorer) llmConfidence(ctx context.Context, question, answer, contextText string) float64 {
	score, err := cs.generator.SelfAssess(ctx, question, answer, contextText)
	if err == nil {
		return clamp01(score)
	}

	logger.Debug("Self-assessment unavailable, using heuristic confidence", "error", err)
	return HeuristicAnswerConfidence(answer)
}

// HeuristicAnswerConfidence estimates answer quality from textual signals
// alone. Used when the self-assessment round trip fails.
func HeuristicAnswerConfidence(answer string) float64 {
	lower := strings.ToLower(answer)

	if strings.Contains(lower, insufficientInfoPhrase) {
		// An explicit admission overrides every other signal.
		return 0.3
	}

	highCount := 0
	for _, phrase := range highConfidencePhrases {
		if strings.Contains(lower, phrase) {
			highCount++
		}
	}

	lowCount := 0
	for _, phrase := range lowConfidencePhrases {
		if strings.Contains(lower, phrase) {
			lowCount++
		}
	}

	confidence := 0.7
	if highCount >= 1 && lowCount == 0 {
		confidence = 0.85
	} else if lowCount > 0 {
		confidence -= 0.15 * float64(lowCount)
		if confidence < 0.2 {
			confidence = 0.2
		}
	}

	if len(answer) < 50 {
		confidence *= 0.9
	}

	return clamp01(confidence)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
