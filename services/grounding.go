package services

import (
	"regexp"
	"strings"
)

// Hedging language is a strong tell that the model is filling gaps from
// its own priors instead of the supplied excerpts.
var hedgingPhrases = []string{
	"typically",
	"usually",
	"in general",
	"generally",
	"most companies",
	"it is common",
	"commonly",
	"best practice",
	"as a rule",
}

var generalizingPhrases = []string{
	"in most cases",
	"standard practice",
	"industry standard",
	"often",
	"may vary",
}

var citationPhrases = []string{
	"according to the sop",
	"the sop states",
	"as per the procedure",
	"the procedure states",
	"as outlined in",
}

var declinePhrases = []string{
	"contain enough information",
	"don't have enough information",
	"do not have enough information",
	"cannot answer",
	"no relevant",
}

// Numbers of four or more digits in an answer (ticket ids, amounts,
// thresholds) must appear somewhere in the retrieved context or they are
// likely hallucinated.
var longNumberPattern = regexp.MustCompile(`\b\d{4,}\b`)

// GroundingResult carries the outcome of one grounding inspection.
type GroundingResult struct {
	Grounded   bool
	Confidence float64
	Warnings   []string
}

// GroundingChecker inspects a generated answer for signs it drew on
// knowledge outside the retrieved excerpts. It is heuristic and textual;
// it catches the common failure shapes, not every hallucination.
type GroundingChecker struct{}

func NewGroundingChecker() *GroundingChecker {
	return &GroundingChecker{}
}

// Check evaluates an answer against the context it was generated from and
// returns an adjusted confidence alongside any warnings.
func (gc *GroundingChecker) Check(answer, contextText string, confidence float64) GroundingResult {
	lowerAnswer := strings.ToLower(answer)
	lowerContext := strings.ToLower(contextText)

	var warnings []string

	// A phrase that also appears in the excerpts is the source's own
	// wording, not the model filling gaps; only unsourced ones count.
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lowerAnswer, phrase) && !strings.Contains(lowerContext, phrase) {
			warnings = append(warnings, "hedging language: \""+phrase+"\"")
			confidence -= 0.1
			break
		}
	}

	for _, phrase := range generalizingPhrases {
		if strings.Contains(lowerAnswer, phrase) && !strings.Contains(lowerContext, phrase) {
			warnings = append(warnings, "generalizing language: \""+phrase+"\"")
			confidence -= 0.1
			break
		}
	}

	for _, number := range longNumberPattern.FindAllString(answer, -1) {
		if !strings.Contains(contextText, number) {
			warnings = append(warnings, "number not found in source material: "+number)
			confidence -= 0.15
			break
		}
	}

	for _, phrase := range citationPhrases {
		if strings.Contains(lowerAnswer, phrase) {
			// Explicit citation of the source is the positive signal.
			confidence += 0.05
			break
		}
	}

	confidence = clamp01(confidence)

	return GroundingResult{
		Grounded:   len(warnings) < 2 && confidence > 0.5,
		Confidence: confidence,
		Warnings:   warnings,
	}
}

// IsProperDecline reports whether the answer is an honest refusal rather
// than a fabricated response. Declines are not grounding failures; they
// are the desired behavior when retrieval comes back thin.
func (gc *GroundingChecker) IsProperDecline(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range declinePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
