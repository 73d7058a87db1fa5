package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

const (
	maxValidatedQuestions = 8
	minValidatedQuestions = 5
	validatorUserID       = "question-validator"
)

// QuestionAnswerer is the answering surface the validator drives. In
// production it is the full pipeline; tests substitute a fake.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question, userID string) (*models.AnswerResult, error)
}

// QuestionValidator builds the curated question set for a source file:
// it proposes candidate questions, answers each through the real
// pipeline, and keeps only those the pipeline answers with high
// confidence. A question the system cannot answer well must never be
// suggested to users.
type QuestionValidator struct {
	answerer  QuestionAnswerer
	generator Generator
	store     *QuestionStore
	threshold float64
}

func NewQuestionValidator(cfg *config.Config, answerer QuestionAnswerer, generator Generator, store *QuestionStore) *QuestionValidator {
	return &QuestionValidator{
		answerer:  answerer,
		generator: generator,
		store:     store,
		threshold: cfg.ValidationThreshold,
	}
}

// ValidateForSource produces and persists validated questions for the
// entries of one source file. Returns the kept questions.
func (qv *QuestionValidator) ValidateForSource(ctx context.Context, sourceFile string, entries []models.SourceEntry) ([]models.PredefinedQuestion, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries for source file %s", sourceFile)
	}

	candidates := qv.structuralCandidates(entries, primaryTemplates)
	candidates = append(candidates, qv.aiCandidates(ctx, entries)...)

	kept := qv.validate(ctx, sourceFile, entries, candidates, nil)

	// When the first round comes up short, widen the structural
	// templates before giving up. Extra candidates cost pipeline calls,
	// so the second round only runs when needed.
	if len(kept) < minValidatedQuestions {
		extra := qv.structuralCandidates(entries, secondaryTemplates)
		kept = qv.validate(ctx, sourceFile, entries, extra, kept)
	}

	if qv.store != nil {
		for _, q := range kept {
			if err := qv.store.StorePredefined(ctx, q); err != nil {
				logger.Warn("Failed to store validated question", "question", q.Question, "error", err)
			}
		}
	}

	logger.Info("Question validation complete", "source", sourceFile, "kept", len(kept))
	return kept, nil
}

func (qv *QuestionValidator) validate(ctx context.Context, sourceFile string, entries []models.SourceEntry, candidates []string, kept []models.PredefinedQuestion) []models.PredefinedQuestion {
	seen := make(map[string]bool, len(kept))
	for _, q := range kept {
		seen[normalizeQuestion(q.Question)] = true
	}

	category := ""
	if len(entries) > 0 {
		category = entries[0].Category
	}

	for _, candidate := range candidates {
		if len(kept) >= maxValidatedQuestions {
			break
		}

		key := normalizeQuestion(candidate)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		result, err := qv.answerer.Answer(ctx, candidate, validatorUserID)
		if err != nil {
			logger.Debug("Candidate validation failed", "question", candidate, "error", err)
			continue
		}
		if result.Confidence < qv.threshold || !result.Grounded {
			continue
		}

		kept = append(kept, models.PredefinedQuestion{
			Question:    candidate,
			SourceFile:  sourceFile,
			Category:    category,
			Confidence:  result.Confidence,
			IsPreferred: true,
			CreatedAt:   time.Now(),
		})
	}

	return kept
}

var primaryTemplates = []string{
	"How do I %s?",
	"What is the procedure for %s?",
}

var secondaryTemplates = []string{
	"What are the steps to %s?",
	"Who is responsible for %s?",
	"When should I %s?",
}

// structuralCandidates derives questions mechanically from entry titles.
func (qv *QuestionValidator) structuralCandidates(entries []models.SourceEntry, templates []string) []string {
	var candidates []string
	for _, entry := range entries {
		subject := questionSubject(entry.Title)
		if subject == "" {
			continue
		}
		for _, tmpl := range templates {
			candidates = append(candidates, fmt.Sprintf(tmpl, subject))
		}
	}
	return candidates
}

// aiCandidates asks the generation model for questions a user would
// plausibly ask about the material. Model failure degrades to the
// structural candidates alone.
func (qv *QuestionValidator) aiCandidates(ctx context.Context, entries []models.SourceEntry) []string {
	var summary strings.Builder
	for i, entry := range entries {
		if i >= 10 {
			break
		}
		summary.WriteString("- ")
		summary.WriteString(entry.Title)
		summary.WriteString("\n")
	}

	prompt := fmt.Sprintf(`The following are task titles from a standard operating procedure document:
%s
Write 5 short questions an employee might ask about these procedures,
one question per line, with no numbering and no commentary.`, summary.String())

	response, err := qv.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Debug("AI question generation failed", "error", err)
		return nil
	}

	var candidates []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" || !strings.Contains(line, "?") {
			continue
		}
		candidates = append(candidates, line)
	}
	return candidates
}

// questionSubject lowercases a title for template insertion and drops
// titles too short to make a sensible question.
func questionSubject(title string) string {
	subject := strings.TrimSpace(strings.ToLower(title))
	if len(strings.Fields(subject)) < 2 {
		return ""
	}
	return strings.TrimSuffix(subject, ".")
}
