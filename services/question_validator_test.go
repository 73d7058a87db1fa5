package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

var errGenDown = errors.New("generation backend down")

// scriptedAnswerer returns a high-confidence result for questions
// containing any of the accept substrings and a weak one otherwise.
type scriptedAnswerer struct {
	accept []string
	asked  []string
}

func (s *scriptedAnswerer) Answer(ctx context.Context, question, userID string) (*models.AnswerResult, error) {
	s.asked = append(s.asked, question)
	for _, substr := range s.accept {
		if strings.Contains(strings.ToLower(question), substr) {
			return &models.AnswerResult{Confidence: 0.9, Grounded: true}, nil
		}
	}
	return &models.AnswerResult{Confidence: 0.2, Grounded: false}, nil
}

func validatorEntries() []models.SourceEntry {
	return []models.SourceEntry{
		{Title: "File an invoice", Category: "finance", SourceFile: "finance.xlsx"},
		{Title: "Process a refund", Category: "finance", SourceFile: "finance.xlsx"},
	}
}

func TestValidateForSourceKeepsOnlyConfidentQuestions(t *testing.T) {
	answerer := &scriptedAnswerer{accept: []string{"invoice"}}
	qv := NewQuestionValidator(testConfig(), answerer, &stubGenerator{genErr: errGenDown}, nil)

	kept, err := qv.ValidateForSource(context.Background(), "finance.xlsx", validatorEntries())

	require.NoError(t, err)
	require.NotEmpty(t, kept)
	for _, q := range kept {
		assert.Contains(t, strings.ToLower(q.Question), "invoice")
		assert.GreaterOrEqual(t, q.Confidence, 0.8)
		assert.True(t, q.IsPreferred)
		assert.Equal(t, "finance.xlsx", q.SourceFile)
		assert.Equal(t, "finance", q.Category)
	}
}

func TestValidateForSourceStopsAtCap(t *testing.T) {
	answerer := &scriptedAnswerer{accept: []string{""}}
	gen := &stubGenerator{answer: strings.Join([]string{
		"What happens if an invoice is rejected?",
		"Who approves large refunds?",
		"How long does a refund take?",
		"Where are filed invoices stored?",
		"When is the filing deadline?",
	}, "\n")}
	qv := NewQuestionValidator(testConfig(), answerer, gen, nil)

	kept, err := qv.ValidateForSource(context.Background(), "finance.xlsx", validatorEntries())

	require.NoError(t, err)
	assert.Len(t, kept, maxValidatedQuestions)
}

func TestValidateForSourceRunsSecondRoundWhenShort(t *testing.T) {
	// Only the secondary "who is responsible" template can pass, so the
	// first round comes up empty and the widening round must run.
	answerer := &scriptedAnswerer{accept: []string{"responsible"}}
	qv := NewQuestionValidator(testConfig(), answerer, &stubGenerator{genErr: errGenDown}, nil)

	kept, err := qv.ValidateForSource(context.Background(), "finance.xlsx", validatorEntries())

	require.NoError(t, err)
	require.NotEmpty(t, kept)
	for _, q := range kept {
		assert.Contains(t, strings.ToLower(q.Question), "responsible")
	}
}

func TestValidateForSourceDeduplicatesCandidates(t *testing.T) {
	answerer := &scriptedAnswerer{accept: []string{""}}
	gen := &stubGenerator{answer: "How do I file an invoice?\nHow do I file an invoice?"}
	qv := NewQuestionValidator(testConfig(), answerer, gen, nil)

	_, err := qv.ValidateForSource(context.Background(), "finance.xlsx", validatorEntries())

	require.NoError(t, err)
	seen := make(map[string]int)
	for _, q := range answerer.asked {
		seen[strings.ToLower(q)]++
	}
	for q, n := range seen {
		assert.Equal(t, 1, n, "candidate %q validated more than once", q)
	}
}

func TestValidateForSourceRejectsEmptyEntries(t *testing.T) {
	qv := NewQuestionValidator(testConfig(), &scriptedAnswerer{}, &stubGenerator{}, nil)

	_, err := qv.ValidateForSource(context.Background(), "finance.xlsx", nil)

	assert.Error(t, err)
}
