package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

// QuestionStore persists the curated predefined-question set produced by
// validation runs.
type QuestionStore struct {
	db *mongo.Database
}

func NewQuestionStore(db *mongo.Database) *QuestionStore {
	return &QuestionStore{db: db}
}

// StorePredefined upserts by normalized question text so re-running
// validation refreshes confidence instead of duplicating rows.
func (qs *QuestionStore) StorePredefined(ctx context.Context, q models.PredefinedQuestion) error {
	filter := bson.M{"question": normalizeQuestion(q.Question)}
	update := bson.M{"$set": bson.M{
		"question":     normalizeQuestion(q.Question),
		"source_file":  q.SourceFile,
		"category":     q.Category,
		"confidence":   q.Confidence,
		"is_preferred": q.IsPreferred,
		"created_at":   q.CreatedAt,
	}}

	_, err := qs.db.Collection("predefined_questions").UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store predefined question: %w", err)
	}
	return nil
}

// FindByText looks up a question by its normalized text. Returns
// (nil, nil) on no match.
func (qs *QuestionStore) FindByText(ctx context.Context, question string) (*models.PredefinedQuestion, error) {
	var q models.PredefinedQuestion
	err := qs.db.Collection("predefined_questions").
		FindOne(ctx, bson.M{"question": normalizeQuestion(question)}).
		Decode(&q)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up predefined question: %w", err)
	}
	return &q, nil
}

// ListBySource returns the curated questions for one source file.
func (qs *QuestionStore) ListBySource(ctx context.Context, sourceFile string) ([]models.PredefinedQuestion, error) {
	cursor, err := qs.db.Collection("predefined_questions").Find(ctx, bson.M{"source_file": sourceFile})
	if err != nil {
		return nil, fmt.Errorf("failed to list predefined questions: %w", err)
	}
	defer cursor.Close(ctx)

	var questions []models.PredefinedQuestion
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode predefined questions: %w", err)
	}
	return questions, nil
}

func normalizeQuestion(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}
