package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

// AuditService persists the review trail: low-confidence questions,
// the rolling answered-question log, and per-file index bookkeeping.
type AuditService struct {
	db *mongo.Database
}

func NewAuditService(db *mongo.Database) *AuditService {
	return &AuditService{db: db}
}

func (a *AuditService) RecordPending(ctx context.Context, q models.PendingQuestion) error {
	_, err := a.db.Collection("pending_questions").InsertOne(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to record pending question: %w", err)
	}
	return nil
}

func (a *AuditService) RecordRecent(ctx context.Context, q models.RecentQuestion) error {
	_, err := a.db.Collection("recent_questions").InsertOne(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to record recent question: %w", err)
	}
	return nil
}

// RecordIndexedFile upserts on source file so repeated rebuilds keep one
// row per document.
func (a *AuditService) RecordIndexedFile(ctx context.Context, f models.IndexedFile) error {
	filter := bson.M{"source_file": f.SourceFile}
	update := bson.M{"$set": bson.M{
		"category":    f.Category,
		"chunk_count": f.ChunkCount,
		"text":        f.Text,
		"compression": f.Compression,
		"indexed_at":  f.IndexedAt,
	}}

	_, err := a.db.Collection("indexed_files").UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to record indexed file: %w", err)
	}
	return nil
}

// ListPending returns open review items, newest first.
func (a *AuditService) ListPending(ctx context.Context, limit int64) ([]models.PendingQuestion, error) {
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cursor, err := a.db.Collection("pending_questions").Find(ctx, bson.M{"status": "pending"}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending questions: %w", err)
	}
	defer cursor.Close(ctx)

	var questions []models.PendingQuestion
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode pending questions: %w", err)
	}
	return questions, nil
}

// RecentQuestions returns the latest answered questions for a user, or
// for everyone when userID is empty.
func (a *AuditService) RecentQuestions(ctx context.Context, userID string, limit int64) ([]models.RecentQuestion, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}

	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetLimit(limit)

	cursor, err := a.db.Collection("recent_questions").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent questions: %w", err)
	}
	defer cursor.Close(ctx)

	var questions []models.RecentQuestion
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("failed to decode recent questions: %w", err)
	}
	return questions, nil
}

// IndexedFiles returns the bookkeeping rows from the last rebuild.
func (a *AuditService) IndexedFiles(ctx context.Context) ([]models.IndexedFile, error) {
	opts := options.Find().SetSort(bson.M{"indexed_at": -1})

	cursor, err := a.db.Collection("indexed_files").Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed files: %w", err)
	}
	defer cursor.Close(ctx)

	var files []models.IndexedFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode indexed files: %w", err)
	}
	return files, nil
}

// PendingSince counts review items created after the cutoff. Used by the
// scheduled digest.
func (a *AuditService) PendingSince(ctx context.Context, cutoff time.Time) (int64, error) {
	count, err := a.db.Collection("pending_questions").CountDocuments(ctx, bson.M{
		"status":     "pending",
		"created_at": bson.M{"$gte": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending questions: %w", err)
	}
	return count, nil
}
