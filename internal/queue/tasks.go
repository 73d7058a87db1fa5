package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/services"
)

const (
	TaskRebuildIndex      = "index:rebuild"
	TaskValidateQuestions = "questions:validate"
)

type RebuildIndexPayload struct {
	RequestedBy string `json:"requested_by"`
}

type ValidateQuestionsPayload struct {
	SourceFile string `json:"source_file"`
}

// NewRebuildIndexTask enqueues a full reindex. Rebuilds replace the
// whole collection, so there is no point retrying aggressively; a
// failed rebuild leaves the old index serving.
func NewRebuildIndexTask(requestedBy string) (*asynq.Task, error) {
	payload, err := json.Marshal(RebuildIndexPayload{RequestedBy: requestedBy})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskRebuildIndex,
		payload,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("critical"),
	), nil
}

func NewValidateQuestionsTask(sourceFile string) (*asynq.Task, error) {
	payload, err := json.Marshal(ValidateQuestionsPayload{SourceFile: sourceFile})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskValidateQuestions,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(20*time.Minute),
		asynq.Queue("default"),
	), nil
}

// TaskProcessor hosts the worker-side handlers.
type TaskProcessor struct {
	rag       *services.RAGService
	parser    *services.SOPParser
	validator *services.QuestionValidator
	client    *asynq.Client
}

func NewTaskProcessor(rag *services.RAGService, parser *services.SOPParser, validator *services.QuestionValidator, client *asynq.Client) *TaskProcessor {
	return &TaskProcessor{
		rag:       rag,
		parser:    parser,
		validator: validator,
		client:    client,
	}
}

// HandleRebuildIndex reparses the document directory and rebuilds the
// vector index, then queues a validation run per indexed file.
func (p *TaskProcessor) HandleRebuildIndex(ctx context.Context, t *asynq.Task) error {
	var payload RebuildIndexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Index rebuild started", "requested_by", payload.RequestedBy)

	entries, err := p.parser.ParseDirectory()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logger.Warn("No source entries found, rebuild skipped")
		return asynq.SkipRetry
	}

	chunkCount, err := p.rag.RebuildIndex(ctx, entries)
	if err != nil {
		return err
	}
	logger.Info("Index rebuild finished", "chunks", chunkCount)

	if p.client != nil {
		for _, file := range sourceFiles(entries) {
			task, err := NewValidateQuestionsTask(file)
			if err != nil {
				logger.Warn("Failed to build validation task", "file", file, "error", err)
				continue
			}
			if _, err := p.client.EnqueueContext(ctx, task); err != nil {
				logger.Warn("Failed to enqueue validation task", "file", file, "error", err)
			}
		}
	}

	return nil
}

// HandleValidateQuestions rebuilds the curated question set for one
// source file.
func (p *TaskProcessor) HandleValidateQuestions(ctx context.Context, t *asynq.Task) error {
	var payload ValidateQuestionsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	entries, err := p.parser.ParseDirectory()
	if err != nil {
		return err
	}

	var fileEntries []models.SourceEntry
	for _, entry := range entries {
		if entry.SourceFile == filepath.Base(payload.SourceFile) {
			fileEntries = append(fileEntries, entry)
		}
	}
	if len(fileEntries) == 0 {
		logger.Warn("Source file has no entries, validation skipped", "file", payload.SourceFile)
		return asynq.SkipRetry
	}

	kept, err := p.validator.ValidateForSource(ctx, payload.SourceFile, fileEntries)
	if err != nil {
		return err
	}

	logger.Info("Question validation finished", "file", payload.SourceFile, "kept", len(kept))
	return nil
}

func sourceFiles(entries []models.SourceEntry) []string {
	seen := make(map[string]bool)
	var files []string
	for _, entry := range entries {
		if !seen[entry.SourceFile] {
			seen[entry.SourceFile] = true
			files = append(files, entry.SourceFile)
		}
	}
	return files
}
