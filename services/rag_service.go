package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/vectorstore"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/utils"
)

// Canned responses for the degraded paths. The pipeline answers with
// these instead of failing the request; downstream UIs show them like
// any other answer.
const (
	answerIndexEmpty = "The SOP knowledge base has not been indexed yet. Please ask an administrator to run a reindex."
	answerNoResults  = "I couldn't find any relevant SOPs for your question. Try rephrasing it, or contact your supervisor."
	answerGenFailed  = "I'm unable to generate an answer right now. Please try again in a few minutes."
)

// AuditSink records questions and index bookkeeping for review.
type AuditSink interface {
	RecordPending(ctx context.Context, q models.PendingQuestion) error
	RecordRecent(ctx context.Context, q models.RecentQuestion) error
	RecordIndexedFile(ctx context.Context, f models.IndexedFile) error
}

// PredefinedLookup resolves a question against the curated question set.
type PredefinedLookup interface {
	FindByText(ctx context.Context, question string) (*models.PredefinedQuestion, error)
}

// RAGService is the end-to-end question pipeline: expand, retrieve,
// merge, re-rank, generate, score, validate, audit. It owns no state of
// its own beyond its collaborators; every request is independent.
type RAGService struct {
	cfg        *config.Config
	generator  Generator
	expander   *QueryExpander
	retriever  *Retriever
	reranker   *Reranker
	scorer     *ConfidenceScorer
	acronyms   *AcronymService
	grounding  *GroundingChecker
	chunker    *Chunker
	embedder   Embedder
	index      VectorIndex
	audit      AuditSink
	predefined PredefinedLookup
	cache      *redis.Client
}

func NewRAGService(
	cfg *config.Config,
	embedder Embedder,
	generator Generator,
	index VectorIndex,
	acronyms *AcronymService,
	audit AuditSink,
	predefined PredefinedLookup,
	cache *redis.Client,
) *RAGService {
	return &RAGService{
		cfg:        cfg,
		generator:  generator,
		expander:   NewQueryExpander(cfg),
		retriever:  NewRetriever(cfg, embedder, index),
		reranker:   NewReranker(cfg),
		scorer:     NewConfidenceScorer(cfg, generator),
		acronyms:   acronyms,
		grounding:  NewGroundingChecker(),
		chunker:    NewChunker(cfg),
		embedder:   embedder,
		index:      index,
		audit:      audit,
		predefined: predefined,
		cache:      cache,
	}
}

// Answer runs the full pipeline for one question. It returns an
// AnswerResult on every path; backend failures degrade the answer
// instead of erroring out, so callers can always render something.
func (s *RAGService) Answer(ctx context.Context, question, userID string) (*models.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	if cached := s.cachedAnswer(ctx, question); cached != nil {
		logger.Debug("Answer served from cache", "question", question)
		return cached, nil
	}

	variants := s.expander.Expand(question)

	perVariant, err := s.retriever.RetrieveForVariants(ctx, variants)
	if err != nil {
		if errors.Is(err, vectorstore.ErrIndexUnavailable) {
			logger.Warn("Index unavailable, returning degraded answer")
			return degradedAnswer(answerIndexEmpty), nil
		}
		logger.Error("Retrieval failed", "error", err)
		return degradedAnswer(answerNoResults), nil
	}

	merged, distances := MergeResults(perVariant, s.cfg.TopResults)
	if len(merged) == 0 {
		return degradedAnswer(answerNoResults), nil
	}

	reranked := s.reranker.Rerank(question, merged)
	contextText := buildContext(reranked)

	answer, err := s.generator.Generate(ctx, answerPrompt(question, contextText))
	if err != nil {
		logger.Error("Generation failed", "error", err)
		s.recordAudit(ctx, question, answerGenFailed, 0, userID)
		return degradedAnswer(answerGenFailed), nil
	}

	confidence := s.scorer.Score(ctx, question, answer, distances, contextText)

	answer, corrections := s.acronyms.ValidateResponse(answer)
	answer, _ = s.acronyms.ExpandAcronyms(answer)

	result := &models.AnswerResult{
		Answer:      answer,
		Confidence:  confidence,
		Sources:     sourceRefs(reranked),
		Grounded:    true,
		Corrections: corrections,
	}

	// An honest refusal is grounded by definition; penalizing it would
	// teach the pipeline to prefer fabrication.
	if !s.grounding.IsProperDecline(answer) {
		g := s.grounding.Check(answer, contextText, confidence)
		result.Confidence = g.Confidence
		result.Grounded = g.Grounded
		result.Warnings = g.Warnings
	}

	// Curated questions are lifted after the grounding adjustment so the
	// floor holds no matter what the heuristics subtracted.
	result.Confidence = s.applyPreferredBoost(ctx, question, result.Confidence)
	result.ConfidenceLevel = s.scorer.Level(result.Confidence)

	s.recordAudit(ctx, question, result.Answer, result.Confidence, userID)
	s.cacheAnswer(ctx, question, result)

	return result, nil
}

// RebuildIndex replaces the whole vector index from the given source
// entries. Every chunk is embedded before the existing collection is
// touched, so an embedding failure aborts with the old index intact and
// never leaves a partially written one.
func (s *RAGService) RebuildIndex(ctx context.Context, entries []models.SourceEntry) (int, error) {
	chunks := s.chunker.ChunkEntries(entries)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks produced from %d source entries", len(entries))
	}

	logger.Info("Embedding chunks for index rebuild", "chunks", len(chunks))
	embeddings, err := s.embedAll(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("aborting rebuild, embedding failed: %w", err)
	}

	if err := s.index.DeleteCollection(ctx, s.cfg.ChromaCollection); err != nil {
		return 0, fmt.Errorf("failed to drop collection: %w", err)
	}
	if err := s.index.EnsureCollection(ctx, s.cfg.ChromaCollection); err != nil {
		return 0, fmt.Errorf("failed to recreate collection: %w", err)
	}

	ids := make([]string, len(chunks))
	documents := make([]string, len(chunks))
	metadatas := make([]models.ChunkMetadata, len(chunks))
	for i, chunk := range chunks {
		ids[i] = uuid.New().String()
		documents[i] = chunk.Content
		metadatas[i] = chunk.Metadata
	}

	if err := s.index.Add(ctx, s.cfg.ChromaCollection, ids, embeddings, documents, metadatas); err != nil {
		return 0, fmt.Errorf("failed to add chunks to index: %w", err)
	}

	s.recordIndexedFiles(ctx, chunks)
	s.invalidateCache(ctx)

	logger.Info("Index rebuild complete", "chunks", len(chunks))
	return len(chunks), nil
}

// embedAll embeds chunks in small sequential batches with concurrent
// requests inside each batch. The inter-batch delay keeps a local model
// server responsive for interactive queries during a rebuild.
func (s *RAGService) embedAll(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	embeddings := make([][]float32, len(chunks))

	batchSize := s.cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		type embedResult struct {
			idx int
			err error
		}
		results := make(chan embedResult, end-start)

		for i := start; i < end; i++ {
			go func(i int) {
				embedding, err := s.embedder.Embed(ctx, chunks[i].Content)
				if err == nil {
					embeddings[i] = embedding
				}
				results <- embedResult{idx: i, err: err}
			}(i)
		}

		for i := start; i < end; i++ {
			res := <-results
			if res.err != nil {
				return nil, fmt.Errorf("chunk %d (%q): %w", res.idx, chunks[res.idx].Title, res.err)
			}
		}

		if end < len(chunks) {
			select {
			case <-time.After(s.cfg.EmbedBatchDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return embeddings, nil
}

// applyPreferredBoost lifts the confidence of answers to curated
// questions into the preferred band. The lookup is best-effort; a store
// error never blocks answering.
func (s *RAGService) applyPreferredBoost(ctx context.Context, question string, confidence float64) float64 {
	if s.predefined == nil {
		return confidence
	}

	pq, err := s.predefined.FindByText(ctx, question)
	if err != nil {
		logger.Debug("Predefined lookup failed", "error", err)
		return confidence
	}
	if pq == nil || !pq.IsPreferred {
		return confidence
	}

	boosted := confidence
	if boosted < s.cfg.PreferredFloor {
		boosted = s.cfg.PreferredFloor
	}
	if boosted > s.cfg.PreferredCap {
		boosted = s.cfg.PreferredCap
	}
	return boosted
}

func (s *RAGService) recordAudit(ctx context.Context, question, answer string, confidence float64, userID string) {
	if s.audit == nil {
		return
	}

	now := time.Now()

	if err := s.audit.RecordRecent(ctx, models.RecentQuestion{
		Question:   question,
		Answer:     answer,
		Confidence: confidence,
		UserID:     userID,
		Timestamp:  now,
	}); err != nil {
		logger.Warn("Failed to record recent question", "error", err)
	}

	if confidence < s.cfg.ReviewThreshold {
		if err := s.audit.RecordPending(ctx, models.PendingQuestion{
			Question:   question,
			UserID:     userID,
			Confidence: confidence,
			Status:     "pending",
			CreatedAt:  now,
		}); err != nil {
			logger.Warn("Failed to record pending question", "error", err)
		}
	}
}

func (s *RAGService) recordIndexedFiles(ctx context.Context, chunks []models.Chunk) {
	if s.audit == nil {
		return
	}

	type fileAgg struct {
		category string
		count    int
		text     strings.Builder
	}

	byFile := make(map[string]*fileAgg)
	var order []string
	for _, chunk := range chunks {
		agg, ok := byFile[chunk.Metadata.SourceFile]
		if !ok {
			agg = &fileAgg{category: chunk.Metadata.Category}
			byFile[chunk.Metadata.SourceFile] = agg
			order = append(order, chunk.Metadata.SourceFile)
		}
		agg.count++
		agg.text.WriteString(chunk.Content)
		agg.text.WriteString("\n\n")
	}

	for _, file := range order {
		agg := byFile[file]
		compressed, algorithm, err := utils.CompressText(agg.text.String())
		if err != nil {
			logger.Warn("Failed to compress indexed text", "file", file, "error", err)
			continue
		}

		if err := s.audit.RecordIndexedFile(ctx, models.IndexedFile{
			SourceFile:  file,
			Category:    agg.category,
			ChunkCount:  agg.count,
			Text:        compressed,
			Compression: string(algorithm),
			IndexedAt:   time.Now(),
		}); err != nil {
			logger.Warn("Failed to record indexed file", "file", file, "error", err)
		}
	}
}

const answerCachePrefix = "answer:"

func (s *RAGService) cachedAnswer(ctx context.Context, question string) *models.AnswerResult {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, answerCacheKey(question)).Bytes()
	if err != nil {
		return nil
	}

	var result models.AnswerResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (s *RAGService) cacheAnswer(ctx context.Context, question string, result *models.AnswerResult) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, answerCacheKey(question), data, s.cfg.AnswerCacheTTL).Err(); err != nil {
		logger.Debug("Failed to cache answer", "error", err)
	}
}

// invalidateCache drops every cached answer after a rebuild; stale
// answers could cite chunks that no longer exist.
func (s *RAGService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}

	iter := s.cache.Scan(ctx, 0, answerCachePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Debug("Failed to evict cached answer", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		logger.Debug("Answer cache scan failed", "error", err)
	}
}

func answerCacheKey(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return answerCachePrefix + hex.EncodeToString(sum[:])
}

func degradedAnswer(message string) *models.AnswerResult {
	return &models.AnswerResult{
		Answer:          message,
		Confidence:      0,
		ConfidenceLevel: "low",
		Sources:         []models.SourceRef{},
		Grounded:        false,
	}
}

// buildContext assembles the numbered excerpt block fed to the model.
func buildContext(results []models.RetrievalResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[Excerpt %d: %s]\n%s\n\n", i+1, r.Metadata.Title, r.Content)
	}
	return strings.TrimSpace(b.String())
}

func answerPrompt(question, contextText string) string {
	return fmt.Sprintf(`You are an assistant that answers questions about standard operating procedures.
Answer the question using ONLY the SOP excerpts below. If the excerpts do not
contain enough information to answer, say so clearly instead of guessing.
Cite the procedure by name when you can.

SOP excerpts:
%s

Question: %s

Answer:`, contextText, question)
}

func sourceRefs(results []models.RetrievalResult) []models.SourceRef {
	refs := make([]models.SourceRef, len(results))
	for i, r := range results {
		refs[i] = models.SourceRef{
			Title:      r.Metadata.Title,
			SourceFile: r.Metadata.SourceFile,
			Section:    r.Metadata.Section,
			Similarity: r.Similarity,
		}
	}
	return refs
}
