package services

import (
	"fmt"
	"strings"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

// Chunker splits source entries into overlapping, bounded-size passages
// before indexing. Pure and deterministic for fixed size constants; it is
// re-run in full on every index rebuild, never incrementally.
type Chunker struct {
	maxWords     int
	overlapWords int
	minWords     int
}

func NewChunker(cfg *config.Config) *Chunker {
	return &Chunker{
		maxWords:     cfg.MaxChunkWords,
		overlapWords: cfg.OverlapWords,
		minWords:     cfg.MinChunkWords,
	}
}

// ChunkEntries chunks every entry and flattens the result.
func (ch *Chunker) ChunkEntries(entries []models.SourceEntry) []models.Chunk {
	var chunks []models.Chunk
	for _, entry := range entries {
		chunks = append(chunks, ch.chunkEntry(entry)...)
	}
	return chunks
}

func (ch *Chunker) chunkEntry(entry models.SourceEntry) []models.Chunk {
	words := strings.Fields(entry.Content)

	meta := models.ChunkMetadata{
		Title:      entry.Title,
		SourceFile: entry.SourceFile,
		Category:   entry.Category,
		Section:    entry.Section,
	}

	// Short entries are emitted verbatim, title-prefixed.
	if len(words) <= ch.maxWords {
		return []models.Chunk{{
			Title:    entry.Title,
			Content:  entry.Title + "\n\n" + entry.Content,
			Metadata: meta,
		}}
	}

	step := ch.maxWords - ch.overlapWords

	// Collect the windows first so every chunk can carry the true total.
	var windows [][]string
	for start := 0; start < len(words); start += step {
		end := start + ch.maxWords
		final := end >= len(words)
		if end > len(words) {
			end = len(words)
		}
		window := words[start:end]

		// Tiny mid-document fragments add noise to retrieval; the true
		// last fragment is always kept even when short.
		if len(window) < ch.minWords && !final {
			continue
		}

		windows = append(windows, window)
		if final {
			break
		}
	}

	total := len(windows)
	chunks := make([]models.Chunk, 0, total)
	for i, window := range windows {
		title := entry.Title
		chunkMeta := meta
		if total > 1 {
			title = fmt.Sprintf("%s (Part %d/%d)", entry.Title, i+1, total)
			chunkMeta.ChunkIndex = i
			chunkMeta.TotalChunks = total
		}
		chunkMeta.Title = title

		chunks = append(chunks, models.Chunk{
			Title:    title,
			Content:  title + "\n\n" + strings.Join(window, " "),
			Metadata: chunkMeta,
		})
	}

	return chunks
}
