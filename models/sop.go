package models

// SourceEntry is one logical unit extracted from an SOP document:
// a task row from a spreadsheet or a heading-delimited section.
// Entries are immutable once parsed and are consumed only by the chunker.
type SourceEntry struct {
	Title      string `json:"title" bson:"title"`
	Content    string `json:"content" bson:"content"`
	Category   string `json:"category" bson:"category"`
	Section    string `json:"section" bson:"section"`
	SourceFile string `json:"source_file" bson:"source_file"`
}

// ChunkMetadata is the fixed set of metadata keys stored alongside each
// vector in the index. ChunkIndex/TotalChunks are only set for entries
// that were split into more than one chunk.
type ChunkMetadata struct {
	Title       string `json:"title" bson:"title"`
	SourceFile  string `json:"source_file" bson:"source_file"`
	Category    string `json:"category" bson:"category"`
	Section     string `json:"section" bson:"section"`
	ChunkIndex  int    `json:"chunk_index,omitempty" bson:"chunk_index,omitempty"`
	TotalChunks int    `json:"total_chunks,omitempty" bson:"total_chunks,omitempty"`
}

// Chunk is a bounded-size, possibly-overlapping slice of a SourceEntry.
// Content is always prefixed with the entry title so the stored text is
// self-describing. One chunk maps to one embedding in the vector index.
type Chunk struct {
	Title    string        `json:"title" bson:"title"`
	Content  string        `json:"content" bson:"content"`
	Metadata ChunkMetadata `json:"metadata" bson:"metadata"`
}

// RetrievalResult is one candidate passage returned by a similarity query.
// Similarity is 1 - distance, clamped to [0,1]. Results are created fresh
// per query and never persisted.
type RetrievalResult struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity"`
}

// SourceRef identifies a source passage cited in an answer.
type SourceRef struct {
	Title      string  `json:"title"`
	SourceFile string  `json:"source_file"`
	Section    string  `json:"section,omitempty"`
	Similarity float64 `json:"similarity"`
}

// AnswerResult is what the query pipeline hands back to callers.
type AnswerResult struct {
	Answer          string              `json:"answer"`
	Confidence      float64             `json:"confidence"`
	ConfidenceLevel string              `json:"confidence_level"`
	Sources         []SourceRef         `json:"sources"`
	Grounded        bool                `json:"grounded"`
	Corrections     []AcronymCorrection `json:"corrections,omitempty"`
	Warnings        []string            `json:"warnings,omitempty"`
}
