package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PendingQuestion is a low-confidence question logged for human review.
type PendingQuestion struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Question   string             `json:"question" bson:"question"`
	UserID     string             `json:"user_id" bson:"user_id"`
	Confidence float64            `json:"confidence" bson:"confidence"`
	Status     string             `json:"status" bson:"status"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

// RecentQuestion is one entry of the rolling answered-question log.
type RecentQuestion struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Question   string             `json:"question" bson:"question"`
	Answer     string             `json:"answer" bson:"answer"`
	Confidence float64            `json:"confidence" bson:"confidence"`
	UserID     string             `json:"user_id" bson:"user_id"`
	Timestamp  time.Time          `json:"timestamp" bson:"timestamp"`
}

// IndexedFile is the per-source-file bookkeeping record written after a
// successful index rebuild. Text is the compressed concatenation of the
// file's chunk contents, kept so admins can inspect what was indexed
// without re-parsing the original document.
type IndexedFile struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SourceFile  string             `json:"source_file" bson:"source_file"`
	Category    string             `json:"category" bson:"category"`
	ChunkCount  int                `json:"chunk_count" bson:"chunk_count"`
	Text        []byte             `json:"-" bson:"text,omitempty"`
	Compression string             `json:"-" bson:"compression,omitempty"`
	IndexedAt   time.Time          `json:"indexed_at" bson:"indexed_at"`
}
