package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PredefinedQuestion is a validated FAQ question stored during indexing.
// Preferred questions get a confidence floor applied at answer time.
type PredefinedQuestion struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Question    string             `json:"question" bson:"question"`
	SourceFile  string             `json:"source_file" bson:"source_file"`
	Category    string             `json:"category" bson:"category"`
	Confidence  float64            `json:"confidence" bson:"confidence"`
	IsPreferred bool               `json:"is_preferred" bson:"is_preferred"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
}
