package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a direct message between two users. Immutable once created,
// except for the one-way read flip and hard deletion by its sender.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Sender   primitive.ObjectID `bson:"sender" json:"sender"`
	Receiver primitive.ObjectID `bson:"receiver" json:"receiver"`
	Content  string             `bson:"content" json:"content"`
	Read     bool               `bson:"read" json:"read"`

	// ConversationID is the sorted combination of the two participant ids,
	// so both directions of a thread land on the same value.
	ConversationID string `bson:"conversation_id" json:"conversation_id"`
}
