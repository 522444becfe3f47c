package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Block suppresses messaging and profile visibility between two users while a
// row exists in either direction. Unique per (blocker, blocked) pair.
type Block struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`

	Blocker primitive.ObjectID `bson:"blocker" json:"blocker"`
	Blocked primitive.ObjectID `bson:"blocked" json:"blocked"`
	Reason  string             `bson:"reason,omitempty" json:"reason,omitempty"`
}
