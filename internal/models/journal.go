package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JournalVisibility controls who can read a journal entry.
type JournalVisibility string

const (
	JournalPrivate JournalVisibility = "private"
	JournalCircle  JournalVisibility = "circle"
	JournalPublic  JournalVisibility = "public"
)

// Journal represents a journaling entry for a user.
type Journal struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	User       primitive.ObjectID   `bson:"user" json:"user"`
	Title      string               `bson:"title" json:"title"`
	Body       string               `bson:"body,omitempty" json:"body,omitempty"`
	Visibility JournalVisibility    `bson:"visibility" json:"visibility"`
	Circles    []primitive.ObjectID `bson:"circles,omitempty" json:"circles,omitempty"`
}
