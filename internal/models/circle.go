package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CircleVisibility controls how a circle can be joined.
// Public circles are joined directly; private circles go through joinRequests.
type CircleVisibility string

const (
	CirclePublic  CircleVisibility = "public"
	CirclePrivate CircleVisibility = "private"
)

// Circle is a topical group. Invariant: admins is a subset of members,
// and at least one admin remains (enforced on demote/remove).
type Circle struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Title       string           `bson:"title" json:"title"`
	Description string           `bson:"description,omitempty" json:"description,omitempty"`
	Tags        []string         `bson:"tags,omitempty" json:"tags"`
	Visibility  CircleVisibility `bson:"visibility" json:"visibility"`
	CoverImage  string           `bson:"cover_image,omitempty" json:"cover_image,omitempty"`

	Members      []primitive.ObjectID `bson:"members" json:"members"`
	Admins       []primitive.ObjectID `bson:"admins" json:"admins"`
	JoinRequests []primitive.ObjectID `bson:"join_requests,omitempty" json:"join_requests"`
}

func (c *Circle) IsMember(id primitive.ObjectID) bool {
	return containsID(c.Members, id)
}

func (c *Circle) IsAdmin(id primitive.ObjectID) bool {
	return containsID(c.Admins, id)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
