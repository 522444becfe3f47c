package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileVisibility holds a user's per-field privacy flags.
type ProfileVisibility struct {
	ShowEmail     bool `bson:"show_email" json:"show_email"`
	ShowBio       bool `bson:"show_bio" json:"show_bio"`
	ShowInterests bool `bson:"show_interests" json:"show_interests"`
	ShowCircles   bool `bson:"show_circles" json:"show_circles"`
	AllowMessages bool `bson:"allow_messages" json:"allow_messages"`
}

// DefaultProfileVisibility returns the visibility applied at registration:
// everything visible except email, messaging allowed.
func DefaultProfileVisibility() ProfileVisibility {
	return ProfileVisibility{
		ShowEmail:     false,
		ShowBio:       true,
		ShowInterests: true,
		ShowCircles:   true,
		AllowMessages: true,
	}
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Email    string `bson:"email" json:"email"`
	Password string `bson:"password" json:"-"` // Don't return password in JSON

	DisplayName string   `bson:"display_name" json:"display_name"`
	Bio         string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Interests   []string `bson:"interests,omitempty" json:"interests"`
	Avatar      string   `bson:"avatar,omitempty" json:"avatar,omitempty"`

	ProfileVisibility ProfileVisibility `bson:"profile_visibility" json:"profile_visibility"`

	// Presence, maintained by the realtime gateway.
	LastSeen time.Time `bson:"last_seen" json:"last_seen"`
	IsOnline bool      `bson:"is_online" json:"is_online"`
}

// UserSummary is the reduced identity used when resolving references
// (message senders, circle members, comment authors).
type UserSummary struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Avatar      string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

// Summary returns the user's display identity.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, DisplayName: u.DisplayName, Avatar: u.Avatar}
}
