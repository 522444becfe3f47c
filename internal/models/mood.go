package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mood is the coarse daily mood value.
type Mood string

const (
	MoodGood     Mood = "good"
	MoodNeutral  Mood = "neutral"
	MoodBad      Mood = "bad"
	MoodNotAdded Mood = "not_added"
)

// ValidMood reports whether m is a mood a user may record.
func ValidMood(m Mood) bool {
	return m == MoodGood || m == MoodNeutral || m == MoodBad
}

// MoodDayFormat is the layout of MoodEntry.Day (yyyy-mm-dd).
const MoodDayFormat = "2006-01-02"

// MoodEntry records one mood per user per day (unique compound index on user+day).
type MoodEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	User primitive.ObjectID `bson:"user" json:"user"`
	Day  string             `bson:"day" json:"day"`
	Mood Mood               `bson:"mood" json:"mood"`
}
