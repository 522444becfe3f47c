package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is embedded in its post document.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Author primitive.ObjectID `bson:"author" json:"author"`
	Body   string             `bson:"body" json:"body"`
}

type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Circle primitive.ObjectID `bson:"circle" json:"circle"`
	Author primitive.ObjectID `bson:"author" json:"author"`

	Title         string `bson:"title,omitempty" json:"title,omitempty"`
	Body          string `bson:"body,omitempty" json:"body,omitempty"`
	AttachmentURL string `bson:"attachment_url,omitempty" json:"attachment_url,omitempty"`

	Likes    []primitive.ObjectID `bson:"likes,omitempty" json:"likes"`
	Comments []Comment            `bson:"comments,omitempty" json:"comments"`
}

// FindComment returns the embedded comment with the given id, or nil.
func (p *Post) FindComment(id primitive.ObjectID) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return &p.Comments[i]
		}
	}
	return nil
}
