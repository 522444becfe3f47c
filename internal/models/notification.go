package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationAction discriminates the meta payload of a notification.
type NotificationAction string

const (
	ActionNewMessage        NotificationAction = "new_message"
	ActionJoinRequest       NotificationAction = "join_request"
	ActionRequestApproved   NotificationAction = "request_approved"
	ActionRequestRejected   NotificationAction = "request_rejected"
	ActionRemovedFromCircle NotificationAction = "removed_from_circle"
	ActionPromotedToAdmin   NotificationAction = "promoted_to_admin"
	ActionNewPost           NotificationAction = "new_post"
	ActionNewComment        NotificationAction = "new_comment"
)

// NotificationMeta carries the entity references for one notification kind.
// Only the fields of the variant named by ActionType are set; use the
// constructors below rather than filling this in by hand.
type NotificationMeta struct {
	ActionType NotificationAction `bson:"action_type" json:"action_type"`

	CircleID   *primitive.ObjectID `bson:"circle_id,omitempty" json:"circle_id,omitempty"`
	CircleName string              `bson:"circle_name,omitempty" json:"circle_name,omitempty"`
	PostID     *primitive.ObjectID `bson:"post_id,omitempty" json:"post_id,omitempty"`

	SenderID       *primitive.ObjectID `bson:"sender_id,omitempty" json:"sender_id,omitempty"`
	SenderName     string              `bson:"sender_name,omitempty" json:"sender_name,omitempty"`
	MessagePreview string              `bson:"message_preview,omitempty" json:"message_preview,omitempty"`

	RequesterID   *primitive.ObjectID `bson:"requester_id,omitempty" json:"requester_id,omitempty"`
	RequesterName string              `bson:"requester_name,omitempty" json:"requester_name,omitempty"`
}

// NewMessageMeta is the variant for a direct-message notification.
func NewMessageMeta(sender primitive.ObjectID, senderName, preview string) NotificationMeta {
	return NotificationMeta{
		ActionType:     ActionNewMessage,
		SenderID:       &sender,
		SenderName:     senderName,
		MessagePreview: preview,
	}
}

// JoinRequestMeta is the variant sent to circle admins for a pending request.
func JoinRequestMeta(circleID primitive.ObjectID, circleName string, requester primitive.ObjectID, requesterName string) NotificationMeta {
	return NotificationMeta{
		ActionType:    ActionJoinRequest,
		CircleID:      &circleID,
		CircleName:    circleName,
		RequesterID:   &requester,
		RequesterName: requesterName,
	}
}

// CircleMeta is the variant for membership lifecycle notifications
// (request approved/rejected, removed, promoted).
func CircleMeta(action NotificationAction, circleID primitive.ObjectID, circleName string) NotificationMeta {
	return NotificationMeta{
		ActionType: action,
		CircleID:   &circleID,
		CircleName: circleName,
	}
}

// PostMeta is the variant for post and comment notifications.
func PostMeta(action NotificationAction, circleID, postID primitive.ObjectID) NotificationMeta {
	return NotificationMeta{
		ActionType: action,
		CircleID:   &circleID,
		PostID:     &postID,
	}
}

type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	User    primitive.ObjectID `bson:"user" json:"user"`
	Type    string             `bson:"type" json:"type"`
	Message string             `bson:"message" json:"message"`
	Read    bool               `bson:"read" json:"read"`
	Meta    NotificationMeta   `bson:"meta" json:"meta"`
}
