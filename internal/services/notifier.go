package services

import (
	"context"
	"log"
	"time"

	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier persists notifications and pushes them to connected clients
// through the realtime gateway.
type Notifier struct{}

// Notifications is the shared notifier used by handlers and services.
var Notifications = &Notifier{}

// Emit writes the notification record and publishes it on the recipient's
// realtime channel. The publish is best-effort; the record is the source of
// truth.
func (n *Notifier) Emit(ctx context.Context, notif *models.Notification) error {
	if notif.ID.IsZero() {
		notif.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = now
		notif.UpdatedAt = now
	}

	if _, err := database.DB.Collection("notifications").InsertOne(ctx, notif); err != nil {
		return err
	}

	if err := PublishUserEvent(ctx, notif.User, UserEvent{
		Type:         EventTypeNotification,
		Notification: notif,
		Timestamp:    now,
	}); err != nil {
		log.Printf("failed to publish notification event: %v", err)
	}
	return nil
}

// EmitTo is a convenience wrapper building the record from its parts.
func (n *Notifier) EmitTo(ctx context.Context, user primitive.ObjectID, kind, message string, meta models.NotificationMeta) error {
	return n.Emit(ctx, &models.Notification{
		User:    user,
		Type:    kind,
		Message: message,
		Meta:    meta,
	})
}
