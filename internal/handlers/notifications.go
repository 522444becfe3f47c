package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationListLimit = 100

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(notificationListLimit)

	cursor, err := database.DB.Collection("notifications").Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to list notifications", err))
		return
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read notifications", err))
		return
	}

	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"notifications": notifications,
		"unread":        unread,
	})
}

// MarkNotificationRead flips one of the caller's notifications to read.
// Idempotent.
func MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	notifID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	result, err := database.DB.Collection("notifications").UpdateOne(ctx,
		bson.M{"_id": notifID, "user": userID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to mark notification read", err))
		return
	}
	if result.MatchedCount == 0 {
		writeError(w, apperrors.NotFound("Notification not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notification marked read",
	})
}

// MarkAllNotificationsRead flips every unread notification for the caller.
func MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if _, err := database.DB.Collection("notifications").UpdateMany(ctx,
		bson.M{"user": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to mark notifications read", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "All notifications marked read",
	})
}
