package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userSearchLimit = 50

// ListUsers returns users matching an optional search query, excluding the
// caller and anyone with a block relationship with the caller.
func ListUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	blocked, err := messaging.Blocks.PartnersOf(ctx, userID)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to load block list", err))
		return
	}

	excluded := bson.A{userID}
	for id := range blocked {
		excluded = append(excluded, id)
	}

	filter := bson.M{"_id": bson.M{"$nin": excluded}}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		filter["display_name"] = bson.M{"$regex": regexEscape(q), "$options": "i"}
	}

	opts := options.Find().
		SetLimit(userSearchLimit).
		SetProjection(bson.M{"_id": 1, "display_name": 1, "avatar": 1, "is_online": 1})

	cursor, err := database.DB.Collection("users").Find(ctx, filter, opts)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to search users", err))
		return
	}
	defer cursor.Close(ctx)

	type userRow struct {
		ID          primitive.ObjectID `bson:"_id" json:"id"`
		DisplayName string             `bson:"display_name" json:"display_name"`
		Avatar      string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
		IsOnline    bool               `bson:"is_online" json:"is_online"`
	}
	users := []userRow{}
	if err := cursor.All(ctx, &users); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read users", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   users,
	})
}

// profileView is a user record filtered through its visibility flags.
type profileView struct {
	ID            primitive.ObjectID   `json:"id"`
	DisplayName   string               `json:"display_name"`
	Avatar        string               `json:"avatar,omitempty"`
	Email         string               `json:"email,omitempty"`
	Bio           string               `json:"bio,omitempty"`
	Interests     []string             `json:"interests,omitempty"`
	Circles       []models.Circle      `json:"circles,omitempty"`
	IsOnline      bool                 `json:"is_online"`
	LastSeen      time.Time            `json:"last_seen"`
	AllowMessages bool                 `json:"allow_messages"`
	IsBlockedByMe bool                 `json:"is_blocked_by_me"`
	JoinedAt      time.Time            `json:"joined_at"`
}

// GetUserProfile returns another user's profile with per-field visibility
// applied. Mutually blocked users cannot see each other at all.
func GetUserProfile(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	targetID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if targetID != callerID {
		blocked, err := messaging.Blocks.ExistsBetween(ctx, callerID, targetID)
		if err != nil {
			writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to check block state", err))
			return
		}
		if blocked {
			writeError(w, apperrors.Forbidden("This profile is not available"))
			return
		}
	}

	var user models.User
	err = database.DB.Collection("users").FindOne(ctx, bson.M{"_id": targetID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		writeError(w, apperrors.NotFound("User not found"))
		return
	}
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to load user", err))
		return
	}

	view := profileView{
		ID:            user.ID,
		DisplayName:   user.DisplayName,
		Avatar:        user.Avatar,
		IsOnline:      user.IsOnline,
		LastSeen:      user.LastSeen,
		AllowMessages: user.ProfileVisibility.AllowMessages,
		JoinedAt:      user.CreatedAt,
	}

	own := targetID == callerID
	vis := user.ProfileVisibility
	if own || vis.ShowEmail {
		view.Email = user.Email
	}
	if own || vis.ShowBio {
		view.Bio = user.Bio
	}
	if own || vis.ShowInterests {
		view.Interests = user.Interests
	}
	if own || vis.ShowCircles {
		circles, err := publicCirclesOf(ctx, targetID)
		if err == nil {
			view.Circles = circles
		}
	}

	if !own {
		hasBlocked, err := messaging.HasBlocked(ctx, callerID, targetID)
		if err == nil {
			view.IsBlockedByMe = hasBlocked
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    view,
	})
}

func publicCirclesOf(ctx context.Context, userID primitive.ObjectID) ([]models.Circle, error) {
	cursor, err := database.DB.Collection("circles").Find(ctx,
		bson.M{"members": userID, "visibility": models.CirclePublic})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var circles []models.Circle
	if err := cursor.All(ctx, &circles); err != nil {
		return nil, err
	}
	return circles, nil
}

type BlockRequest struct {
	Reason string `json:"reason,omitempty"`
}

// BlockUser blocks the target user for the caller.
func BlockUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	targetID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req BlockRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := messaging.Block(ctx, callerID, targetID, req.Reason); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User blocked",
	})
}

// UnblockUser removes the caller's block on the target user. Idempotent.
func UnblockUser(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	targetID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	if err := messaging.Unblock(ctx, callerID, targetID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User unblocked",
	})
}

// ListBlockedUsers returns the caller's block list.
func ListBlockedUsers(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	blocked, err := messaging.BlockedUsers(ctx, callerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"blocked": blocked,
	})
}

// regexEscape quotes regex metacharacters for safe $regex interpolation.
func regexEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
