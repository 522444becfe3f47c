package handlers

import (
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

type JournalRequest struct {
	Title      string                   `json:"title"`
	Body       string                   `json:"body,omitempty"`
	Visibility models.JournalVisibility `json:"visibility"`
	Circles    []string                 `json:"circles,omitempty"`
}

// CreateJournal writes a journal entry for the caller.
func CreateJournal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req JournalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, apperrors.Validation("Title is required"))
		return
	}
	if req.Visibility == "" {
		req.Visibility = models.JournalPrivate
	}
	switch req.Visibility {
	case models.JournalPrivate, models.JournalCircle, models.JournalPublic:
	default:
		writeError(w, apperrors.Validation("Visibility must be private, circle, or public"))
		return
	}

	var circleRefs []primitive.ObjectID
	if req.Visibility == models.JournalCircle {
		if len(req.Circles) == 0 {
			writeError(w, apperrors.Validation("Circle visibility requires at least one circle"))
			return
		}
		for _, raw := range req.Circles {
			id, err := parseObjectID(raw)
			if err != nil {
				writeError(w, err)
				return
			}
			circleRefs = append(circleRefs, id)
		}
	}

	ctx, cancel := requestContext()
	defer cancel()

	// Circle-scoped entries may only target circles the author belongs to.
	for _, circleID := range circleRefs {
		circle, err := loadCircle(ctx, circleID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !circle.IsMember(userID) {
			writeError(w, apperrors.Forbidden("You can only share journals with circles you belong to"))
			return
		}
	}

	now := time.Now().UTC()
	journal := models.Journal{
		CreatedAt:  now,
		UpdatedAt:  now,
		User:       userID,
		Title:      req.Title,
		Body:       req.Body,
		Visibility: req.Visibility,
		Circles:    circleRefs,
	}

	result, err := database.DB.Collection("journals").InsertOne(ctx, &journal)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to create journal", err))
		return
	}
	journal.ID = result.InsertedID.(primitive.ObjectID)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Journal entry created",
		"journal": journal,
	})
}

// ListJournals returns the caller's own journal entries, newest first.
func ListJournals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := database.DB.Collection("journals").Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to list journals", err))
		return
	}
	defer cursor.Close(ctx)

	journals := []models.Journal{}
	if err := cursor.All(ctx, &journals); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read journals", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"journals": journals,
	})
}

// UpdateJournal lets the author edit an entry.
func UpdateJournal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	journalID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req JournalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, apperrors.Validation("Title is required"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var journal models.Journal
	err = database.DB.Collection("journals").FindOne(ctx, bson.M{"_id": journalID}).Decode(&journal)
	if err == mongo.ErrNoDocuments {
		writeError(w, apperrors.NotFound("Journal entry not found"))
		return
	}
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to load journal", err))
		return
	}
	if journal.User != userID {
		writeError(w, apperrors.Forbidden("Only the author can edit this entry"))
		return
	}

	set := bson.M{
		"title":      req.Title,
		"body":       req.Body,
		"updated_at": time.Now().UTC(),
	}
	if req.Visibility != "" {
		switch req.Visibility {
		case models.JournalPrivate, models.JournalCircle, models.JournalPublic:
			set["visibility"] = req.Visibility
		default:
			writeError(w, apperrors.Validation("Visibility must be private, circle, or public"))
			return
		}
	}

	if _, err := database.DB.Collection("journals").UpdateOne(ctx,
		bson.M{"_id": journalID}, bson.M{"$set": set}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to update journal", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Journal entry updated",
	})
}

// DeleteJournal removes one of the caller's entries.
func DeleteJournal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	journalID, err := parseObjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	result, err := database.DB.Collection("journals").DeleteOne(ctx,
		bson.M{"_id": journalID, "user": userID})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to delete journal", err))
		return
	}
	if result.DeletedCount == 0 {
		writeError(w, apperrors.NotFound("Journal entry not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Journal entry deleted",
	})
}
