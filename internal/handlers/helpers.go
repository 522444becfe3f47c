package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mindbridge-app/mindbridge-backend/internal/services"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 5 * time.Second

// requestContext returns a bounded context for a single database operation.
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

type errorBody struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// writeError maps an error to its HTTP status and the standard error envelope.
// Unknown errors are reported as internal without leaking their detail.
func writeError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.From(err)
	if !ok {
		log.Printf("internal error: %v", err)
		appErr = &apperrors.AppError{Code: apperrors.CodeInternal, Message: "Something went wrong. Please try again later."}
	}
	if appErr.Code == apperrors.CodeInternal && appErr.Cause != nil {
		log.Printf("internal error: %v", appErr.Cause)
	}
	writeJSON(w, appErr.Code.HTTPStatus(), errorEnvelope{
		Success: false,
		Error:   errorBody{Code: appErr.Code, Message: appErr.Message},
	})
}

// extractBearerToken pulls the token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireAuth validates the session token and returns the caller's user id.
// On failure it writes the 401 response and returns ok=false.
func requireAuth(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	token := extractBearerToken(r)
	if token == "" {
		writeError(w, apperrors.Unauthenticated("Authentication required"))
		return primitive.NilObjectID, false
	}

	userID, valid, err := services.ValidateSession(token)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to validate session", err))
		return primitive.NilObjectID, false
	}
	if !valid {
		writeError(w, apperrors.Unauthenticated("Invalid or expired session"))
		return primitive.NilObjectID, false
	}

	services.RefreshSession(token)
	return userID, true
}

// parseObjectID converts a URL parameter into an ObjectID.
func parseObjectID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("Invalid id")
	}
	return id, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	return nil
}
