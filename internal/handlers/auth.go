package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/mindbridge-app/mindbridge-backend/internal/services"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"github.com/mindbridge-app/mindbridge-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type RegisterRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio,omitempty"`
	Interests   []string `json:"interests,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
}

// Register creates a user account and opens a session.
func Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		writeError(w, apperrors.Validation("Email, password, and display name are required"))
		return
	}
	if len(req.Password) < 8 {
		writeError(w, apperrors.Validation("Password must be at least 8 characters"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	users := database.DB.Collection("users")

	err := users.FindOne(ctx, bson.M{"email": req.Email}).Err()
	if err == nil {
		writeError(w, apperrors.Conflict("An account with this email already exists"))
		return
	}
	if err != mongo.ErrNoDocuments {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Database error", err))
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to hash password", err))
		return
	}

	now := time.Now().UTC()
	user := models.User{
		CreatedAt:         now,
		UpdatedAt:         now,
		Email:             req.Email,
		Password:          hashed,
		DisplayName:       req.DisplayName,
		Bio:               strings.TrimSpace(req.Bio),
		Interests:         normalizeStringList(req.Interests),
		ProfileVisibility: models.DefaultProfileVisibility(),
		LastSeen:          now,
	}

	result, err := users.InsertOne(ctx, &user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			writeError(w, apperrors.Conflict("An account with this email already exists"))
			return
		}
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to create user", err))
		return
	}
	user.ID = result.InsertedID.(primitive.ObjectID)

	token, err := services.CreateSession(user.ID)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to create session", err))
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		User:    &user,
		Token:   token,
	})
}

// Login verifies credentials and opens a session.
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, apperrors.Validation("Email and password are required"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err := database.DB.Collection("users").FindOne(ctx, bson.M{"email": req.Email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		writeError(w, apperrors.Unauthenticated("Invalid email or password"))
		return
	}
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Database error", err))
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !valid {
		writeError(w, apperrors.Unauthenticated("Invalid email or password"))
		return
	}

	token, err := services.CreateSession(user.ID)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to create session", err))
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in successfully",
		User:    &user,
		Token:   token,
	})
}

// Logout invalidates the caller's session token.
func Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(w, r); !ok {
		return
	}
	if err := services.InvalidateSession(extractBearerToken(r)); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to sign out", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Signed out successfully",
	})
}

// GetMe returns the caller's own record.
func GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	var user models.User
	err := database.DB.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		writeError(w, apperrors.NotFound("User not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

type UpdateMeRequest struct {
	DisplayName       *string                   `json:"display_name,omitempty"`
	Bio               *string                   `json:"bio,omitempty"`
	Interests         *[]string                 `json:"interests,omitempty"`
	Avatar            *string                   `json:"avatar,omitempty"`
	ProfileVisibility *models.ProfileVisibility `json:"profile_visibility,omitempty"`
}

// UpdateMe applies a partial update to the caller's profile.
func UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req UpdateMeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			writeError(w, apperrors.Validation("Display name cannot be empty"))
			return
		}
		set["display_name"] = name
	}
	if req.Bio != nil {
		set["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.Interests != nil {
		set["interests"] = normalizeStringList(*req.Interests)
	}
	if req.Avatar != nil {
		set["avatar"] = *req.Avatar
	}
	if req.ProfileVisibility != nil {
		set["profile_visibility"] = *req.ProfileVisibility
	}

	ctx, cancel := requestContext()
	defer cancel()

	users := database.DB.Collection("users")
	if _, err := users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to update profile", err))
		return
	}

	var user models.User
	if err := users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to load profile", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile updated",
		"user":    user,
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword verifies the current password, stores the new hash, and
// invalidates every existing session.
func ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, apperrors.Validation("Current and new password are required"))
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, apperrors.Validation("Password must be at least 8 characters"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	users := database.DB.Collection("users")

	var user models.User
	if err := users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		writeError(w, apperrors.NotFound("User not found"))
		return
	}

	valid, err := utils.VerifyPassword(req.CurrentPassword, user.Password)
	if err != nil || !valid {
		writeError(w, apperrors.Unauthenticated("Current password is incorrect"))
		return
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to hash password", err))
		return
	}

	if _, err := users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"password": hashed, "updated_at": time.Now().UTC()},
	}); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to update password", err))
		return
	}

	services.InvalidateUserSessions(userID)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password changed. Please sign in again.",
	})
}

func normalizeStringList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
