package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const adminTokenTTL = 24 * time.Hour

type AdminLoginRequest struct {
	Password string `json:"password"`
}

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminLogin exchanges the shared admin password for a short-lived JWT.
func AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if cfg.AdminPassword == "" {
		writeError(w, apperrors.Forbidden("Admin panel is not configured"))
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(cfg.AdminPassword)) != 1 {
		writeError(w, apperrors.Unauthenticated("Invalid admin password"))
		return
	}

	now := time.Now().UTC()
	claims := adminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AdminSecret))
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to issue admin token", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Admin signed in",
		"token":   token,
	})
}

// requireAdmin validates the admin JWT from the Authorization header.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	tokenString := extractBearerToken(r)
	if tokenString == "" {
		writeError(w, apperrors.Unauthenticated("Admin authentication required"))
		return false
	}

	var claims adminClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.AdminSecret), nil
	})
	if err != nil || !token.Valid || claims.Role != "admin" {
		writeError(w, apperrors.Unauthenticated("Invalid or expired admin token"))
		return false
	}
	return true
}

// AdminStats returns collection counts for the admin dashboard.
func AdminStats(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	stats := map[string]int64{}
	for _, name := range []string{"users", "circles", "posts", "journals", "moods", "messages", "notifications", "blocks"} {
		count, err := database.DB.Collection(name).CountDocuments(ctx, bson.M{})
		if err != nil {
			writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to count "+name, err))
			return
		}
		stats[name] = count
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func adminList(w http.ResponseWriter, r *http.Request, collection string, out interface{}) {
	if !requireAdmin(w, r) {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := database.DB.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to list "+collection, err))
		return
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read "+collection, err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		collection: out,
	})
}

func AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users := []models.User{}
	adminList(w, r, "users", &users)
}

func AdminListCircles(w http.ResponseWriter, r *http.Request) {
	circles := []models.Circle{}
	adminList(w, r, "circles", &circles)
}

func AdminListPosts(w http.ResponseWriter, r *http.Request) {
	posts := []models.Post{}
	adminList(w, r, "posts", &posts)
}

func AdminListJournals(w http.ResponseWriter, r *http.Request) {
	journals := []models.Journal{}
	adminList(w, r, "journals", &journals)
}

func AdminListMoods(w http.ResponseWriter, r *http.Request) {
	moods := []models.MoodEntry{}
	adminList(w, r, "moods", &moods)
}

func AdminListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications := []models.Notification{}
	adminList(w, r, "notifications", &notifications)
}
