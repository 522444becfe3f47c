package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"github.com/mindbridge-app/mindbridge-backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MoodRequest struct {
	Mood models.Mood `json:"mood"`
}

// SetMood records or replaces today's mood for the caller.
func SetMood(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req MoodRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !models.ValidMood(req.Mood) {
		writeError(w, apperrors.Validation("Mood must be good, neutral, or bad"))
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	now := time.Now().UTC()
	day := now.Format(models.MoodDayFormat)

	// One mood per user per day; re-recording replaces it.
	opts := options.Update().SetUpsert(true)
	_, err := database.DB.Collection("moods").UpdateOne(ctx,
		bson.M{"user": userID, "day": day},
		bson.M{
			"$set":         bson.M{"mood": req.Mood, "updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		}, opts)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to record mood", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Mood recorded",
		"day":     day,
		"mood":    req.Mood,
	})
}

// TodayMood returns today's mood, or not_added.
func TodayMood(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	day := time.Now().UTC().Format(models.MoodDayFormat)

	var entry models.MoodEntry
	err := database.DB.Collection("moods").FindOne(ctx,
		bson.M{"user": userID, "day": day}).Decode(&entry)

	mood := models.MoodNotAdded
	if err == nil {
		mood = entry.Mood
	} else if err != mongo.ErrNoDocuments {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to load mood", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"day":     day,
		"mood":    mood,
	})
}

// RecentMoods returns the last 7 days, oldest first, with not_added filling
// the gaps.
func RecentMoods(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext()
	defer cancel()

	today := time.Now().UTC()
	start := today.AddDate(0, 0, -6).Format(models.MoodDayFormat)

	cursor, err := database.DB.Collection("moods").Find(ctx, bson.M{
		"user": userID,
		"day":  bson.M{"$gte": start},
	})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to load moods", err))
		return
	}
	defer cursor.Close(ctx)

	var entries []models.MoodEntry
	if err := cursor.All(ctx, &entries); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read moods", err))
		return
	}

	byDay := make(map[string]models.Mood, len(entries))
	for _, e := range entries {
		byDay[e.Day] = e.Mood
	}

	type dayMood struct {
		Day  string      `json:"day"`
		Mood models.Mood `json:"mood"`
	}
	days := make([]dayMood, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(models.MoodDayFormat)
		mood, ok := byDay[day]
		if !ok {
			mood = models.MoodNotAdded
		}
		days = append(days, dayMood{Day: day, Mood: mood})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"moods":   days,
	})
}

// MonthMoods returns a day-number → mood map for the requested month
// (defaults to the current one). Days without an entry map to not_added.
func MonthMoods(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	year := now.Year()
	month := int(now.Month())

	if y := r.URL.Query().Get("year"); y != "" {
		parsed, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, apperrors.Validation("Invalid year"))
			return
		}
		year = parsed
	}
	if m := r.URL.Query().Get("month"); m != "" {
		parsed, err := strconv.Atoi(m)
		if err != nil || parsed < 1 || parsed > 12 {
			writeError(w, apperrors.Validation("Invalid month"))
			return
		}
		month = parsed
	}

	ctx, cancel := requestContext()
	defer cancel()

	prefix := fmt.Sprintf("%04d-%02d-", year, month)

	cursor, err := database.DB.Collection("moods").Find(ctx, bson.M{
		"user": userID,
		"day":  bson.M{"$regex": "^" + prefix},
	})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to load moods", err))
		return
	}
	defer cursor.Close(ctx)

	var entries []models.MoodEntry
	if err := cursor.All(ctx, &entries); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeInternal, "Failed to read moods", err))
		return
	}

	daysInMonth := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	moods := make(map[string]models.Mood, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		moods[strconv.Itoa(d)] = models.MoodNotAdded
	}
	for _, e := range entries {
		if t, err := time.Parse(models.MoodDayFormat, e.Day); err == nil {
			moods[strconv.Itoa(t.Day())] = e.Mood
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"year":    year,
		"month":   month,
		"moods":   moods,
	})
}
