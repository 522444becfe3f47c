package services

import (
	"context"
	"time"

	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// PresenceKeyPrefix is the Redis key prefix for online markers.
	PresenceKeyPrefix = "presence:online:"
	// PresenceTTL is how long an online marker survives without a ping.
	PresenceTTL = 90 * time.Second
)

// SetUserOnline marks the user online: a TTL key in Redis plus the
// is_online/last_seen fields on the user document.
func SetUserOnline(ctx context.Context, userID primitive.ObjectID) error {
	if err := database.RedisClient.Set(ctx, PresenceKeyPrefix+userID.Hex(), "1", PresenceTTL).Err(); err != nil {
		return err
	}
	return setPresenceFields(ctx, userID, true)
}

// TouchUserPresence refreshes the TTL marker and last_seen.
func TouchUserPresence(ctx context.Context, userID primitive.ObjectID) error {
	if err := database.RedisClient.Set(ctx, PresenceKeyPrefix+userID.Hex(), "1", PresenceTTL).Err(); err != nil {
		return err
	}
	return setPresenceFields(ctx, userID, true)
}

// SetUserOffline clears the marker and records last_seen.
func SetUserOffline(ctx context.Context, userID primitive.ObjectID) error {
	database.RedisClient.Del(ctx, PresenceKeyPrefix+userID.Hex())
	return setPresenceFields(ctx, userID, false)
}

// IsUserOnline checks the Redis marker.
func IsUserOnline(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	count, err := database.RedisClient.Exists(ctx, PresenceKeyPrefix+userID.Hex()).Result()
	return count > 0, err
}

func setPresenceFields(ctx context.Context, userID primitive.ObjectID, online bool) error {
	_, err := database.DB.Collection("users").UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"is_online": online, "last_seen": time.Now().UTC()}},
	)
	return err
}
