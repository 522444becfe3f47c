package services

import (
	"context"

	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes configures collection indexes on startup, after Mongo has
// connected. Safe to call repeatedly.
func EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_email_unique"),
			},
		},
		"messages": {
			// Conversation pagination: newest-first within a thread.
			{
				Keys: bson.D{
					{Key: "conversation_id", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("idx_conversation_created"),
			},
			// Unread counting per receiver.
			{
				Keys: bson.D{
					{Key: "receiver", Value: 1},
					{Key: "read", Value: 1},
				},
				Options: options.Index().SetName("idx_receiver_read"),
			},
		},
		"blocks": {
			{
				Keys: bson.D{
					{Key: "blocker", Value: 1},
					{Key: "blocked", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("idx_blocker_blocked_unique"),
			},
		},
		"moods": {
			{
				Keys: bson.D{
					{Key: "user", Value: 1},
					{Key: "day", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("idx_user_day_unique"),
			},
		},
		"notifications": {
			{
				Keys: bson.D{
					{Key: "user", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("idx_user_created"),
			},
		},
		"posts": {
			{
				Keys: bson.D{
					{Key: "circle", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("idx_circle_created"),
			},
		},
	}

	for collection, models := range indexes {
		col := database.DB.Collection(collection)
		for _, m := range models {
			if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
				return err
			}
		}
	}
	return nil
}
