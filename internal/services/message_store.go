package services

import (
	"context"

	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMessageStore backs MessageStore with the messages collection.
type MongoMessageStore struct {
	col *mongo.Collection
}

func NewMongoMessageStore() *MongoMessageStore {
	return &MongoMessageStore{col: database.DB.Collection("messages")}
}

func (s *MongoMessageStore) Insert(ctx context.Context, msg *models.Message) error {
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

func (s *MongoMessageStore) ByConversation(ctx context.Context, conversationID string, skip, limit int64) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.col.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *MongoMessageStore) Touching(ctx context.Context, userID primitive.ObjectID) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender": userID},
		bson.M{"receiver": userID},
	}}

	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *MongoMessageStore) MarkConversationRead(ctx context.Context, conversationID string, receiver primitive.ObjectID) error {
	_, err := s.col.UpdateMany(ctx,
		bson.M{"conversation_id": conversationID, "receiver": receiver, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	return err
}

func (s *MongoMessageStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var msg models.Message
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *MongoMessageStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoMessageStore) CountUnread(ctx context.Context, receiver primitive.ObjectID) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"receiver": receiver, "read": false})
}

// MongoBlockStore backs BlockStore with the blocks collection.
type MongoBlockStore struct {
	col *mongo.Collection
}

func NewMongoBlockStore() *MongoBlockStore {
	return &MongoBlockStore{col: database.DB.Collection("blocks")}
}

func (s *MongoBlockStore) ExistsBetween(ctx context.Context, a, b primitive.ObjectID) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"blocker": a, "blocked": b},
		bson.M{"blocker": b, "blocked": a},
	}}
	count, err := s.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return count > 0, err
}

func (s *MongoBlockStore) Exists(ctx context.Context, blocker, blocked primitive.ObjectID) (bool, error) {
	count, err := s.col.CountDocuments(ctx,
		bson.M{"blocker": blocker, "blocked": blocked},
		options.Count().SetLimit(1),
	)
	return count > 0, err
}

func (s *MongoBlockStore) Insert(ctx context.Context, block *models.Block) error {
	_, err := s.col.InsertOne(ctx, block)
	return err
}

func (s *MongoBlockStore) Remove(ctx context.Context, blocker, blocked primitive.ObjectID) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"blocker": blocker, "blocked": blocked})
	return err
}

func (s *MongoBlockStore) PartnersOf(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]struct{}, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"blocker": userID},
		bson.M{"blocked": userID},
	}}

	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	partners := make(map[primitive.ObjectID]struct{})
	for cursor.Next(ctx) {
		var b models.Block
		if err := cursor.Decode(&b); err != nil {
			continue
		}
		if b.Blocker == userID {
			partners[b.Blocked] = struct{}{}
		} else {
			partners[b.Blocker] = struct{}{}
		}
	}
	return partners, cursor.Err()
}

func (s *MongoBlockStore) ListByBlocker(ctx context.Context, blocker primitive.ObjectID) ([]models.Block, error) {
	cursor, err := s.col.Find(ctx, bson.M{"blocker": blocker})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var blocks []models.Block
	if err := cursor.All(ctx, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// MongoUserGetter backs UserGetter with the users collection.
type MongoUserGetter struct {
	col *mongo.Collection
}

func NewMongoUserGetter() *MongoUserGetter {
	return &MongoUserGetter{col: database.DB.Collection("users")}
}

func (s *MongoUserGetter) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
