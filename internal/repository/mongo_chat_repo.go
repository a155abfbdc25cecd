package repository

import (
	"context"
	"errors"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoChatRepo struct {
	col *mongo.Collection
}

func NewMongoChatRepo(ctx context.Context, db *mongo.Database) (ChatRepository, error) {
	col := db.Collection("chatsessions")
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "lastActivity", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	return &mongoChatRepo{col: col}, nil
}

func (r *mongoChatRepo) Create(ctx context.Context, s *models.ChatSession) error {
	if s.Messages == nil {
		s.Messages = []models.ChatMessage{}
	}
	res, err := r.col.InsertOne(ctx, s)
	if err != nil {
		return err
	}
	s.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoChatRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatSession, error) {
	var s models.ChatSession
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *mongoChatRepo) AppendMessages(ctx context.Context, id primitive.ObjectID, msgs []models.ChatMessage, at time.Time) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$push": bson.M{"messages": bson.M{"$each": msgs}},
		"$set":  bson.M{"lastActivity": at},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrSessionNotFound
	}
	return nil
}

func (r *mongoChatRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.ChatSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "lastActivity", Value: -1}}).SetLimit(limit)
	cur, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	sessions := []models.ChatSession{}
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *mongoChatRepo) End(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrSessionNotFound
	}
	return nil
}
