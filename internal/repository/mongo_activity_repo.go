package repository

import (
	"context"
	"time"

	"bookstore-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoActivityRepo struct {
	col *mongo.Collection
}

func NewMongoActivityRepo(ctx context.Context, db *mongo.Database) (ActivityRepository, error) {
	col := db.Collection("useractivities")
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	return &mongoActivityRepo{col: col}, nil
}

func (r *mongoActivityRepo) Record(ctx context.Context, a *models.UserActivity) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	res, err := r.col.InsertOne(ctx, a)
	if err != nil {
		return err
	}
	a.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoActivityRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.UserActivity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	out := []models.UserActivity{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
