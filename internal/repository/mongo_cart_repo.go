package repository

import (
	"context"
	"errors"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCartRepo struct {
	col *mongo.Collection
}

func NewMongoCartRepo(ctx context.Context, db *mongo.Database) (CartRepository, error) {
	col := db.Collection("carts")
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &mongoCartRepo{col: col}, nil
}

func (r *mongoCartRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var c models.Cart
	err := r.col.FindOne(ctx, bson.M{"userId": userID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save replaces the items of the user's cart, creating the cart if needed.
func (r *mongoCartRepo) Save(ctx context.Context, c *models.Cart) error {
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"userId": c.UserID},
		bson.M{"$set": bson.M{"items": c.Items}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}
	if id, ok := res.UpsertedID.(primitive.ObjectID); ok {
		c.ID = id
	}
	return nil
}

func (r *mongoCartRepo) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}
