package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoAdminRepo struct {
	col *mongo.Collection
}

func NewMongoAdminRepo(ctx context.Context, db *mongo.Database) (AdminRepository, error) {
	col := db.Collection("adminusers")
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &mongoAdminRepo{col: col}, nil
}

func (r *mongoAdminRepo) Create(ctx context.Context, a *models.AdminUser) error {
	now := time.Now().UTC()
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.CreatedAt = now
	a.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.ErrEmailTaken
	}
	if err != nil {
		return err
	}
	a.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoAdminRepo) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var a models.AdminUser
	err := r.col.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *mongoAdminRepo) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *mongoAdminRepo) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"lastLogin": at, "updatedAt": at}})
	return err
}
