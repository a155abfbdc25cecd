package repository

import (
	"context"
	"errors"
	"regexp"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoBookRepo struct {
	col *mongo.Collection
}

func NewMongoBookRepo(ctx context.Context, db *mongo.Database) (BookRepository, error) {
	col := db.Collection("books")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return &mongoBookRepo{col: col}, nil
}

func (r *mongoBookRepo) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Book, error) {
	cur, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *mongoBookRepo) List(ctx context.Context) ([]models.Book, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoBookRepo) Search(ctx context.Context, q string) ([]models.Book, error) {
	rx := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"name": rx},
		bson.M{"category": rx},
	}})
}

func (r *mongoBookRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var b models.Book
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *mongoBookRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoBookRepo) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *mongoBookRepo) CountByCategory(ctx context.Context, category string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"category": category})
}

func (r *mongoBookRepo) Create(ctx context.Context, b *models.Book) error {
	if b.Reviews == nil {
		b.Reviews = []models.Review{}
	}
	res, err := r.col.InsertOne(ctx, b)
	if err != nil {
		return err
	}
	b.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *mongoBookRepo) InsertMany(ctx context.Context, books []models.Book) error {
	if len(books) == 0 {
		return nil
	}
	docs := make([]interface{}, len(books))
	for i := range books {
		if books[i].Reviews == nil {
			books[i].Reviews = []models.Review{}
		}
		docs[i] = books[i]
	}
	_, err := r.col.InsertMany(ctx, docs)
	return err
}

func (r *mongoBookRepo) Update(ctx context.Context, b *models.Book) error {
	res, err := r.col.UpdateByID(ctx, b.ID, bson.M{"$set": bson.M{
		"name":     b.Name,
		"price":    b.Price,
		"category": b.Category,
		"image":    b.Image,
		"title":    b.Title,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrBookNotFound
	}
	return nil
}

func (r *mongoBookRepo) SetCover(ctx context.Context, id primitive.ObjectID, image, thumb string) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"image": image, "thumb": thumb}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrBookNotFound
	}
	return nil
}

func (r *mongoBookRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.ErrBookNotFound
	}
	return nil
}

func (r *mongoBookRepo) AddReview(ctx context.Context, bookID primitive.ObjectID, rv models.Review) error {
	res, err := r.col.UpdateByID(ctx, bookID, bson.M{"$push": bson.M{"reviews": rv}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrBookNotFound
	}
	return nil
}

func (r *mongoBookRepo) UpdateReview(ctx context.Context, bookID, reviewID, userID primitive.ObjectID, rating int, text string) error {
	filter := bson.M{
		"_id":     bookID,
		"reviews": bson.M{"$elemMatch": bson.M{"_id": reviewID, "userId": userID}},
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"reviews.$.rating": rating,
		"reviews.$.review": text,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrReviewNotFound
	}
	return nil
}

func (r *mongoBookRepo) DeleteReview(ctx context.Context, bookID, reviewID, userID primitive.ObjectID) error {
	res, err := r.col.UpdateByID(ctx, bookID, bson.M{"$pull": bson.M{
		"reviews": bson.M{"_id": reviewID, "userId": userID},
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.ErrBookNotFound
	}
	if res.ModifiedCount == 0 {
		return apperr.ErrReviewNotFound
	}
	return nil
}

func (r *mongoBookRepo) ByCategories(ctx context.Context, categories []string, exclude []primitive.ObjectID, limit int64) ([]models.Book, error) {
	if len(categories) == 0 {
		return []models.Book{}, nil
	}
	filter := bson.M{"category": bson.M{"$in": categories}}
	if len(exclude) > 0 {
		filter["_id"] = bson.M{"$nin": exclude}
	}
	return r.find(ctx, filter, options.Find().SetLimit(limit))
}

func (r *mongoBookRepo) Popular(ctx context.Context, exclude []primitive.ObjectID, limit int64) ([]models.Book, error) {
	pipeline := mongo.Pipeline{}
	if len(exclude) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"_id": bson.M{"$nin": exclude}}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$addFields", Value: bson.M{
			"reviewCount": bson.M{"$size": bson.M{"$ifNull": bson.A{"$reviews", bson.A{}}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "reviewCount", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	)
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}
