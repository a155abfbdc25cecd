package service

import (
	"context"
	"time"

	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ActivityService records the interactions the recommender learns from.
type ActivityService struct {
	activities repository.ActivityRepository
	books      repository.BookRepository
	log        *zap.Logger
}

func NewActivityService(activities repository.ActivityRepository, books repository.BookRepository, log *zap.Logger) *ActivityService {
	return &ActivityService{activities: activities, books: books, log: log}
}

// Record stores an explicit activity sent by the client. The book must exist.
func (s *ActivityService) Record(ctx context.Context, userID primitive.ObjectID, req models.ActivityRequest) (*models.UserActivity, error) {
	bookID, err := ParseID(req.BookID)
	if err != nil {
		return nil, err
	}
	if _, err := s.books.FindByID(ctx, bookID); err != nil {
		return nil, err
	}
	a := &models.UserActivity{
		UserID:       userID,
		BookID:       bookID,
		ActivityType: req.ActivityType,
		Rating:       req.Rating,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.activities.Record(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Track is the fire and forget variant used as a side effect of other
// operations. Failures are only logged.
func (s *ActivityService) Track(ctx context.Context, userID, bookID primitive.ObjectID, kind string, rating *int) {
	err := s.activities.Record(ctx, &models.UserActivity{
		UserID:       userID,
		BookID:       bookID,
		ActivityType: kind,
		Rating:       rating,
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("record activity failed",
			zap.String("userId", userID.Hex()),
			zap.String("bookId", bookID.Hex()),
			zap.String("type", kind),
			zap.Error(err))
	}
}
