package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/media"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrSearchQuery        = apperr.NewValidation("search query is required")
	ErrStorageUnavailable = apperr.New("cover storage is not configured", apperr.ErrServiceUnavailable)
	ErrBadCover           = apperr.New("cover must be a JPEG, PNG or GIF image", apperr.ErrBadRequest)
)

type BookService struct {
	books    repository.BookRepository
	users    repository.UserRepository
	activity *ActivityService
	store    media.ObjectStore
	log      *zap.Logger
}

// NewBookService accepts a nil store, in which case cover uploads fail
// with ErrStorageUnavailable.
func NewBookService(books repository.BookRepository, users repository.UserRepository, activity *ActivityService, store media.ObjectStore, log *zap.Logger) *BookService {
	return &BookService{books: books, users: users, activity: activity, store: store, log: log}
}

func (s *BookService) List(ctx context.Context) ([]models.Book, error) {
	return s.books.List(ctx)
}

func (s *BookService) Search(ctx context.Context, q string) ([]models.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrSearchQuery
	}
	return s.books.Search(ctx, q)
}

func (s *BookService) Count(ctx context.Context) (int64, error) {
	return s.books.Count(ctx)
}

// Get returns a book. When viewer is set a view activity is recorded.
func (s *BookService) Get(ctx context.Context, id primitive.ObjectID, viewer *primitive.ObjectID) (*models.Book, error) {
	b, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer != nil {
		s.activity.Track(ctx, *viewer, id, models.ActivityView, nil)
	}
	return b, nil
}

func (s *BookService) AddReview(ctx context.Context, bookID, userID primitive.ObjectID, req models.ReviewRequest) (*models.Review, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	r := models.Review{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Username:  u.Fullname,
		Rating:    req.Rating,
		Review:    strings.TrimSpace(req.Review),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.books.AddReview(ctx, bookID, r); err != nil {
		return nil, err
	}
	rating := req.Rating
	s.activity.Track(ctx, userID, bookID, models.ActivityReview, &rating)
	return &r, nil
}

// ownedReview loads the book and checks that reviewID exists and was written
// by userID.
func (s *BookService) ownedReview(ctx context.Context, bookID, reviewID, userID primitive.ObjectID) (*models.Book, int, error) {
	b, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, -1, err
	}
	i := b.FindReview(reviewID)
	if i < 0 {
		return nil, -1, apperr.ErrReviewNotFound
	}
	if b.Reviews[i].UserID != userID {
		return nil, -1, apperr.ErrNotOwner
	}
	return b, i, nil
}

func (s *BookService) UpdateReview(ctx context.Context, bookID, reviewID, userID primitive.ObjectID, req models.ReviewRequest) (*models.Review, error) {
	b, i, err := s.ownedReview(ctx, bookID, reviewID, userID)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Review)
	if err := s.books.UpdateReview(ctx, bookID, reviewID, userID, req.Rating, text); err != nil {
		return nil, err
	}
	r := b.Reviews[i]
	r.Rating = req.Rating
	r.Review = text
	return &r, nil
}

func (s *BookService) DeleteReview(ctx context.Context, bookID, reviewID, userID primitive.ObjectID) error {
	if _, _, err := s.ownedReview(ctx, bookID, reviewID, userID); err != nil {
		return err
	}
	return s.books.DeleteReview(ctx, bookID, reviewID, userID)
}

func (s *BookService) Create(ctx context.Context, req models.BookRequest) (*models.Book, error) {
	b := &models.Book{
		Name:     strings.TrimSpace(req.Name),
		Price:    req.Price,
		Category: strings.TrimSpace(req.Category),
		Image:    req.Image,
		Title:    req.Title,
		Reviews:  []models.Review{},
	}
	if err := s.books.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Update replaces the catalogue fields and keeps reviews and the thumbnail.
func (s *BookService) Update(ctx context.Context, id primitive.ObjectID, req models.BookRequest) (*models.Book, error) {
	b, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Name = strings.TrimSpace(req.Name)
	b.Price = req.Price
	b.Category = strings.TrimSpace(req.Category)
	b.Title = req.Title
	if req.Image != "" {
		b.Image = req.Image
	}
	if err := s.books.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.books.Delete(ctx, id)
}

// UploadCover stores the original image and a JPEG thumbnail, then points
// the book at both.
func (s *BookService) UploadCover(ctx context.Context, id primitive.ObjectID, data []byte) (*models.Book, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	b, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ct, ext, err := media.DetectImage(data)
	if err != nil {
		return nil, ErrBadCover
	}
	thumb, err := media.Thumbnail(data)
	if err != nil {
		return nil, ErrBadCover
	}

	stamp := time.Now().UTC().Unix()
	imageURL, err := s.store.Put(ctx, fmt.Sprintf("books/%s/cover-%d%s", id.Hex(), stamp, ext), ct, data)
	if err != nil {
		return nil, fmt.Errorf("upload cover: %w", err)
	}
	thumbURL, err := s.store.Put(ctx, fmt.Sprintf("books/%s/thumb-%d.jpg", id.Hex(), stamp), "image/jpeg", thumb)
	if err != nil {
		return nil, fmt.Errorf("upload thumbnail: %w", err)
	}
	if err := s.books.SetCover(ctx, id, imageURL, thumbURL); err != nil {
		return nil, err
	}
	s.log.Info("book cover updated", zap.String("bookId", id.Hex()), zap.String("image", imageURL))
	b.Image = imageURL
	b.Thumb = thumbURL
	return b, nil
}
