package service

import (
	"context"
	"sort"
	"time"

	"bookstore-backend/internal/cache"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	RecommendPopular      = "popular"
	RecommendPersonalized = "personalized"

	popularCacheKey  = "books:popular"
	recommendLimit   = 10
	recommendMinimum = 5
	topGenres        = 3
)

var activityWeight = map[string]int{
	models.ActivityPurchase: 5,
	models.ActivityReview:   3,
	models.ActivityWishlist: 2,
}

type Recommendations struct {
	Books           []models.Book `json:"recommendations"`
	PreferredGenres []string      `json:"preferredGenres,omitempty"`
	Type            string        `json:"type"`
}

type RecommendationService struct {
	activities repository.ActivityRepository
	books      repository.BookRepository
	cache      cache.Cache
	popularTTL time.Duration
	log        *zap.Logger
}

func NewRecommendationService(activities repository.ActivityRepository, books repository.BookRepository, c cache.Cache, popularTTL time.Duration, log *zap.Logger) *RecommendationService {
	return &RecommendationService{activities: activities, books: books, cache: c, popularTTL: popularTTL, log: log}
}

// For builds recommendations from the user's weighted genre preferences.
// Users without history get the most reviewed books.
func (s *RecommendationService) For(ctx context.Context, userID primitive.ObjectID) (*Recommendations, error) {
	acts, err := s.activities.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(acts) == 0 {
		books, err := s.popular(ctx)
		if err != nil {
			return nil, err
		}
		return &Recommendations{Books: books, Type: RecommendPopular}, nil
	}

	seen := make([]primitive.ObjectID, 0, len(acts))
	seenSet := map[primitive.ObjectID]bool{}
	for _, a := range acts {
		if !seenSet[a.BookID] {
			seenSet[a.BookID] = true
			seen = append(seen, a.BookID)
		}
	}
	books, err := s.books.FindByIDs(ctx, seen)
	if err != nil {
		return nil, err
	}
	genreOf := make(map[primitive.ObjectID]string, len(books))
	for _, b := range books {
		genreOf[b.ID] = b.Category
	}

	genres := PreferredGenres(acts, genreOf)
	recs, err := s.books.ByCategories(ctx, genres, seen, recommendLimit)
	if err != nil {
		return nil, err
	}
	if len(recs) < recommendMinimum {
		exclude := append([]primitive.ObjectID{}, seen...)
		for _, b := range recs {
			exclude = append(exclude, b.ID)
		}
		more, err := s.books.Popular(ctx, exclude, int64(recommendLimit-len(recs)))
		if err != nil {
			return nil, err
		}
		recs = append(recs, more...)
	}
	return &Recommendations{Books: recs, PreferredGenres: genres, Type: RecommendPersonalized}, nil
}

// PreferredGenres scores every genre the user touched and returns the top
// three. Activities on books missing from genreOf are ignored. Ties keep the
// order in which the genres were first seen.
func PreferredGenres(acts []models.UserActivity, genreOf map[primitive.ObjectID]string) []string {
	score := map[string]int{}
	var order []string
	for _, a := range acts {
		g, ok := genreOf[a.BookID]
		if !ok || g == "" {
			continue
		}
		w, ok := activityWeight[a.ActivityType]
		if !ok {
			w = 1
		}
		if a.Rating != nil {
			w += *a.Rating
		}
		if _, known := score[g]; !known {
			order = append(order, g)
		}
		score[g] += w
	}
	sort.SliceStable(order, func(i, j int) bool { return score[order[i]] > score[order[j]] })
	if len(order) > topGenres {
		order = order[:topGenres]
	}
	return append([]string{}, order...)
}

func (s *RecommendationService) popular(ctx context.Context) ([]models.Book, error) {
	if s.cache != nil {
		var cached []models.Book
		ok, err := cache.GetJSON(ctx, s.cache, popularCacheKey, &cached)
		if err != nil {
			s.log.Warn("read popular books cache failed", zap.Error(err))
		}
		if ok {
			return cached, nil
		}
	}
	books, err := s.books.Popular(ctx, nil, recommendLimit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, popularCacheKey, books, s.popularTTL); err != nil {
			s.log.Warn("write popular books cache failed", zap.Error(err))
		}
	}
	return books, nil
}
