// Package service implements the bookstore use cases on top of the
// repositories, the cache and the event publisher. HTTP concerns stay in
// package api.
package service

import (
	"context"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/assistant"
	"bookstore-backend/internal/auth"
	"bookstore-backend/internal/cache"
	"bookstore-backend/internal/events"
	"bookstore-backend/internal/media"
	"bookstore-backend/internal/metrics"
	"bookstore-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ParseID converts a hex object id coming from a client.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.ErrInvalidID
	}
	return id, nil
}

// publishTimeout bounds how long a request waits on the broker.
const publishTimeout = 5 * time.Second

// publish sends an event and records the outcome. A nil publisher is a no-op.
func publish(ctx context.Context, pub events.Publisher, log *zap.Logger, eventType string, payload interface{}) error {
	if pub == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err := pub.Publish(ctx, eventType, payload)
	metrics.EventsPublished.WithLabelValues(eventType, metrics.Result(err)).Inc()
	if err != nil {
		log.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
	return err
}

func lineTotal(price float64, qty int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))
}

// cents rounds to two decimals and returns a float for JSON and bson.
func cents(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// Deps carries everything the services are built from. Cache, Publisher,
// Generator and Covers may be nil when the backing system is not configured.
type Deps struct {
	Store         *repository.Store
	Tokens        *auth.TokenManager
	Cache         cache.Cache
	Publisher     events.Publisher
	Generator     assistant.Generator
	Covers        media.ObjectStore
	PopularTTL    time.Duration
	ChatPerMinute int
	Log           *zap.Logger
}

type Services struct {
	Users           *UserService
	Books           *BookService
	Carts           *CartService
	Orders          *OrderService
	Recommendations *RecommendationService
	Activity        *ActivityService
	Chat            *ChatService
	Contact         *ContactService
	Admins          *AdminService
}

func New(d Deps) *Services {
	st := d.Store
	activity := NewActivityService(st.Activities, st.Books, d.Log)
	return &Services{
		Users:           NewUserService(st.Users, d.Tokens, d.Publisher, d.Log),
		Books:           NewBookService(st.Books, st.Users, activity, d.Covers, d.Log),
		Carts:           NewCartService(st.Carts, st.Books, activity, d.Log),
		Orders:          NewOrderService(st, activity, d.Cache, d.Publisher, d.Log),
		Recommendations: NewRecommendationService(st.Activities, st.Books, d.Cache, d.PopularTTL, d.Log),
		Activity:        activity,
		Chat:            NewChatService(st.Chats, d.Generator, d.Cache, d.ChatPerMinute, d.Log),
		Contact:         NewContactService(d.Publisher, d.Log),
		Admins:          NewAdminService(st.Admins, d.Tokens, d.Publisher, d.Log),
	}
}
