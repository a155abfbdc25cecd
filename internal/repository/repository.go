package repository

import (
	"context"
	"time"

	"bookstore-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int64) ([]models.User, error)
}

type BookRepository interface {
	List(ctx context.Context) ([]models.Book, error)
	Search(ctx context.Context, q string) ([]models.Book, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Book, error)
	Count(ctx context.Context) (int64, error)
	CountByCategory(ctx context.Context, category string) (int64, error)
	Create(ctx context.Context, b *models.Book) error
	InsertMany(ctx context.Context, books []models.Book) error
	Update(ctx context.Context, b *models.Book) error
	SetCover(ctx context.Context, id primitive.ObjectID, image, thumb string) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	AddReview(ctx context.Context, bookID primitive.ObjectID, r models.Review) error
	// UpdateReview and DeleteReview only touch a review written by userID.
	UpdateReview(ctx context.Context, bookID, reviewID, userID primitive.ObjectID, rating int, text string) error
	DeleteReview(ctx context.Context, bookID, reviewID, userID primitive.ObjectID) error

	ByCategories(ctx context.Context, categories []string, exclude []primitive.ObjectID, limit int64) ([]models.Book, error)
	// Popular orders books by number of reviews, most reviewed first.
	Popular(ctx context.Context, exclude []primitive.ObjectID, limit int64) ([]models.Book, error)
}

type CartRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Save(ctx context.Context, c *models.Cart) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	Count(ctx context.Context) (int64, error)
	RevenueByMonth(ctx context.Context) ([]models.MonthlyRevenue, error)
	Recent(ctx context.Context, limit int64) ([]models.Order, error)
}

type ChatRepository interface {
	Create(ctx context.Context, s *models.ChatSession) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ChatSession, error)
	AppendMessages(ctx context.Context, id primitive.ObjectID, msgs []models.ChatMessage, at time.Time) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.ChatSession, error)
	End(ctx context.Context, id, userID primitive.ObjectID) error
}

type ActivityRepository interface {
	Record(ctx context.Context, a *models.UserActivity) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.UserActivity, error)
}

type AdminRepository interface {
	Create(ctx context.Context, a *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Count(ctx context.Context) (int64, error)
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// Store groups every repository the services depend on.
type Store struct {
	Users      UserRepository
	Books      BookRepository
	Carts      CartRepository
	Orders     OrderRepository
	Chats      ChatRepository
	Activities ActivityRepository
	Admins     AdminRepository
}

// NewMongoStore wires the mongo repositories and creates their indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	users, err := NewMongoUserRepo(ctx, db)
	if err != nil {
		return nil, err
	}
	books, err := NewMongoBookRepo(ctx, db)
	if err != nil {
		return nil, err
	}
	carts, err := NewMongoCartRepo(ctx, db)
	if err != nil {
		return nil, err
	}
	orders, err := NewMongoOrderRepo(ctx, db)
	if err != nil {
		return nil, err
	}
	chats, err := NewMongoChatRepo(ctx, db)
	if err != nil {
		return nil, err
	}
	activities, err := NewMongoActivityRepo(ctx, db)
	if err != nil {
		return nil, err
	}
	admins, err := NewMongoAdminRepo(ctx, db)
	if err != nil {
		return nil, err
	}
	return &Store{
		Users:      users,
		Books:      books,
		Carts:      carts,
		Orders:     orders,
		Chats:      chats,
		Activities: activities,
		Admins:     admins,
	}, nil
}
