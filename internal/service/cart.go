package service

import (
	"context"
	"errors"
	"fmt"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ErrQuantityLimit = apperr.New(
	fmt.Sprintf("quantity must be between 1 and %d per book", models.MaxLineQuantity), apperr.ErrBadRequest)

type CartService struct {
	carts    repository.CartRepository
	books    repository.BookRepository
	activity *ActivityService
	log      *zap.Logger
}

func NewCartService(carts repository.CartRepository, books repository.BookRepository, activity *ActivityService, log *zap.Logger) *CartService {
	return &CartService{carts: carts, books: books, activity: activity, log: log}
}

// Get returns the caller's cart hydrated with book details. A user without a
// cart gets an empty one.
func (s *CartService) Get(ctx context.Context, userID primitive.ObjectID) (*models.CartView, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, apperr.ErrCartNotFound) {
		return &models.CartView{UserID: userID.Hex(), Items: []models.CartLine{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

func (s *CartService) view(ctx context.Context, c *models.Cart) (*models.CartView, error) {
	ids := make([]primitive.ObjectID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.BookID)
	}
	books, err := s.books.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.Book, len(books))
	for i := range books {
		byID[books[i].ID] = &books[i]
	}

	v := &models.CartView{UserID: c.UserID.Hex(), Items: make([]models.CartLine, 0, len(c.Items))}
	total := decimal.Zero
	for _, it := range c.Items {
		line := models.CartLine{BookID: it.BookID.Hex(), Quantity: it.Quantity}
		// books removed from the catalogue stay in the cart without a price
		if b, ok := byID[it.BookID]; ok {
			sub := lineTotal(b.Price, it.Quantity)
			line.Book = b
			line.Subtotal = cents(sub)
			total = total.Add(sub)
		}
		v.Items = append(v.Items, line)
	}
	v.Total = cents(total)
	return v, nil
}

// Add merges quantities for a book already in the cart and otherwise
// appends it after checking that it exists.
func (s *CartService) Add(ctx context.Context, userID primitive.ObjectID, req models.CartAddRequest) (*models.CartView, error) {
	bookID, err := ParseID(req.BookID)
	if err != nil {
		return nil, err
	}
	qty := req.Quantity
	if qty < 1 {
		qty = 1
	}
	if qty > models.MaxLineQuantity {
		return nil, ErrQuantityLimit
	}

	c, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, apperr.ErrCartNotFound) {
		c = &models.Cart{UserID: userID}
	} else if err != nil {
		return nil, err
	}

	found := false
	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			if c.Items[i].Quantity+qty > models.MaxLineQuantity {
				return nil, ErrQuantityLimit
			}
			c.Items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		if _, err := s.books.FindByID(ctx, bookID); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, models.CartItem{BookID: bookID, Quantity: qty})
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	s.activity.Track(ctx, userID, bookID, models.ActivityCart, nil)
	return s.view(ctx, c)
}

func (s *CartService) Remove(ctx context.Context, userID primitive.ObjectID, req models.CartRemoveRequest) (*models.CartView, error) {
	bookID, err := ParseID(req.BookID)
	if err != nil {
		return nil, err
	}
	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.BookID != bookID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

func (s *CartService) Clear(ctx context.Context, userID primitive.ObjectID) error {
	return s.carts.Delete(ctx, userID)
}
