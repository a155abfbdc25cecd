// Package repotest provides in-memory repositories for service and handler
// tests. They follow the error contract of the mongo implementations.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewStore returns a repository.Store backed by memory.
func NewStore() *repository.Store {
	return &repository.Store{
		Users:      &Users{},
		Books:      &Books{},
		Carts:      &Carts{},
		Orders:     &Orders{},
		Chats:      &Chats{},
		Activities: &Activities{},
		Admins:     &Admins{},
	}
}

func contains(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

type Users struct {
	mu    sync.Mutex
	items []models.User
}

func (r *Users) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, x := range r.items {
		if x.Email == u.Email {
			return apperr.ErrEmailTaken
		}
	}
	u.ID = primitive.NewObjectID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.items = append(r.items, *u)
	return nil
}

func (r *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.items {
		if x.ID == id {
			u := x
			return &u, nil
		}
	}
	return nil, apperr.ErrUserNotFound
}

func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, x := range r.items {
		if x.Email == email {
			u := x
			return &u, nil
		}
	}
	return nil, apperr.ErrUserNotFound
}

func (r *Users) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *Users) Recent(_ context.Context, limit int64) ([]models.User, error) {
	r.mu.Lock()
	out := append([]models.User(nil), r.items...)
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Password = ""
	}
	return out, nil
}

type Books struct {
	mu    sync.Mutex
	items []models.Book
}

func cloneBook(b models.Book) models.Book {
	b.Reviews = append([]models.Review{}, b.Reviews...)
	return b
}

func (r *Books) snapshot() []models.Book {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Book, len(r.items))
	for i := range r.items {
		out[i] = cloneBook(r.items[i])
	}
	return out
}

func (r *Books) index(id primitive.ObjectID) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Books) List(context.Context) ([]models.Book, error) {
	return r.snapshot(), nil
}

func (r *Books) Search(_ context.Context, q string) ([]models.Book, error) {
	q = strings.ToLower(q)
	out := []models.Book{}
	for _, b := range r.snapshot() {
		if strings.Contains(strings.ToLower(b.Name), q) || strings.Contains(strings.ToLower(b.Category), q) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *Books) FindByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, apperr.ErrBookNotFound
	}
	b := cloneBook(r.items[i])
	return &b, nil
}

func (r *Books) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Book, error) {
	out := []models.Book{}
	for _, b := range r.snapshot() {
		if contains(ids, b.ID) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *Books) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *Books) CountByCategory(_ context.Context, category string) (int64, error) {
	var n int64
	for _, b := range r.snapshot() {
		if b.Category == category {
			n++
		}
	}
	return n, nil
}

func (r *Books) Create(_ context.Context, b *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = primitive.NewObjectID()
	if b.Reviews == nil {
		b.Reviews = []models.Review{}
	}
	r.items = append(r.items, cloneBook(*b))
	return nil
}

func (r *Books) InsertMany(ctx context.Context, books []models.Book) error {
	for i := range books {
		if err := r.Create(ctx, &books[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Books) Update(_ context.Context, b *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(b.ID)
	if i < 0 {
		return apperr.ErrBookNotFound
	}
	cur := &r.items[i]
	cur.Name, cur.Price, cur.Category, cur.Image, cur.Title = b.Name, b.Price, b.Category, b.Image, b.Title
	return nil
}

func (r *Books) SetCover(_ context.Context, id primitive.ObjectID, image, thumb string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return apperr.ErrBookNotFound
	}
	r.items[i].Image, r.items[i].Thumb = image, thumb
	return nil
}

func (r *Books) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return apperr.ErrBookNotFound
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

func (r *Books) AddReview(_ context.Context, bookID primitive.ObjectID, rv models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(bookID)
	if i < 0 {
		return apperr.ErrBookNotFound
	}
	r.items[i].Reviews = append(r.items[i].Reviews, rv)
	return nil
}

func (r *Books) UpdateReview(_ context.Context, bookID, reviewID, userID primitive.ObjectID, rating int, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(bookID)
	if i < 0 {
		return apperr.ErrReviewNotFound
	}
	j := r.items[i].FindReview(reviewID)
	if j < 0 || r.items[i].Reviews[j].UserID != userID {
		return apperr.ErrReviewNotFound
	}
	r.items[i].Reviews[j].Rating = rating
	r.items[i].Reviews[j].Review = text
	return nil
}

func (r *Books) DeleteReview(_ context.Context, bookID, reviewID, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(bookID)
	if i < 0 {
		return apperr.ErrBookNotFound
	}
	j := r.items[i].FindReview(reviewID)
	if j < 0 || r.items[i].Reviews[j].UserID != userID {
		return apperr.ErrReviewNotFound
	}
	rs := r.items[i].Reviews
	r.items[i].Reviews = append(append([]models.Review{}, rs[:j]...), rs[j+1:]...)
	return nil
}

func (r *Books) ByCategories(_ context.Context, categories []string, exclude []primitive.ObjectID, limit int64) ([]models.Book, error) {
	out := []models.Book{}
	for _, b := range r.snapshot() {
		if int64(len(out)) >= limit {
			break
		}
		if contains(exclude, b.ID) {
			continue
		}
		for _, c := range categories {
			if b.Category == c {
				out = append(out, b)
				break
			}
		}
	}
	return out, nil
}

func (r *Books) Popular(_ context.Context, exclude []primitive.ObjectID, limit int64) ([]models.Book, error) {
	out := []models.Book{}
	for _, b := range r.snapshot() {
		if !contains(exclude, b.ID) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Reviews) > len(out[j].Reviews) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type Carts struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Cart
}

func (r *Carts) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[userID]
	if !ok {
		return nil, apperr.ErrCartNotFound
	}
	c.Items = append([]models.CartItem{}, c.Items...)
	return &c, nil
}

func (r *Carts) Save(_ context.Context, c *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = map[primitive.ObjectID]models.Cart{}
	}
	if c.ID.IsZero() {
		if old, ok := r.items[c.UserID]; ok {
			c.ID = old.ID
		} else {
			c.ID = primitive.NewObjectID()
		}
	}
	cp := *c
	cp.Items = append([]models.CartItem{}, c.Items...)
	r.items[c.UserID] = cp
	return nil
}

func (r *Carts) Delete(_ context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, userID)
	return nil
}

type Orders struct {
	mu    sync.Mutex
	items []models.Order
}

func (r *Orders) Create(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	r.items = append(r.items, *o)
	return nil
}

func (r *Orders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.items {
		if o.ID == id {
			cp := o
			return &cp, nil
		}
	}
	return nil, apperr.ErrOrderNotFound
}

func (r *Orders) newestFirst(keep func(models.Order) bool) []models.Order {
	r.mu.Lock()
	out := []models.Order{}
	for _, o := range r.items {
		if keep(o) {
			out = append(out, o)
		}
	}
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *Orders) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.newestFirst(func(o models.Order) bool { return o.User == userID }), nil
}

func (r *Orders) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *Orders) RevenueByMonth(context.Context) ([]models.MonthlyRevenue, error) {
	r.mu.Lock()
	sums := map[int]float64{}
	for _, o := range r.items {
		sums[int(o.CreatedAt.Month())] += o.TotalAmount
	}
	r.mu.Unlock()
	out := []models.MonthlyRevenue{}
	for m, amt := range sums {
		out = append(out, models.MonthlyRevenue{Month: m, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (r *Orders) Recent(_ context.Context, limit int64) ([]models.Order, error) {
	out := r.newestFirst(func(models.Order) bool { return true })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type Chats struct {
	mu    sync.Mutex
	items []models.ChatSession
}

func (r *Chats) index(id primitive.ObjectID) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Chats) Create(_ context.Context, s *models.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = primitive.NewObjectID()
	if s.Messages == nil {
		s.Messages = []models.ChatMessage{}
	}
	r.items = append(r.items, *s)
	return nil
}

func (r *Chats) FindByID(_ context.Context, id primitive.ObjectID) (*models.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, apperr.ErrSessionNotFound
	}
	s := r.items[i]
	s.Messages = append([]models.ChatMessage{}, s.Messages...)
	return &s, nil
}

func (r *Chats) AppendMessages(_ context.Context, id primitive.ObjectID, msgs []models.ChatMessage, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return apperr.ErrSessionNotFound
	}
	r.items[i].Messages = append(r.items[i].Messages, msgs...)
	r.items[i].LastActivity = at
	return nil
}

func (r *Chats) ListByUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]models.ChatSession, error) {
	r.mu.Lock()
	out := []models.ChatSession{}
	for _, s := range r.items {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Chats) End(_ context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 || r.items[i].UserID != userID {
		return apperr.ErrSessionNotFound
	}
	r.items[i].Active = false
	return nil
}

type Activities struct {
	mu    sync.Mutex
	items []models.UserActivity
}

func (r *Activities) Record(_ context.Context, a *models.UserActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = primitive.NewObjectID()
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	r.items = append(r.items, *a)
	return nil
}

func (r *Activities) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.UserActivity, error) {
	r.mu.Lock()
	out := []models.UserActivity{}
	for _, a := range r.items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

type Admins struct {
	mu    sync.Mutex
	items []models.AdminUser
}

func (r *Admins) Create(_ context.Context, a *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	for _, x := range r.items {
		if x.Email == a.Email {
			return apperr.ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	a.ID, a.CreatedAt, a.UpdatedAt = primitive.NewObjectID(), now, now
	r.items = append(r.items, *a)
	return nil
}

func (r *Admins) FindByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, x := range r.items {
		if x.Email == email {
			a := x
			return &a, nil
		}
	}
	return nil, apperr.ErrAdminNotFound
}

func (r *Admins) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *Admins) TouchLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].LastLogin = &at
			r.items[i].UpdatedAt = at
		}
	}
	return nil
}

var (
	_ repository.UserRepository     = (*Users)(nil)
	_ repository.BookRepository     = (*Books)(nil)
	_ repository.CartRepository     = (*Carts)(nil)
	_ repository.OrderRepository    = (*Orders)(nil)
	_ repository.ChatRepository     = (*Chats)(nil)
	_ repository.ActivityRepository = (*Activities)(nil)
	_ repository.AdminRepository    = (*Admins)(nil)
)
