package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/assistant"
	"bookstore-backend/internal/auth"
	"bookstore-backend/internal/cache"
	"bookstore-backend/internal/events"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"
	"bookstore-backend/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const strongPassword = "Reader#2024ok"

type recorder struct {
	mu    sync.Mutex
	types []string
	last  map[string]interface{}
	fail  error
}

func (r *recorder) Publish(_ context.Context, eventType string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	if r.last == nil {
		r.last = map[string]interface{}{}
	}
	r.types = append(r.types, eventType)
	r.last[eventType] = payload
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.types...)
}

type fakeGenerator struct {
	reply string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ []models.ChatMessage, _ string) (string, error) {
	g.calls++
	return g.reply, g.err
}

type fixture struct {
	store *repository.Store
	svc   *Services
	pub   *recorder
	cache *cache.Memory
	gen   *fakeGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repotest.NewStore(),
		pub:   &recorder{},
		cache: cache.NewMemory(),
		gen:   &fakeGenerator{reply: "**Dune** is a classic"},
	}
	f.svc = New(Deps{
		Store:         f.store,
		Tokens:        auth.NewTokenManager("test-secret", time.Hour),
		Cache:         f.cache,
		Publisher:     f.pub,
		Generator:     f.gen,
		PopularTTL:    time.Minute,
		ChatPerMinute: 3,
		Log:           zap.NewNop(),
	})
	return f
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Fullname: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, f.store.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) book(t *testing.T, name, category string, price float64) *models.Book {
	t.Helper()
	b := &models.Book{Name: name, Category: category, Price: price}
	require.NoError(t, f.store.Books.Create(context.Background(), b))
	return b
}

func TestSignupEnforcesPasswordPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Users.Signup(ctx, models.SignupRequest{Fullname: "Ann", Email: "ann@example.com", Password: "short"})
	var v *apperr.Validation
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v.Problems, "Password must be at least 8 characters long")
	assert.Contains(t, v.Problems, "Password must contain at least 2 numbers")
	assert.Equal(t, 400, apperr.Status(err))

	u, err := f.svc.Users.Signup(ctx, models.SignupRequest{Fullname: "Ann", Email: " Ann@Example.com ", Password: strongPassword})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.NotEqual(t, strongPassword, u.Password)
	assert.Equal(t, []string{events.TypeUserRegistered}, f.pub.Types())

	_, err = f.svc.Users.Signup(ctx, models.SignupRequest{Fullname: "Ann", Email: "ann@example.com", Password: strongPassword})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSignupAcceptsPasswordLongerThanBcryptLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	long := "Aa#12" + strings.Repeat("x", 75)

	_, err := f.svc.Users.Signup(ctx, models.SignupRequest{Fullname: "Lee", Email: "lee@example.com", Password: long})
	require.NoError(t, err)

	_, _, _, err = f.svc.Users.Login(ctx, models.LoginRequest{Email: "lee@example.com", Password: long})
	require.NoError(t, err)
	_, _, _, err = f.svc.Users.Login(ctx, models.LoginRequest{Email: "lee@example.com", Password: long[:72]})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = f.svc.Admins.Register(ctx, models.AdminRegisterRequest{Fullname: "Root", Email: "root@example.com", Password: long}, nil)
	require.NoError(t, err)
	_, _, _, err = f.svc.Admins.Login(ctx, models.LoginRequest{Email: "root@example.com", Password: long})
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Users.Signup(ctx, models.SignupRequest{Fullname: "Bo", Email: "bo@example.com", Password: strongPassword})
	require.NoError(t, err)

	_, _, _, err = f.svc.Users.Login(ctx, models.LoginRequest{Email: "bo@example.com", Password: "Wrong#1234"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, _, _, err = f.svc.Users.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: strongPassword})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	u, token, exp, err := f.svc.Users.Login(ctx, models.LoginRequest{Email: "BO@example.com", Password: strongPassword})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	claims, err := auth.NewTokenManager("test-secret", time.Hour).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestCartAddMergesQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "cara")
	b := f.book(t, "Dune", "Sci-Fi", 19.99)

	_, err := f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: b.ID.Hex(), Quantity: 2})
	require.NoError(t, err)
	v, err := f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: b.ID.Hex(), Quantity: 3})
	require.NoError(t, err)

	require.Len(t, v.Items, 1)
	assert.Equal(t, 5, v.Items[0].Quantity)
	assert.Equal(t, 99.95, v.Items[0].Subtotal)
	assert.Equal(t, 99.95, v.Total)
	require.NotNil(t, v.Items[0].Book)
	assert.Equal(t, "Dune", v.Items[0].Book.Name)

	v, err = f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: b.ID.Hex()})
	require.NoError(t, err)
	assert.Equal(t, 6, v.Items[0].Quantity)

	_, err = f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: primitive.NewObjectID().Hex()})
	assert.ErrorIs(t, err, apperr.ErrBookNotFound)

	acts, err := f.store.Activities.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, acts, 3)
}

func TestCartQuantityIsCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "cody")
	b := f.book(t, "Dune", "Sci-Fi", 10)

	_, err := f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: b.ID.Hex(), Quantity: math.MaxInt})
	assert.ErrorIs(t, err, ErrQuantityLimit)
	assert.Equal(t, 400, apperr.Status(err))

	_, err = f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: b.ID.Hex(), Quantity: models.MaxLineQuantity})
	require.NoError(t, err)
	_, err = f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: b.ID.Hex(), Quantity: 1})
	assert.ErrorIs(t, err, ErrQuantityLimit)

	v, err := f.svc.Carts.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, models.MaxLineQuantity, v.Items[0].Quantity)
	assert.Equal(t, 10000.0, v.Total)
}

func TestCreateOrderRejectsOversizedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "otto")
	b := f.book(t, "Dune", "Sci-Fi", 10)

	_, _, err := f.svc.Orders.Create(ctx, u.ID, models.OrderRequest{
		Books:           []models.OrderLineRequest{{Book: b.ID.Hex(), Quantity: models.MaxLineQuantity + 1}},
		ShippingAddress: shipping,
	}, "")
	assert.ErrorIs(t, err, ErrQuantityLimit)

	// a cart written before the cap existed
	require.NoError(t, f.store.Carts.Save(ctx, &models.Cart{
		UserID: u.ID,
		Items:  []models.CartItem{{BookID: b.ID, Quantity: math.MinInt}},
	}))
	_, _, err = f.svc.Orders.Create(ctx, u.ID, models.OrderRequest{ShippingAddress: shipping, PaymentMethod: "cod"}, "")
	assert.ErrorIs(t, err, ErrQuantityLimit)

	n, err := f.store.Orders.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = f.store.Carts.FindByUser(ctx, u.ID)
	assert.NoError(t, err)
}

func TestCartRemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "dan")
	a := f.book(t, "Emma", "Classic", 8.5)
	b := f.book(t, "Ulysses", "Classic", 12)

	v, err := f.svc.Carts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.NotNil(t, v.Items)

	_, err = f.svc.Carts.Remove(ctx, u.ID, models.CartRemoveRequest{BookID: a.ID.Hex()})
	assert.ErrorIs(t, err, apperr.ErrCartNotFound)

	_, err = f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: a.ID.Hex()})
	require.NoError(t, err)
	_, err = f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: b.ID.Hex(), Quantity: 2})
	require.NoError(t, err)

	v, err = f.svc.Carts.Remove(ctx, u.ID, models.CartRemoveRequest{BookID: a.ID.Hex()})
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, b.ID.Hex(), v.Items[0].BookID)
	assert.Equal(t, 24.0, v.Total)

	require.NoError(t, f.svc.Carts.Clear(ctx, u.ID))
	v, err = f.svc.Carts.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
}

func TestDeleteReviewByNonOwnerIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.user(t, "erin")
	other := f.user(t, "finn")
	b := f.book(t, "Dune", "Sci-Fi", 10)

	r, err := f.svc.Books.AddReview(ctx, b.ID, author.ID, models.ReviewRequest{Rating: 4, Review: "great"})
	require.NoError(t, err)
	assert.Equal(t, "erin", r.Username)

	err = f.svc.Books.DeleteReview(ctx, b.ID, r.ID, other.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Books.UpdateReview(ctx, b.ID, r.ID, other.ID, models.ReviewRequest{Rating: 1, Review: "bad"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := f.store.Books.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Reviews, 1)
	assert.Equal(t, 4, got.Reviews[0].Rating)

	err = f.svc.Books.DeleteReview(ctx, b.ID, primitive.NewObjectID(), author.ID)
	assert.ErrorIs(t, err, apperr.ErrReviewNotFound)
	err = f.svc.Books.DeleteReview(ctx, primitive.NewObjectID(), r.ID, author.ID)
	assert.ErrorIs(t, err, apperr.ErrBookNotFound)

	upd, err := f.svc.Books.UpdateReview(ctx, b.ID, r.ID, author.ID, models.ReviewRequest{Rating: 5, Review: " even better "})
	require.NoError(t, err)
	assert.Equal(t, 5, upd.Rating)
	assert.Equal(t, "even better", upd.Review)

	require.NoError(t, f.svc.Books.DeleteReview(ctx, b.ID, r.ID, author.ID))
	got, err = f.store.Books.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Reviews)
}

func TestSearchRequiresQuery(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Books.Search(context.Background(), "  ")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestGetBookRecordsViewForSignedInUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "gus")
	b := f.book(t, "Emma", "Classic", 8)

	_, err := f.svc.Books.Get(ctx, b.ID, nil)
	require.NoError(t, err)
	_, err = f.svc.Books.Get(ctx, b.ID, &u.ID)
	require.NoError(t, err)

	acts, err := f.store.Activities.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityView, acts[0].ActivityType)
}

func TestUploadCoverWithoutStorage(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "Emma", "Classic", 8)
	_, err := f.svc.Books.UploadCover(context.Background(), b.ID, []byte("x"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Equal(t, 503, apperr.Status(err))
}

var shipping = models.ShippingAddress{Street: "1 Main St", City: "Springfield", ZipCode: "12345", Country: "US"}

func TestCreateOrderPricesFromCatalogue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "hana")
	a := f.book(t, "Dune", "Sci-Fi", 19.99)
	b := f.book(t, "Emma", "Classic", 5.1)

	_, err := f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: a.ID.Hex()})
	require.NoError(t, err)

	o, replayed, err := f.svc.Orders.Create(ctx, u.ID, models.OrderRequest{
		Books: []models.OrderLineRequest{
			{Book: a.ID.Hex(), Quantity: 3},
			{Book: b.ID.Hex(), Quantity: 1},
		},
		ShippingAddress: shipping,
		PaymentMethod:   "card",
	}, "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 65.07, o.TotalAmount)
	require.Len(t, o.Books, 2)
	assert.Equal(t, "Dune", o.Books[0].Name)
	assert.Equal(t, 19.99, o.Books[0].Price)

	_, err = f.store.Carts.FindByUser(ctx, u.ID)
	assert.ErrorIs(t, err, apperr.ErrCartNotFound)

	acts, err := f.store.Activities.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	purchases := 0
	for _, act := range acts {
		if act.ActivityType == models.ActivityPurchase {
			purchases++
		}
	}
	assert.Equal(t, 2, purchases)

	assert.Contains(t, f.pub.Types(), events.TypeOrderCreated)
	evt := f.pub.last[events.TypeOrderCreated].(events.OrderCreated)
	assert.Equal(t, u.Email, evt.Email)
	assert.Equal(t, 65.07, evt.Total)
}

func TestCreateOrderFallsBackToCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ivan")
	a := f.book(t, "Dune", "Sci-Fi", 10)

	_, _, err := f.svc.Orders.Create(ctx, u.ID, models.OrderRequest{ShippingAddress: shipping, PaymentMethod: "cod"}, "")
	assert.ErrorIs(t, err, apperr.ErrEmptyOrder)

	_, err = f.svc.Carts.Add(ctx, u.ID, models.CartAddRequest{BookID: a.ID.Hex(), Quantity: 2})
	require.NoError(t, err)
	o, _, err := f.svc.Orders.Create(ctx, u.ID, models.OrderRequest{ShippingAddress: shipping, PaymentMethod: "cod"}, "")
	require.NoError(t, err)
	assert.Equal(t, 20.0, o.TotalAmount)

	_, _, err = f.svc.Orders.Create(ctx, u.ID, models.OrderRequest{
		Books:           []models.OrderLineRequest{{Book: primitive.NewObjectID().Hex(), Quantity: 1}},
		ShippingAddress: shipping,
	}, "")
	assert.ErrorIs(t, err, apperr.ErrBookNotFound)
}

func TestCreateOrderIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "jo")
	a := f.book(t, "Dune", "Sci-Fi", 10)
	req := models.OrderRequest{
		Books:           []models.OrderLineRequest{{Book: a.ID.Hex(), Quantity: 1}},
		ShippingAddress: shipping,
		PaymentMethod:   "card",
	}

	first, replayed, err := f.svc.Orders.Create(ctx, u.ID, req, "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := f.svc.Orders.Create(ctx, u.ID, req, "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	n, err := f.store.Orders.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// a failed attempt releases its key
	bad := req
	bad.Books = []models.OrderLineRequest{{Book: primitive.NewObjectID().Hex(), Quantity: 1}}
	_, _, err = f.svc.Orders.Create(ctx, u.ID, bad, "key-2")
	require.Error(t, err)
	_, replayed, err = f.svc.Orders.Create(ctx, u.ID, req, "key-2")
	require.NoError(t, err)
	assert.False(t, replayed)

	require.NoError(t, f.cache.Set(ctx, idempotencyKey(u.ID, "key-3"), idempotencyPending, time.Minute))
	_, _, err = f.svc.Orders.Create(ctx, u.ID, req, "key-3")
	assert.ErrorIs(t, err, ErrOrderInProgress)
}

type brokenGetCache struct {
	*cache.Memory
}

func (brokenGetCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("redis: i/o timeout")
}

func TestIdempotencyLookupFailureSkipsKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "lou")
	a := f.book(t, "Dune", "Sci-Fi", 10)

	mem := cache.NewMemory()
	key := idempotencyKey(u.ID, "key-1")
	require.NoError(t, mem.Set(ctx, key, idempotencyPending, time.Minute))
	orders := NewOrderService(f.store, f.svc.Activity, brokenGetCache{mem}, f.pub, zap.NewNop())

	o, replayed, err := orders.Create(ctx, u.ID, models.OrderRequest{
		Books:           []models.OrderLineRequest{{Book: a.ID.Hex(), Quantity: 1}},
		ShippingAddress: shipping,
	}, "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotNil(t, o)

	// the marker belongs to the other request and is left alone
	val, ok, err := mem.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, idempotencyPending, val)
}

type deadlinePublisher struct {
	deadline time.Time
	hasDL    bool
}

func (p *deadlinePublisher) Publish(ctx context.Context, _ string, _ interface{}) error {
	p.deadline, p.hasDL = ctx.Deadline()
	return nil
}

func (p *deadlinePublisher) Close() error { return nil }

func TestPublishBoundsBrokerWait(t *testing.T) {
	p := &deadlinePublisher{}
	svc := NewContactService(p, zap.NewNop())

	require.NoError(t, svc.Welcome(context.Background(), "new@example.com"))
	require.True(t, p.hasDL)
	assert.WithinDuration(t, time.Now().Add(publishTimeout), p.deadline, time.Second)
}

func TestOrderSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.pub.fail = errors.New("broker down")
	u := f.user(t, "kai")
	a := f.book(t, "Dune", "Sci-Fi", 10)

	_, _, err := f.svc.Orders.Create(context.Background(), u.ID, models.OrderRequest{
		Books:           []models.OrderLineRequest{{Book: a.ID.Hex(), Quantity: 1}},
		ShippingAddress: shipping,
	}, "")
	assert.NoError(t, err)
}

func TestGetOrderChecksOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "lee")
	other := f.user(t, "max")
	a := f.book(t, "Dune", "Sci-Fi", 10)

	o, _, err := f.svc.Orders.Create(ctx, owner.ID, models.OrderRequest{
		Books:           []models.OrderLineRequest{{Book: a.ID.Hex(), Quantity: 1}},
		ShippingAddress: shipping,
	}, "")
	require.NoError(t, err)

	_, err = f.svc.Orders.Get(ctx, other.ID, o.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.Orders.Get(ctx, owner.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperr.ErrOrderNotFound)
	got, err := f.svc.Orders.Get(ctx, owner.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	mine, err := f.svc.Orders.ListMine(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	st, err := f.svc.Orders.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Users)
	assert.EqualValues(t, 1, st.Books)
	assert.EqualValues(t, 1, st.Orders)
	assert.Len(t, st.RecentOrders, 1)
}

func TestRecommendationsFallBackToPopular(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "nia")
	reviewer := f.user(t, "olaf")

	var books []*models.Book
	for i := 0; i < 12; i++ {
		books = append(books, f.book(t, fmt.Sprintf("Book %d", i), "General", 5))
	}
	for i := 0; i < 3; i++ {
		_, err := f.svc.Books.AddReview(ctx, books[7].ID, reviewer.ID, models.ReviewRequest{Rating: 5, Review: "wow"})
		require.NoError(t, err)
	}
	_, err := f.svc.Books.AddReview(ctx, books[2].ID, reviewer.ID, models.ReviewRequest{Rating: 3, Review: "ok"})
	require.NoError(t, err)

	rec, err := f.svc.Recommendations.For(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, RecommendPopular, rec.Type)
	require.Len(t, rec.Books, 10)
	assert.Equal(t, books[7].ID, rec.Books[0].ID)
	assert.Equal(t, books[2].ID, rec.Books[1].ID)
	assert.Empty(t, rec.PreferredGenres)

	// served from cache until it expires
	extra := f.book(t, "Newcomer", "General", 5)
	for i := 0; i < 5; i++ {
		_, err := f.svc.Books.AddReview(ctx, extra.ID, reviewer.ID, models.ReviewRequest{Rating: 5, Review: "!"})
		require.NoError(t, err)
	}
	rec, err = f.svc.Recommendations.For(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, books[7].ID, rec.Books[0].ID)
}

func TestPersonalizedRecommendations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "pia")

	scifi := f.book(t, "Dune", "Sci-Fi", 10)
	f.book(t, "Hyperion", "Sci-Fi", 10)
	f.book(t, "Foundation", "Sci-Fi", 10)
	romance := f.book(t, "Emma", "Romance", 10)
	f.book(t, "Persuasion", "Romance", 10)
	f.book(t, "It", "Horror", 10)

	f.svc.Activity.Track(ctx, u.ID, scifi.ID, models.ActivityPurchase, nil)
	rating := 2
	f.svc.Activity.Track(ctx, u.ID, romance.ID, models.ActivityView, &rating)

	rec, err := f.svc.Recommendations.For(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, RecommendPersonalized, rec.Type)
	assert.Equal(t, []string{"Sci-Fi", "Romance"}, rec.PreferredGenres)

	names := map[string]bool{}
	for _, b := range rec.Books {
		names[b.Name] = true
		assert.NotEqual(t, scifi.ID, b.ID)
		assert.NotEqual(t, romance.ID, b.ID)
	}
	// three genre matches, padded with popular books not already present
	assert.True(t, names["Hyperion"])
	assert.True(t, names["Persuasion"])
	assert.True(t, names["It"])
	assert.Len(t, rec.Books, 4)
}

func TestPreferredGenresWeights(t *testing.T) {
	a, b, c, d := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	genreOf := map[primitive.ObjectID]string{a: "Fantasy", b: "Horror", c: "Poetry", d: "Travel"}
	four := 4
	acts := []models.UserActivity{
		{BookID: a, ActivityType: models.ActivityView},
		{BookID: b, ActivityType: models.ActivityWishlist},
		{BookID: c, ActivityType: models.ActivityReview, Rating: &four},
		{BookID: d, ActivityType: models.ActivityCart},
		{BookID: primitive.NewObjectID(), ActivityType: models.ActivityPurchase},
	}
	assert.Equal(t, []string{"Poetry", "Horror", "Fantasy"}, PreferredGenres(acts, genreOf))
}

func TestChatMessageFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "quin")
	stranger := f.user(t, "ray")

	sess, err := f.svc.Chat.Start(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, sess.Active)

	_, err = f.svc.Chat.Send(ctx, stranger.ID, models.ChatMessageRequest{SessionID: sess.ID.Hex(), Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrSessionNotFound)

	reply, err := f.svc.Chat.Send(ctx, u.ID, models.ChatMessageRequest{SessionID: sess.ID.Hex(), Content: " recommend sci-fi "})
	require.NoError(t, err)
	assert.Equal(t, "recommend sci-fi", reply.Message.Content)
	assert.Contains(t, reply.Reply.Content, "<strong>Dune</strong>")
	assert.Equal(t, assistant.FormatReply(f.gen.reply), reply.Reply.Content)
	assert.Equal(t, models.SenderBot, reply.Reply.Sender)

	got, err := f.store.Chats.FindByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)

	hist, err := f.svc.Chat.History(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	assert.ErrorIs(t, f.svc.Chat.End(ctx, stranger.ID, sess.ID), apperr.ErrSessionNotFound)
	require.NoError(t, f.svc.Chat.End(ctx, u.ID, sess.ID))
	_, err = f.svc.Chat.Send(ctx, u.ID, models.ChatMessageRequest{SessionID: sess.ID.Hex(), Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrSessionClosed)
	assert.Equal(t, 409, apperr.Status(err))
}

func TestChatRateLimitAndOutage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "sam")
	sess, err := f.svc.Chat.Start(ctx, u.ID)
	require.NoError(t, err)
	req := models.ChatMessageRequest{SessionID: sess.ID.Hex(), Content: "hello"}

	f.gen.err = errors.New("quota exceeded")
	_, err = f.svc.Chat.Send(ctx, u.ID, req)
	assert.Equal(t, 503, apperr.Status(err))

	f.gen.err = nil
	for i := 0; i < 2; i++ {
		_, err = f.svc.Chat.Send(ctx, u.ID, req)
		require.NoError(t, err)
	}
	_, err = f.svc.Chat.Send(ctx, u.ID, req)
	assert.ErrorIs(t, err, ErrChatRateLimited)
	assert.Equal(t, 429, apperr.Status(err))
	assert.Equal(t, 3, f.gen.calls)

	unconfigured := NewChatService(f.store.Chats, nil, nil, 0, zap.NewNop())
	_, err = unconfigured.Send(ctx, u.ID, req)
	assert.Equal(t, 503, apperr.Status(err))
}

func TestContactPublishesEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Contact.Send(ctx, models.ContactRequest{
		Name: "Tia", Email: "tia@example.com", Subject: "Late order", OrderNumber: "A1", Message: "where is it",
	}))
	require.NoError(t, f.svc.Contact.Welcome(ctx, "New@Example.com"))
	assert.Equal(t, []string{events.TypeContactSubmitted, events.TypeWelcomeRequested}, f.pub.Types())
	assert.Equal(t, "new@example.com", f.pub.last[events.TypeWelcomeRequested].(events.WelcomeRequested).Email)

	f.pub.fail = errors.New("down")
	err := f.svc.Contact.Send(ctx, models.ContactRequest{Name: "x", Email: "x@y.z", Subject: "s", Message: "m"})
	assert.ErrorIs(t, err, ErrMessageNotQueued)
}

func TestAdminRegisterBootstrap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Admins.Register(ctx, models.AdminRegisterRequest{
		Fullname: "Root", Email: "Root@Example.com", Password: "Sup3r#Secret", Role: models.RoleSuperAdmin,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", first.Email)
	assert.True(t, first.IsActive)

	req := models.AdminRegisterRequest{Fullname: "Ed", Email: "ed@example.com", Password: "Edit0r#Pass"}
	_, err = f.svc.Admins.Register(ctx, req, nil)
	assert.ErrorIs(t, err, ErrSuperAdminToken)
	_, err = f.svc.Admins.Register(ctx, req, &auth.Claims{Role: models.RoleAdmin})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	ed, err := f.svc.Admins.Register(ctx, req, &auth.Claims{Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, ed.Role)
	assert.Equal(t, []string{models.PermManageBooks, models.PermViewAnalytics}, ed.Permissions)
	assert.Contains(t, f.pub.Types(), events.TypeAdminRegistered)

	a, token, _, err := f.svc.Admins.Login(ctx, models.LoginRequest{Email: "ed@example.com", Password: "Edit0r#Pass"})
	require.NoError(t, err)
	assert.NotNil(t, a.LastLogin)
	claims, err := auth.NewTokenManager("test-secret", time.Hour).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, _, _, err = f.svc.Admins.Login(ctx, models.LoginRequest{Email: "ed@example.com", Password: "nope"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}
