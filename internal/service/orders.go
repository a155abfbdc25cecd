package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/cache"
	"bookstore-backend/internal/events"
	"bookstore-backend/internal/metrics"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	idempotencyTTL     = 24 * time.Hour
	idempotencyPending = "pending"
	statsRecentLimit   = 10
)

var (
	ErrOrderInProgress = apperr.New("an order with this idempotency key is still being processed", apperr.ErrConflict)
	errOrderNotYours   = apperr.New("not authorized to view this order", apperr.ErrForbidden)
)

type OrderService struct {
	orders   repository.OrderRepository
	books    repository.BookRepository
	carts    repository.CartRepository
	users    repository.UserRepository
	activity *ActivityService
	cache    cache.Cache
	events   events.Publisher
	log      *zap.Logger
}

func NewOrderService(store *repository.Store, activity *ActivityService, c cache.Cache, pub events.Publisher, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:   store.Orders,
		books:    store.Books,
		carts:    store.Carts,
		users:    store.Users,
		activity: activity,
		cache:    c,
		events:   pub,
		log:      log,
	}
}

func idempotencyKey(userID primitive.ObjectID, key string) string {
	return "idem:order:" + userID.Hex() + ":" + key
}

// Create places an order for userID. Prices come from the catalogue, never
// from the client. When idemKey is set a repeated request returns the order
// created by the first one and replayed is true.
func (s *OrderService) Create(ctx context.Context, userID primitive.ObjectID, req models.OrderRequest, idemKey string) (order *models.Order, replayed bool, err error) {
	idemKey = strings.TrimSpace(idemKey)
	if idemKey != "" && s.cache != nil {
		key := idempotencyKey(userID, idemKey)
		prior, outcome, claimErr := s.claim(ctx, key)
		if claimErr != nil {
			return nil, false, claimErr
		}
		switch outcome {
		case claimReplay:
			return prior, true, nil
		case claimOwned:
			defer func() {
				if err != nil {
					if delErr := s.cache.Del(ctx, key); delErr != nil {
						s.log.Warn("release idempotency key failed", zap.Error(delErr))
					}
					return
				}
				if setErr := s.cache.Set(ctx, key, order.ID.Hex(), idempotencyTTL); setErr != nil {
					s.log.Warn("store idempotency key failed", zap.Error(setErr))
				}
			}()
		}
	}

	lines, err := s.requestedLines(ctx, userID, req)
	if err != nil {
		return nil, false, err
	}
	items, total, err := s.price(ctx, lines)
	if err != nil {
		return nil, false, err
	}

	o := &models.Order{
		User:            userID,
		Books:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalAmount:     cents(total),
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, false, err
	}
	metrics.OrdersCreated.Inc()
	if o.TotalAmount > 0 {
		metrics.OrderRevenue.Add(o.TotalAmount)
	}

	if err := s.carts.Delete(ctx, userID); err != nil {
		s.log.Warn("clear cart after order failed", zap.String("userId", userID.Hex()), zap.Error(err))
	}
	for _, it := range o.Books {
		s.activity.Track(ctx, userID, it.Book, models.ActivityPurchase, nil)
	}
	s.announce(ctx, o)

	s.log.Info("order created",
		zap.String("orderId", o.ID.Hex()),
		zap.String("userId", userID.Hex()),
		zap.Float64("total", o.TotalAmount))
	return o, false, nil
}

type claimOutcome int

const (
	// claimOwned means this request holds the key and must settle it.
	claimOwned claimOutcome = iota
	// claimReplay means an earlier request already produced the order.
	claimReplay
	// claimSkipped means the cache failed and the request runs without
	// idempotency, leaving the key alone.
	claimSkipped
)

// claim reserves key. If another request already holds it, the order it
// produced is returned instead. Cache failures disable idempotency for the
// request rather than failing it.
func (s *OrderService) claim(ctx context.Context, key string) (*models.Order, claimOutcome, error) {
	ok, err := s.cache.SetNX(ctx, key, idempotencyPending, idempotencyTTL)
	if err != nil {
		s.log.Warn("idempotency check failed", zap.Error(err))
		return nil, claimSkipped, nil
	}
	if ok {
		return nil, claimOwned, nil
	}
	val, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("idempotency lookup failed", zap.Error(err))
		return nil, claimSkipped, nil
	}
	if !found || val == idempotencyPending {
		return nil, claimSkipped, ErrOrderInProgress
	}
	id, err := primitive.ObjectIDFromHex(val)
	if err != nil {
		return nil, claimSkipped, ErrOrderInProgress
	}
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, claimSkipped, err
	}
	return o, claimReplay, nil
}

type orderLine struct {
	book primitive.ObjectID
	qty  int
}

// requestedLines uses the request body, falling back to the cart when it
// lists no books.
func (s *OrderService) requestedLines(ctx context.Context, userID primitive.ObjectID, req models.OrderRequest) ([]orderLine, error) {
	var lines []orderLine
	if len(req.Books) > 0 {
		for _, b := range req.Books {
			id, err := ParseID(b.Book)
			if err != nil {
				return nil, err
			}
			lines = append(lines, orderLine{book: id, qty: b.Quantity})
		}
		return lines, nil
	}

	c, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, apperr.ErrCartNotFound) {
		return nil, apperr.ErrEmptyOrder
	}
	if err != nil {
		return nil, err
	}
	for _, it := range c.Items {
		lines = append(lines, orderLine{book: it.BookID, qty: it.Quantity})
	}
	if len(lines) == 0 {
		return nil, apperr.ErrEmptyOrder
	}
	return lines, nil
}

func (s *OrderService) price(ctx context.Context, lines []orderLine) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]primitive.ObjectID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.book)
	}
	books, err := s.books.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}
	byID := make(map[primitive.ObjectID]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		if l.qty < 1 || l.qty > models.MaxLineQuantity {
			return nil, decimal.Zero, ErrQuantityLimit
		}
		b, ok := byID[l.book]
		if !ok {
			return nil, decimal.Zero, apperr.ErrBookNotFound
		}
		items = append(items, models.OrderItem{Book: b.ID, Name: b.Name, Quantity: l.qty, Price: b.Price})
		total = total.Add(lineTotal(b.Price, l.qty))
	}
	return items, total, nil
}

// announce queues the confirmation email. Failures never affect the order.
func (s *OrderService) announce(ctx context.Context, o *models.Order) {
	u, err := s.users.FindByID(ctx, o.User)
	if err != nil {
		s.log.Warn("order confirmation skipped", zap.String("orderId", o.ID.Hex()), zap.Error(err))
		return
	}
	lines := make([]events.OrderLine, 0, len(o.Books))
	for _, it := range o.Books {
		lines = append(lines, events.OrderLine{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	_ = publish(ctx, s.events, s.log, events.TypeOrderCreated, events.OrderCreated{
		OrderID:   o.ID.Hex(),
		Email:     u.Email,
		Fullname:  u.Fullname,
		Items:     lines,
		Total:     o.TotalAmount,
		Shipping:  o.ShippingAddress,
		Payment:   o.PaymentMethod,
		CreatedAt: o.CreatedAt,
	})
}

// ListMine returns the caller's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) Get(ctx context.Context, userID, orderID primitive.ObjectID) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.User != userID {
		return nil, errOrderNotYours
	}
	return o, nil
}

type Stats struct {
	Users        int64                   `json:"users"`
	Books        int64                   `json:"books"`
	Orders       int64                   `json:"orders"`
	Revenue      []models.MonthlyRevenue `json:"revenue"`
	RecentOrders []models.Order          `json:"recentOrders"`
	RecentUsers  []models.User           `json:"recentUsers"`
}

// Stats feeds the admin dashboard.
func (s *OrderService) Stats(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.Users, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if st.Books, err = s.books.Count(ctx); err != nil {
		return nil, err
	}
	if st.Orders, err = s.orders.Count(ctx); err != nil {
		return nil, err
	}
	if st.Revenue, err = s.orders.RevenueByMonth(ctx); err != nil {
		return nil, err
	}
	if st.RecentOrders, err = s.orders.Recent(ctx, statsRecentLimit); err != nil {
		return nil, err
	}
	if st.RecentUsers, err = s.users.Recent(ctx, statsRecentLimit); err != nil {
		return nil, err
	}
	return &st, nil
}
