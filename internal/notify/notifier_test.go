package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookstore-backend/internal/events"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMail struct {
	To, Subject, HTML string
}

type fakeMailer struct {
	mu         sync.Mutex
	sent       []sentMail
	configured bool
	err        error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, html})
	return nil
}

func (f *fakeMailer) IsConfigured() bool { return f.configured }

func newTestNotifier(t *testing.T, m Mailer) *Notifier {
	t.Helper()
	n, err := NewNotifier(m, Links{
		FrontendURL:       "https://books.example",
		AdminDashboardURL: "https://admin.books.example",
		SupportInbox:      "support@books.example",
	}, zap.NewNop())
	require.NoError(t, err)
	return n
}

func TestOrderConfirmationEmail(t *testing.T) {
	m := &fakeMailer{configured: true}
	n := newTestNotifier(t, m)

	env, err := events.NewEnvelope(events.TypeOrderCreated, events.OrderCreated{
		OrderID:  "abc123",
		Email:    "reader@example.com",
		Fullname: "Reader <script>",
		Items:    []events.OrderLine{{Name: "Dune", Quantity: 2, Price: 10.1}},
		Total:    20.2,
		Shipping: models.ShippingAddress{Street: "1 Main", City: "Springfield", ZipCode: "12345", Country: "US"},
	})
	require.NoError(t, err)
	require.NoError(t, n.Handle(context.Background(), env))

	require.Len(t, m.sent, 1)
	got := m.sent[0]
	assert.Equal(t, "reader@example.com", got.To)
	assert.Equal(t, "Order Confirmation #abc123", got.Subject)
	assert.Contains(t, got.HTML, "$20.20")
	assert.Contains(t, got.HTML, "https://books.example/orders/abc123")
	assert.Contains(t, got.HTML, "Springfield")
	assert.NotContains(t, got.HTML, "<script>")
}

func TestContactGoesToSupportInbox(t *testing.T) {
	m := &fakeMailer{configured: true}
	n := newTestNotifier(t, m)

	env, _ := events.NewEnvelope(events.TypeContactSubmitted, events.ContactSubmitted{
		Name: "Sam", Email: "sam@example.com", Subject: "Late parcel", Message: "Where is it?",
	})
	require.NoError(t, n.Handle(context.Background(), env))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "support@books.example", m.sent[0].To)
	assert.Equal(t, "New Contact Form Submission: Late parcel", m.sent[0].Subject)
	assert.Contains(t, m.sent[0].HTML, "N/A")
}

func TestSignupInviteContainsLink(t *testing.T) {
	m := &fakeMailer{configured: true}
	n := newTestNotifier(t, m)

	env, _ := events.NewEnvelope(events.TypeWelcomeRequested, events.WelcomeRequested{Email: "new@example.com"})
	require.NoError(t, n.Handle(context.Background(), env))
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].HTML, "https://books.example/signup")
}

func TestUnconfiguredMailerSkips(t *testing.T) {
	m := &fakeMailer{configured: false}
	n := newTestNotifier(t, m)

	env, _ := events.NewEnvelope(events.TypeAdminRegistered, events.AdminRegistered{
		Email: "boss@example.com", Fullname: "Boss", Role: models.RoleAdmin,
		Permissions: []string{models.PermManageBooks, models.PermViewAnalytics},
	})
	require.NoError(t, n.Handle(context.Background(), env))
	assert.Empty(t, m.sent)
}

func TestMailerErrorPropagates(t *testing.T) {
	m := &fakeMailer{configured: true, err: errors.New("boom")}
	n := newTestNotifier(t, m)
	env, _ := events.NewEnvelope(events.TypeUserRegistered, events.UserRegistered{Email: "a@b.c", Fullname: "A"})
	assert.Error(t, n.Handle(context.Background(), env))
}

func TestBrevoClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "key", r.Header.Get("api-key"))
		if n < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req sendEmailReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "to@example.com", req.To[0]["email"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewBrevoClient("key", "from@example.com", "Shop", resilience.NewBreaker("email", 5, time.Second, zap.NewNop(), nil))
	c.endpoint = srv.URL
	c.maxElapsed = 5 * time.Second

	require.NoError(t, c.Send(context.Background(), "to@example.com", "Hi", "<p>hi</p>"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestBrevoClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid sender"}`))
	}))
	defer srv.Close()

	c := NewBrevoClient("key", "from@example.com", "Shop", resilience.NewBreaker("email", 5, time.Second, zap.NewNop(), nil))
	c.endpoint = srv.URL

	err := c.Send(context.Background(), "to@example.com", "Hi", "<p>hi</p>")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid sender"))
	assert.EqualValues(t, 1, calls.Load())

	assert.ErrorIs(t, NewBrevoClient("", "", "", nil).Send(context.Background(), "a", "b", "c"), ErrNotConfigured)
}
