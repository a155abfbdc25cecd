package events

import (
	"context"
	"encoding/json"
	"time"

	"bookstore-backend/internal/models"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated     = "order.created"
	TypeUserRegistered   = "user.registered"
	TypeWelcomeRequested = "welcome.requested"
	TypeContactSubmitted = "contact.submitted"
	TypeAdminRegistered  = "admin.registered"
)

// Envelope is the wire format on the notification topic.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType string, payload interface{}) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

func (e Envelope) Decode(dst interface{}) error {
	return json.Unmarshal(e.Payload, dst)
}

type OrderLine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type OrderCreated struct {
	OrderID   string                 `json:"orderId"`
	Email     string                 `json:"email"`
	Fullname  string                 `json:"fullname"`
	Items     []OrderLine            `json:"items"`
	Total     float64                `json:"total"`
	Shipping  models.ShippingAddress `json:"shippingAddress"`
	Payment   string                 `json:"paymentMethod"`
	CreatedAt time.Time              `json:"createdAt"`
}

type UserRegistered struct {
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

type WelcomeRequested struct {
	Email string `json:"email"`
}

type ContactSubmitted struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Message     string `json:"message"`
}

type AdminRegistered struct {
	Email       string   `json:"email"`
	Fullname    string   `json:"fullname"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close() error
}

type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

type HandlerFunc func(ctx context.Context, env Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, env Envelope) error { return f(ctx, env) }
