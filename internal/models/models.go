// Package models holds the documents persisted in mongo and the payloads
// accepted by the HTTP API.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Fullname  string             `bson:"fullname" json:"fullname"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Username  string             `bson:"username" json:"username"`
	Rating    int                `bson:"rating" json:"rating"`
	Review    string             `bson:"review" json:"review"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Book struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Price    float64            `bson:"price" json:"price"`
	Category string             `bson:"category" json:"category"`
	Image    string             `bson:"image" json:"image"`
	Thumb    string             `bson:"thumb,omitempty" json:"thumb,omitempty"`
	Title    string             `bson:"title" json:"title"`
	Reviews  []Review           `bson:"reviews" json:"reviews"`
}

// FindReview returns the index of the review with the given id, or -1.
func (b *Book) FindReview(id primitive.ObjectID) int {
	for i := range b.Reviews {
		if b.Reviews[i].ID == id {
			return i
		}
	}
	return -1
}

type CartItem struct {
	BookID   primitive.ObjectID `bson:"bookId" json:"bookId"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

type Cart struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Items  []CartItem         `bson:"items" json:"items"`
}

// CartLine is a cart item hydrated with its book for display.
type CartLine struct {
	Book     *Book   `json:"book"`
	BookID   string  `json:"bookId"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

type CartView struct {
	UserID string     `json:"userId"`
	Items  []CartLine `json:"items"`
	Total  float64    `json:"total"`
}

type ShippingAddress struct {
	Street  string `bson:"street" json:"street" binding:"required"`
	City    string `bson:"city" json:"city" binding:"required"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipCode" json:"zipCode" binding:"required"`
	Country string `bson:"country" json:"country"`
}

type OrderItem struct {
	Book     primitive.ObjectID `bson:"book" json:"book"`
	Name     string             `bson:"name" json:"name"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Price    float64            `bson:"price" json:"price"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	Books           []OrderItem        `bson:"books" json:"books"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type ChatMessage struct {
	Content   string    `bson:"content" json:"content"`
	Sender    string    `bson:"sender" json:"sender"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type ChatSession struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	Messages     []ChatMessage      `bson:"messages" json:"messages"`
	Active       bool               `bson:"active" json:"active"`
	StartedAt    time.Time          `bson:"startedAt" json:"startedAt"`
	LastActivity time.Time          `bson:"lastActivity" json:"lastActivity"`
}

const (
	ActivityView     = "view"
	ActivityPurchase = "purchase"
	ActivityReview   = "review"
	ActivityWishlist = "wishlist"
	ActivityCart     = "cart"
)

type UserActivity struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	BookID       primitive.ObjectID `bson:"bookId" json:"bookId"`
	ActivityType string             `bson:"activityType" json:"activityType"`
	Rating       *int               `bson:"rating,omitempty" json:"rating,omitempty"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

const (
	PermManageUsers   = "manage_users"
	PermManageBooks   = "manage_books"
	PermManageOrders  = "manage_orders"
	PermManageContent = "manage_content"
	PermViewAnalytics = "view_analytics"
)

type AdminUser struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Fullname    string             `bson:"fullname" json:"fullname"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password" json:"-"`
	Role        string             `bson:"role" json:"role"`
	Permissions []string           `bson:"permissions" json:"permissions"`
	LastLogin   *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MonthlyRevenue is one bucket of the admin revenue chart.
type MonthlyRevenue struct {
	Month  int     `bson:"_id" json:"month"`
	Amount float64 `bson:"amount" json:"amount"`
}
