package models

type SignupRequest struct {
	Fullname string `json:"fullname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ReviewRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Review string `json:"review" binding:"required"`
}

type BookRequest struct {
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"min=0"`
	Category string  `json:"category" binding:"required"`
	Image    string  `json:"image"`
	Title    string  `json:"title"`
}

// MaxLineQuantity caps the copies of one book in a cart or order line.
const MaxLineQuantity = 1000

type CartAddRequest struct {
	BookID   string `json:"bookId" binding:"required"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1,max=1000"`
}

type CartRemoveRequest struct {
	BookID string `json:"bookId" binding:"required"`
}

type OrderLineRequest struct {
	Book     string `json:"book" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=1000"`
}

// OrderRequest may omit books, in which case the caller's cart is ordered.
type OrderRequest struct {
	Books           []OrderLineRequest `json:"books" binding:"dive"`
	ShippingAddress ShippingAddress    `json:"shippingAddress" binding:"required"`
	PaymentMethod   string             `json:"paymentMethod" binding:"required"`
}

type ActivityRequest struct {
	BookID       string `json:"bookId" binding:"required"`
	ActivityType string `json:"activityType" binding:"required,oneof=view purchase review wishlist cart"`
	Rating       *int   `json:"rating" binding:"omitempty,min=1,max=5"`
}

type ChatMessageRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Content   string `json:"content" binding:"required,max=2000"`
}

type ContactRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Subject     string `json:"subject" binding:"required"`
	OrderNumber string `json:"orderNumber"`
	Message     string `json:"message" binding:"required"`
}

type WelcomeEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type AdminRegisterRequest struct {
	Fullname    string   `json:"fullname" binding:"required"`
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=8,max=100"`
	Role        string   `json:"role" binding:"omitempty,oneof=admin super_admin"`
	Permissions []string `json:"permissions" binding:"omitempty,dive,oneof=manage_users manage_books manage_orders manage_content view_analytics"`
}
