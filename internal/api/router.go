// Package api exposes the bookstore services over HTTP with gin.
package api

import (
	"context"
	"net/http"
	"time"

	"bookstore-backend/internal/auth"
	"bookstore-backend/internal/metrics"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Services     *service.Services
	Tokens       *auth.TokenManager
	Log          *zap.Logger
	CORSOrigins  []string
	CookieSecure bool
	// Health reports whether the backing stores are reachable. May be nil.
	Health  func(ctx context.Context) error
	Limiter *IPRateLimiter
}

type Handler struct {
	svc          *service.Services
	tokens       *auth.TokenManager
	log          *zap.Logger
	cookieSecure bool
	health       func(ctx context.Context) error
}

func NewRouter(o Options) *gin.Engine {
	h := &Handler{
		svc:          o.Services,
		tokens:       o.Tokens,
		log:          o.Log,
		cookieSecure: o.CookieSecure,
		health:       o.Health,
	}

	r := gin.New()
	r.Use(RequestID(), Logger(o.Log), Recovery(o.Log), Metrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     o.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", headerRequestID},
		ExposeHeaders:    []string{headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/")
	if o.Limiter != nil {
		api.Use(o.Limiter.Handler())
	}
	authed := AuthMiddleware(o.Tokens)
	optional := OptionalAuth(o.Tokens)

	// Users
	user := api.Group("/user")
	{
		user.POST("/signup", h.signup)
		user.POST("/login", h.login)
		user.POST("/logout", h.logout)
		user.GET("/me", authed, h.me)
	}

	// Books
	book := api.Group("/book")
	{
		book.GET("", h.listBooks)
		book.GET("/search", h.searchBooks)
		book.GET("/count", h.countBooks)
		book.GET("/:bookId", optional, h.getBook)
		book.POST("/:bookId/reviews", authed, h.addReview)
		book.PUT("/:bookId/reviews/:reviewId", authed, h.updateReview)
		book.DELETE("/:bookId/reviews/:reviewId", authed, h.deleteReview)
	}

	// Cart
	cart := api.Group("/cart", authed)
	{
		cart.GET("", h.getCart)
		cart.POST("/add", h.addToCart)
		cart.POST("/remove", h.removeFromCart)
		cart.POST("/clear", h.clearCart)
	}

	// Orders
	order := api.Group("/order", authed)
	{
		order.POST("/create", h.createOrder)
		order.GET("/my-orders", h.myOrders)
		order.GET("/:orderId", h.getOrder)
	}

	// Contact
	contact := api.Group("/contact")
	{
		contact.POST("/send", h.sendContact)
		contact.POST("/welcome-email", h.sendWelcome)
	}

	v1 := api.Group("/api")
	{
		v1.GET("/recommendations", authed, h.recommendations)
		v1.POST("/activity", authed, h.recordActivity)

		chat := v1.Group("/chat", authed)
		chat.POST("/session/start", h.startChat)
		chat.POST("/message", h.sendChatMessage)
		chat.GET("/history", h.chatHistory)
		chat.PUT("/session/:sessionId/end", h.endChat)

		v1.POST("/admin/register", optional, h.registerAdmin)
		v1.POST("/admin/login", h.loginAdmin)

		admin := v1.Group("/admin", authed, RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
		admin.GET("/stats", h.adminStats)
		admin.POST("/books", h.createBook)
		admin.PUT("/books/:bookId", h.updateBook)
		admin.DELETE("/books/:bookId", h.deleteBook)
		admin.POST("/books/:bookId/cover", h.uploadCover)
	}

	return r
}

func (h *Handler) healthz(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
