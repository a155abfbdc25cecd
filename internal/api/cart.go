package api

import (
	"net/http"

	"bookstore-backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getCart(c *gin.Context) {
	v, err := h.svc.Carts.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) addToCart(c *gin.Context) {
	var req models.CartAddRequest
	if !bind(c, &req) {
		return
	}
	v, err := h.svc.Carts.Add(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) removeFromCart(c *gin.Context) {
	var req models.CartRemoveRequest
	if !bind(c, &req) {
		return
	}
	v, err := h.svc.Carts.Remove(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.svc.Carts.Clear(c.Request.Context(), currentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
