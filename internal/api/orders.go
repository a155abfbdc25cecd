package api

import (
	"net/http"

	"bookstore-backend/internal/models"

	"github.com/gin-gonic/gin"
)

const headerIdempotencyKey = "Idempotency-Key"

func (h *Handler) createOrder(c *gin.Context) {
	var req models.OrderRequest
	if !bind(c, &req) {
		return
	}
	o, replayed, err := h.svc.Orders.Create(c.Request.Context(), currentUser(c), req, c.GetHeader(headerIdempotencyKey))
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"success": true, "order": o})
}

func (h *Handler) myOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListMine(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := paramID(c, "orderId")
	if !ok {
		return
	}
	o, err := h.svc.Orders.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
}

func (h *Handler) adminStats(c *gin.Context) {
	st, err := h.svc.Orders.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
