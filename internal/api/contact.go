package api

import (
	"net/http"

	"bookstore-backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) sendContact(c *gin.Context) {
	var req models.ContactRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Contact.Send(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message sent successfully"})
}

func (h *Handler) sendWelcome(c *gin.Context) {
	var req models.WelcomeEmailRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Contact.Welcome(c.Request.Context(), req.Email); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Welcome email sent"})
}

// ----- Admin accounts -----

func (h *Handler) registerAdmin(c *gin.Context) {
	var req models.AdminRegisterRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.svc.Admins.Register(c.Request.Context(), req, claimsOf(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Admin registered successfully", "admin": a})
}

func (h *Handler) loginAdmin(c *gin.Context) {
	var req models.LoginRequest
	if !bind(c, &req) {
		return
	}
	a, token, exp, err := h.svc.Admins.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	h.setTokenCookie(c, token, exp)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": token, "admin": a})
}
