package api

import (
	"net/http"
	"time"

	"bookstore-backend/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) signup(c *gin.Context) {
	var req models.SignupRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.svc.Users.Signup(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": u})
}

func (h *Handler) login(c *gin.Context) {
	var req models.LoginRequest
	if !bind(c, &req) {
		return
	}
	u, token, exp, err := h.svc.Users.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	h.setTokenCookie(c, token, exp)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": token, "user": u})
}

func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.Users.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) setTokenCookie(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, token, int(time.Until(exp).Seconds()), "/", "", h.cookieSecure, true)
}
