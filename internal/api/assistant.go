package api

import (
	"net/http"

	"bookstore-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// ----- Recommendations -----

func (h *Handler) recommendations(c *gin.Context) {
	rec, err := h.svc.Recommendations.For(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"recommendations": rec.Books,
		"preferredGenres": rec.PreferredGenres,
		"type":            rec.Type,
	})
}

func (h *Handler) recordActivity(c *gin.Context) {
	var req models.ActivityRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.svc.Activity.Record(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "activity": a})
}

// ----- Chat -----

func (h *Handler) startChat(c *gin.Context) {
	s, err := h.svc.Chat.Start(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "sessionId": s.ID.Hex(), "session": s})
}

func (h *Handler) sendChatMessage(c *gin.Context) {
	var req models.ChatMessageRequest
	if !bind(c, &req) {
		return
	}
	reply, err := h.svc.Chat.Send(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"sessionId":   reply.SessionID,
		"userMessage": reply.Message,
		"botResponse": reply.Reply,
	})
}

func (h *Handler) chatHistory(c *gin.Context) {
	sessions, err := h.svc.Chat.History(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": sessions})
}

func (h *Handler) endChat(c *gin.Context) {
	id, ok := paramID(c, "sessionId")
	if !ok {
		return
	}
	if err := h.svc.Chat.End(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat session ended"})
}
