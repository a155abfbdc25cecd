package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/assistant"
	"bookstore-backend/internal/cache"
	"bookstore-backend/internal/metrics"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const chatHistoryLimit = 10

var ErrChatRateLimited = apperr.New("too many messages, please wait a moment", apperr.ErrRateLimited)

type ChatReply struct {
	SessionID string             `json:"sessionId"`
	Message   models.ChatMessage `json:"userMessage"`
	Reply     models.ChatMessage `json:"botResponse"`
}

type ChatService struct {
	chats     repository.ChatRepository
	gen       assistant.Generator
	cache     cache.Cache
	perMinute int
	log       *zap.Logger
}

// NewChatService accepts a nil generator when the assistant is not
// configured; messages then fail with assistant.ErrUnavailable.
func NewChatService(chats repository.ChatRepository, gen assistant.Generator, c cache.Cache, perMinute int, log *zap.Logger) *ChatService {
	return &ChatService{chats: chats, gen: gen, cache: c, perMinute: perMinute, log: log}
}

func (s *ChatService) Start(ctx context.Context, userID primitive.ObjectID) (*models.ChatSession, error) {
	now := time.Now().UTC()
	sess := &models.ChatSession{
		UserID:       userID,
		Messages:     []models.ChatMessage{},
		Active:       true,
		StartedAt:    now,
		LastActivity: now,
	}
	if err := s.chats.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Send forwards the message to the assistant and stores both turns.
func (s *ChatService) Send(ctx context.Context, userID primitive.ObjectID, req models.ChatMessageRequest) (*ChatReply, error) {
	sessionID, err := ParseID(req.SessionID)
	if err != nil {
		return nil, err
	}
	sess, err := s.chats.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, apperr.ErrSessionNotFound
	}
	if !sess.Active {
		return nil, apperr.ErrSessionClosed
	}
	if err := s.allow(ctx, userID); err != nil {
		return nil, err
	}
	if s.gen == nil {
		metrics.ChatMessages.WithLabelValues("unavailable").Inc()
		return nil, assistant.ErrUnavailable
	}

	content := strings.TrimSpace(req.Content)
	userMsg := models.ChatMessage{Content: content, Sender: models.SenderUser, Timestamp: time.Now().UTC()}

	text, err := s.gen.Generate(ctx, sess.Messages, content)
	metrics.ChatMessages.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.log.Warn("assistant reply failed", zap.String("sessionId", sessionID.Hex()), zap.Error(err))
		if errors.Is(err, apperr.ErrServiceUnavailable) {
			return nil, err
		}
		return nil, assistant.ErrUnavailable
	}

	now := time.Now().UTC()
	botMsg := models.ChatMessage{
		Content:   assistant.FormatReply(text),
		Sender:    models.SenderBot,
		Timestamp: now,
	}
	if err := s.chats.AppendMessages(ctx, sessionID, []models.ChatMessage{userMsg, botMsg}, now); err != nil {
		return nil, err
	}
	return &ChatReply{SessionID: sessionID.Hex(), Message: userMsg, Reply: botMsg}, nil
}

func (s *ChatService) allow(ctx context.Context, userID primitive.ObjectID) error {
	if s.cache == nil || s.perMinute <= 0 {
		return nil
	}
	ok, err := s.cache.Allow(ctx, "ratelimit:chat:"+userID.Hex(), s.perMinute, time.Minute)
	if err != nil {
		s.log.Warn("chat rate limit check failed", zap.Error(err))
		return nil
	}
	if !ok {
		metrics.ChatMessages.WithLabelValues("rate_limited").Inc()
		return ErrChatRateLimited
	}
	return nil
}

// History returns the caller's most recently active sessions.
func (s *ChatService) History(ctx context.Context, userID primitive.ObjectID) ([]models.ChatSession, error) {
	return s.chats.ListByUser(ctx, userID, chatHistoryLimit)
}

func (s *ChatService) End(ctx context.Context, userID, sessionID primitive.ObjectID) error {
	return s.chats.End(ctx, sessionID, userID)
}
