package service

import (
	"context"
	"strings"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/events"
	"bookstore-backend/internal/models"

	"go.uber.org/zap"
)

var ErrMessageNotQueued = apperr.New("could not send your message, please try again later", apperr.ErrServiceUnavailable)

type ContactService struct {
	events events.Publisher
	log    *zap.Logger
}

func NewContactService(pub events.Publisher, log *zap.Logger) *ContactService {
	return &ContactService{events: pub, log: log}
}

// Send forwards a contact form to the support inbox.
func (s *ContactService) Send(ctx context.Context, req models.ContactRequest) error {
	err := publish(ctx, s.events, s.log, events.TypeContactSubmitted, events.ContactSubmitted{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Subject:     strings.TrimSpace(req.Subject),
		OrderNumber: strings.TrimSpace(req.OrderNumber),
		Message:     strings.TrimSpace(req.Message),
	})
	if err != nil {
		return ErrMessageNotQueued
	}
	return nil
}

// Welcome sends the signup invite to a prospective customer.
func (s *ContactService) Welcome(ctx context.Context, email string) error {
	err := publish(ctx, s.events, s.log, events.TypeWelcomeRequested, events.WelcomeRequested{
		Email: strings.ToLower(strings.TrimSpace(email)),
	})
	if err != nil {
		return ErrMessageNotQueued
	}
	return nil
}
