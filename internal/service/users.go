package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookstore-backend/internal/apperr"
	"bookstore-backend/internal/auth"
	"bookstore-backend/internal/events"
	"bookstore-backend/internal/models"
	"bookstore-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	events events.Publisher
	log    *zap.Logger
}

func NewUserService(users repository.UserRepository, tokens *auth.TokenManager, pub events.Publisher, log *zap.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, events: pub, log: log}
}

// Signup enforces the password policy, stores the user with a bcrypt hash
// and queues the welcome email.
func (s *UserService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	if problems := auth.PasswordProblems(req.Password); len(problems) > 0 {
		return nil, apperr.NewValidation("Please check password requirements", problems...)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, apperr.ErrEmailTaken
	} else if !errors.Is(err, apperr.ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Fullname:  strings.TrimSpace(req.Fullname),
		Email:     email,
		Password:  hash,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	_ = publish(ctx, s.events, s.log, events.TypeUserRegistered, events.UserRegistered{
		Email:    u.Email,
		Fullname: u.Fullname,
	})
	return u, nil
}

// Login returns the user and a signed token with its expiry.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, time.Time, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, apperr.ErrUserNotFound) {
		return nil, "", time.Time{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !auth.CheckPassword(u.Password, req.Password) {
		return nil, "", time.Time{}, apperr.ErrInvalidCredentials
	}
	token, exp, err := s.tokens.Issue(u.ID.Hex(), u.Email, models.RoleUser)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return u, token, exp, nil
}

func (s *UserService) Me(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}
