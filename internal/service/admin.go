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

	"go.uber.org/zap"
)

var (
	ErrSuperAdminToken = apperr.New("a super admin token is required", apperr.ErrUnauthorized)
	ErrNotSuperAdmin   = apperr.New("only a super admin can register admins", apperr.ErrForbidden)
	ErrAdminDisabled   = apperr.New("admin account is disabled", apperr.ErrForbidden)
)

var defaultAdminPermissions = []string{models.PermManageBooks, models.PermViewAnalytics}

type AdminService struct {
	admins repository.AdminRepository
	tokens *auth.TokenManager
	events events.Publisher
	log    *zap.Logger
}

func NewAdminService(admins repository.AdminRepository, tokens *auth.TokenManager, pub events.Publisher, log *zap.Logger) *AdminService {
	return &AdminService{admins: admins, tokens: tokens, events: pub, log: log}
}

// Register creates an admin account. The first admin may register without a
// token; after that caller must hold the super_admin role.
func (s *AdminService) Register(ctx context.Context, req models.AdminRegisterRequest, caller *auth.Claims) (*models.AdminUser, error) {
	n, err := s.admins.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		if caller == nil {
			return nil, ErrSuperAdminToken
		}
		if caller.Role != models.RoleSuperAdmin {
			return nil, ErrNotSuperAdmin
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleAdmin
	}
	perms := req.Permissions
	if len(perms) == 0 {
		perms = append([]string{}, defaultAdminPermissions...)
	}
	now := time.Now().UTC()
	a := &models.AdminUser{
		Fullname:    strings.TrimSpace(req.Fullname),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    hash,
		Role:        role,
		Permissions: perms,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("admin registered", zap.String("email", a.Email), zap.String("role", a.Role))

	_ = publish(ctx, s.events, s.log, events.TypeAdminRegistered, events.AdminRegistered{
		Email:       a.Email,
		Fullname:    a.Fullname,
		Role:        a.Role,
		Permissions: a.Permissions,
	})
	return a, nil
}

func (s *AdminService) Login(ctx context.Context, req models.LoginRequest) (*models.AdminUser, string, time.Time, error) {
	a, err := s.admins.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, apperr.ErrAdminNotFound) {
		return nil, "", time.Time{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !auth.CheckPassword(a.Password, req.Password) {
		return nil, "", time.Time{}, apperr.ErrInvalidCredentials
	}
	if !a.IsActive {
		return nil, "", time.Time{}, ErrAdminDisabled
	}

	now := time.Now().UTC()
	if err := s.admins.TouchLogin(ctx, a.ID, now); err != nil {
		s.log.Warn("update admin last login failed", zap.String("email", a.Email), zap.Error(err))
	} else {
		a.LastLogin = &now
	}
	token, exp, err := s.tokens.Issue(a.ID.Hex(), a.Email, a.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return a, token, exp, nil
}
