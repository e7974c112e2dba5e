package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/siteops/internal/domain"
	"github.com/yourorg/siteops/internal/observability/metrics"
	"github.com/yourorg/siteops/internal/security/auth"
	"github.com/yourorg/siteops/internal/store"
)

// AuthService handles authentication operations
type AuthService struct {
	store        *store.Store
	tokenManager *auth.TokenManager
	tokenTTL     time.Duration
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(st *store.Store, tm *auth.TokenManager, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		store:        st,
		tokenManager: tm,
		tokenTTL:     tokenTTL,
		logger:       logger,
	}
}

// LoginResult represents a successful login response
type LoginResult struct {
	User      domain.Identity `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Login verifies credentials against the current snapshot and issues a
// token. An unknown or deactivated employee id is reported distinctly
// from a wrong password; the operator is trusted and the interface favors
// concrete error messages over enumeration resistance.
func (s *AuthService) Login(employeeID, password string) (*LoginResult, error) {
	if employeeID == "" || password == "" {
		return nil, fmt.Errorf("%w: employee id and password are required", domain.ErrValidation)
	}

	var user *domain.User
	for _, u := range s.store.Snapshot().Users {
		if u.EmployeeID == employeeID {
			user = &u
			break
		}
	}
	if user == nil || !user.Active {
		s.logger.Info("login attempt for unknown employee id", slog.String("employee_id", employeeID))
		metrics.ObserveLogin("unknown_user")
		return nil, fmt.Errorf("%w: no account for employee id %q", domain.ErrUserNotFound, employeeID)
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		s.logger.Info("login failed with wrong password", slog.String("employee_id", employeeID))
		metrics.ObserveLogin("wrong_password")
		return nil, fmt.Errorf("%w: wrong password", domain.ErrInvalidCredential)
	}

	token, err := s.tokenManager.GenerateToken(user.ID, user.EmployeeID, user.Name, user.Role, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to generate token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("employee_id", user.EmployeeID),
		slog.String("role", user.Role),
	)
	metrics.ObserveLogin("ok")

	return &LoginResult{
		User: domain.Identity{
			ID:         user.ID,
			EmployeeID: user.EmployeeID,
			Name:       user.Name,
			Role:       user.Role,
		},
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenTTL),
	}, nil
}

// ResetPassword hashes the new password and stores it on the user.
func (s *AuthService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < 4 {
		return fmt.Errorf("%w: password must be at least 4 characters", domain.ErrValidation)
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.ResetPassword(ctx, userID, hash)
}
