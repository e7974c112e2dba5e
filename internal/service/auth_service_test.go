package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/siteops/internal/domain"
	"github.com/yourorg/siteops/internal/security/auth"
	"github.com/yourorg/siteops/internal/store"
)

type memRepo struct {
	mu    sync.Mutex
	saved *domain.Snapshot
}

func (m *memRepo) Load(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return nil, nil
	}
	return m.saved.Clone(), nil
}

func (m *memRepo) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = snapshot.Clone()
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *store.Store) {
	t.Helper()
	hash, err := auth.HashPassword("931931")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	snapshot := domain.NewSnapshot()
	snapshot.Users = []domain.User{
		{ID: "u1", EmployeeID: "admin", Name: "Admin", Role: domain.RoleAdmin, PasswordHash: hash, Active: true},
		{ID: "u2", EmployeeID: "gone", Name: "Gone", Role: domain.RoleWorker, PasswordHash: hash, Active: false},
	}
	st := store.New(snapshot, &memRepo{}, nil, store.Options{})
	tm := auth.NewTokenManager("test-secret", "siteops")
	return NewAuthService(st, tm, time.Hour, nil), st
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := newAuthFixture(t)

	result, err := svc.Login("admin", "931931")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("expected token")
	}
	if result.User.ID != "u1" || result.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected identity: %+v", result.User)
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry")
	}

	tm := auth.NewTokenManager("test-secret", "siteops")
	claims, err := tm.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("token does not validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != domain.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginUnknownEmployeeID(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Login("nobody", "931931")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Login("gone", "931931")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected inactive account treated as unknown, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Login("admin", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected invalid credential, got %v", err)
	}
}

func TestLoginMissingInput(t *testing.T) {
	svc, _ := newAuthFixture(t)
	if _, err := svc.Login("", "x"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Login("admin", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResetPasswordChangesLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	if err := svc.ResetPassword(ctx, "u1", "new-pass"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if _, err := svc.Login("admin", "931931"); err == nil {
		t.Fatalf("expected old password rejected after reset")
	}
	if _, err := svc.Login("admin", "new-pass"); err != nil {
		t.Fatalf("expected new password accepted, got %v", err)
	}

	if err := svc.ResetPassword(ctx, "u_missing", "new-pass"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	if err := svc.ResetPassword(ctx, "u1", "abc"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected short password rejected, got %v", err)
	}
}
