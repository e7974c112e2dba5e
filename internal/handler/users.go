package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/siteops/internal/domain"
	"github.com/yourorg/siteops/internal/security"
	"github.com/yourorg/siteops/internal/security/auth"
	"github.com/yourorg/siteops/internal/security/middleware"
	"github.com/yourorg/siteops/internal/service"
	"github.com/yourorg/siteops/internal/store"
)

// UserRequest carries account fields plus an optional plaintext password.
// The password is required on create; on update an empty password keeps
// the stored digest.
type UserRequest struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	Active     *bool  `json:"active"`
	Password   string `json:"password"`
}

// ResetPasswordRequest carries the replacement password.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// UsersHandler manages staff accounts. Every operation requires the
// manage_users permission, which only administrators hold.
type UsersHandler struct {
	store       *store.Store
	authService *service.AuthService
	authz       *security.AuthorizationService
	logger      *slog.Logger
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(st *store.Store, authService *service.AuthService, authz *security.AuthorizationService, logger *slog.Logger) *UsersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsersHandler{store: st, authService: authService, authz: authz, logger: logger}
}

func (h *UsersHandler) authorize(w http.ResponseWriter, r *http.Request) *auth.Claims {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermManageUsers); err != nil {
		writeForbidden(w, err)
		return nil
	}
	return claims
}

// List handles GET /api/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.authorize(w, r) == nil {
		return
	}
	users := h.store.Snapshot().Redacted().Users
	writeJSON(w, http.StatusOK, users)
}

// Upsert handles POST /api/users
func (h *UsersHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	claims := h.authorize(w, r)
	if claims == nil {
		return
	}

	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	user := domain.User{
		ID:         req.ID,
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Phone:      req.Phone,
		Role:       req.Role,
		Active:     true,
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			h.logger.Error("failed to hash password", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to save user"})
			return
		}
		user.PasswordHash = hash
	}

	saved, err := h.store.UpsertUser(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user saved",
		slog.String("user_id", saved.ID),
		slog.String("employee_id", saved.EmployeeID),
		slog.String("role", saved.Role),
		slog.String("by", claims.UserID),
	)
	saved.PasswordHash = ""
	writeJSON(w, http.StatusOK, saved)
}

// ResetPassword handles POST /api/users/{id}/reset-password
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	claims := h.authorize(w, r)
	if claims == nil {
		return
	}

	userID := r.PathValue("id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing user id"})
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	if err := h.authService.ResetPassword(r.Context(), userID, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("password reset",
		slog.String("user_id", userID),
		slog.String("by", claims.UserID),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "password reset"})
}
