package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/siteops/internal/security/ratelimit"
	"github.com/yourorg/siteops/internal/service"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	EmployeeID string `json:"employeeId"`
	Password   string `json:"password"`
}

// LoginHandler handles user authentication
type LoginHandler struct {
	authService *service.AuthService
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(authService *service.AuthService, limiter *ratelimit.Limiter, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginHandler{
		authService: authService,
		limiter:     limiter,
		logger:      logger,
	}
}

// ServeHTTP handles POST /api/login requests
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	// Brute-force protection keyed by employee id and source address.
	if h.limiter != nil {
		if !h.limiter.AllowStrict("login:"+req.EmployeeID, 10, time.Minute) ||
			!h.limiter.AllowStrict("login-addr:"+r.RemoteAddr, 30, time.Minute) {
			h.logger.Warn("login rate limit exceeded",
				slog.String("employee_id", req.EmployeeID),
				slog.String("remote_addr", r.RemoteAddr),
			)
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "too many login attempts"})
			return
		}
	}

	result, err := h.authService.Login(req.EmployeeID, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
