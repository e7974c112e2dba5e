package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/siteops/internal/domain"
	"github.com/yourorg/siteops/internal/security"
	"github.com/yourorg/siteops/internal/security/middleware"
	"github.com/yourorg/siteops/internal/store"
)

// SiteLogRequest carries a new work log entry.
type SiteLogRequest struct {
	Text          string `json:"text"`
	HasAttachment bool   `json:"hasAttachment"`
}

// CommentRequest carries a new comment on a log entry.
type CommentRequest struct {
	Text string `json:"text"`
}

// SiteLogsHandler manages per-site work logs, read confirmations and
// comments. All roles may write here; the author and the confirmation
// name always come from the caller's token, never from the payload.
type SiteLogsHandler struct {
	store  *store.Store
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewSiteLogsHandler creates a new site logs handler
func NewSiteLogsHandler(st *store.Store, authz *security.AuthorizationService, logger *slog.Logger) *SiteLogsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteLogsHandler{store: st, authz: authz, logger: logger}
}

// List handles GET /api/sites/{id}/logs
func (h *SiteLogsHandler) List(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("id")
	logs, ok := h.store.Snapshot().SiteLogs[siteID]
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "site not found"})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// Append handles POST /api/sites/{id}/logs
func (h *SiteLogsHandler) Append(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermWriteLogs); err != nil {
		writeForbidden(w, err)
		return
	}

	var req SiteLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	saved, err := h.store.AppendSiteLog(r.Context(), r.PathValue("id"), domain.SiteLog{
		Text:          req.Text,
		Author:        claims.Name,
		HasAttachment: req.HasAttachment,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("site log added",
		slog.String("site_id", r.PathValue("id")),
		slog.String("log_id", saved.ID),
		slog.String("user_id", claims.UserID),
	)
	writeJSON(w, http.StatusOK, saved)
}

// ToggleCheck handles POST /api/sites/{id}/logs/{logId}/checks. Each call
// flips the caller's own confirmation; nobody can confirm for someone
// else.
func (h *SiteLogsHandler) ToggleCheck(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermToggleChecks); err != nil {
		writeForbidden(w, err)
		return
	}

	siteID := r.PathValue("id")
	logID := r.PathValue("logId")
	if err := h.store.ToggleLogCheck(r.Context(), siteID, logID, claims.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}

// AddComment handles POST /api/sites/{id}/logs/{logId}/comments
func (h *SiteLogsHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermComment); err != nil {
		writeForbidden(w, err)
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	saved, err := h.store.AppendLogComment(r.Context(), r.PathValue("id"), r.PathValue("logId"), domain.LogComment{
		Author: claims.Name,
		Text:   req.Text,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
