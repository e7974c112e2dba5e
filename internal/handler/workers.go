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

// WorkersHandler manages the crew roster of a site
type WorkersHandler struct {
	store  *store.Store
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewWorkersHandler creates a new workers handler
func NewWorkersHandler(st *store.Store, authz *security.AuthorizationService, logger *slog.Logger) *WorkersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkersHandler{store: st, authz: authz, logger: logger}
}

// List handles GET /api/sites/{id}/workers
func (h *WorkersHandler) List(w http.ResponseWriter, r *http.Request) {
	workers, ok := h.store.Snapshot().SiteWorkers[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "site not found"})
		return
	}
	writeJSON(w, http.StatusOK, workers)
}

// Upsert handles POST /api/sites/{id}/workers
func (h *WorkersHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermManageCrew); err != nil {
		writeForbidden(w, err)
		return
	}

	var worker domain.SiteWorker
	if err := json.NewDecoder(r.Body).Decode(&worker); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	saved, err := h.store.UpsertSiteWorker(r.Context(), r.PathValue("id"), worker)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("site worker saved",
		slog.String("site_id", r.PathValue("id")),
		slog.String("worker_id", saved.ID),
		slog.String("user_id", claims.UserID),
	)
	writeJSON(w, http.StatusOK, saved)
}
