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

// SitesHandler manages renovation sites
type SitesHandler struct {
	store  *store.Store
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewSitesHandler creates a new sites handler
func NewSitesHandler(st *store.Store, authz *security.AuthorizationService, logger *slog.Logger) *SitesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SitesHandler{store: st, authz: authz, logger: logger}
}

// List handles GET /api/sites
func (h *SitesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot().Sites)
}

// Upsert handles POST /api/sites
func (h *SitesHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermManageSites); err != nil {
		writeForbidden(w, err)
		return
	}

	var site domain.Site
	if err := json.NewDecoder(r.Body).Decode(&site); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	saved, err := h.store.UpsertSite(r.Context(), site)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("site saved",
		slog.String("site_id", saved.ID),
		slog.String("user_id", claims.UserID),
	)
	writeJSON(w, http.StatusOK, saved)
}

// Delete handles DELETE /api/sites/{id}. Removing a site also removes its
// tickets, logs, crew and materials in one step.
func (h *SitesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermManageSites); err != nil {
		writeForbidden(w, err)
		return
	}

	siteID := r.PathValue("id")
	if siteID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing site id"})
		return
	}

	if err := h.store.DeleteSite(r.Context(), siteID); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("site deleted",
		slog.String("site_id", siteID),
		slog.String("user_id", claims.UserID),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
