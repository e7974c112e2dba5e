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

// MaterialsHandler manages the material checklist of a site
type MaterialsHandler struct {
	store  *store.Store
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewMaterialsHandler creates a new materials handler
func NewMaterialsHandler(st *store.Store, authz *security.AuthorizationService, logger *slog.Logger) *MaterialsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaterialsHandler{store: st, authz: authz, logger: logger}
}

// List handles GET /api/sites/{id}/materials
func (h *MaterialsHandler) List(w http.ResponseWriter, r *http.Request) {
	materials, ok := h.store.Snapshot().SiteMaterials[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "site not found"})
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

// Upsert handles POST /api/sites/{id}/materials
func (h *MaterialsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermManageMaterials); err != nil {
		writeForbidden(w, err)
		return
	}

	var material domain.SiteMaterial
	if err := json.NewDecoder(r.Body).Decode(&material); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	saved, err := h.store.UpsertSiteMaterial(r.Context(), r.PathValue("id"), material)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("site material saved",
		slog.String("site_id", r.PathValue("id")),
		slog.String("material_id", saved.ID),
		slog.String("user_id", claims.UserID),
	)
	writeJSON(w, http.StatusOK, saved)
}

// ToggleStatus handles POST /api/sites/{id}/materials/{materialId}/toggle
func (h *MaterialsHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermManageMaterials); err != nil {
		writeForbidden(w, err)
		return
	}

	siteID := r.PathValue("id")
	materialID := r.PathValue("materialId")
	if err := h.store.ToggleMaterialStatus(r.Context(), siteID, materialID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}
