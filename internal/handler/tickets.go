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

// TicketsHandler manages after-service tickets
type TicketsHandler struct {
	store  *store.Store
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewTicketsHandler creates a new tickets handler
func NewTicketsHandler(st *store.Store, authz *security.AuthorizationService, logger *slog.Logger) *TicketsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketsHandler{store: st, authz: authz, logger: logger}
}

// List handles GET /api/tickets
func (h *TicketsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot().Tickets)
}

// Upsert handles POST /api/tickets
func (h *TicketsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermManageTickets); err != nil {
		writeForbidden(w, err)
		return
	}

	var ticket domain.Ticket
	if err := json.NewDecoder(r.Body).Decode(&ticket); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	saved, err := h.store.UpsertTicket(r.Context(), ticket)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("ticket saved",
		slog.String("ticket_id", saved.ID),
		slog.String("status", saved.Status),
		slog.String("user_id", claims.UserID),
	)
	writeJSON(w, http.StatusOK, saved)
}

// Delete handles DELETE /api/tickets/{id}
func (h *TicketsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if err := h.authz.ValidatePermission(claims.Role, security.PermManageTickets); err != nil {
		writeForbidden(w, err)
		return
	}

	ticketID := r.PathValue("id")
	if ticketID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing ticket id"})
		return
	}

	if err := h.store.DeleteTicket(r.Context(), ticketID); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("ticket deleted",
		slog.String("ticket_id", ticketID),
		slog.String("user_id", claims.UserID),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
