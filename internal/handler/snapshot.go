package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/siteops/internal/store"
)

// SnapshotHandler serves the full application snapshot
type SnapshotHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(st *store.Store, logger *slog.Logger) *SnapshotHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotHandler{store: st, logger: logger}
}

// Get handles GET /api/snapshot. Password hashes never leave the server.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot().Redacted())
}
