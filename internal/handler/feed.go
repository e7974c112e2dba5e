package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/siteops/internal/security/auth"
	"github.com/yourorg/siteops/internal/store"
)

// FeedHandler streams full snapshots over a WebSocket. Clients get the
// current snapshot on connect and a fresh one after every mutation, so a
// missed frame never leaves them with partial state.
type FeedHandler struct {
	store          *store.Store
	tokenManager   *auth.TokenManager
	allowedOrigins []string
	logger         *slog.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(st *store.Store, tm *auth.TokenManager, allowedOrigins []string, logger *slog.Logger) *FeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandler{
		store:          st,
		tokenManager:   tm,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *FeedHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/snapshot?token=...
// Browsers cannot set headers on the upgrade request, so the token rides
// in the query string and is validated here instead of the middleware.
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokenManager.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	h.logger.Info("snapshot feed connected",
		slog.String("user_id", claims.UserID),
		slog.String("remote_addr", r.RemoteAddr),
	)

	updates := h.store.Subscribe()
	defer h.store.Unsubscribe(updates)

	// Read pump: we expect no client messages, but reading is how the
	// close handshake and connection errors surface.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := ws.WriteJSON(h.store.Snapshot().Redacted()); err != nil {
		return
	}

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	for {
		select {
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := ws.WriteJSON(snapshot.Redacted()); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("snapshot feed write failed", slog.String("user_id", claims.UserID))
				}
				return
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-closed:
			h.logger.Info("snapshot feed disconnected", slog.String("user_id", claims.UserID))
			return
		case <-r.Context().Done():
			return
		}
	}
}
