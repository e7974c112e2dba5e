package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/siteops/internal/domain"
	"github.com/yourorg/siteops/internal/store"
	"github.com/yourorg/siteops/pkg/cache"
)

const dashboardCacheKey = "dashboard:summary"

// DashboardSummary aggregates the counts shown on the landing screen.
type DashboardSummary struct {
	OngoingSites     int `json:"ongoingSites"`
	CompletedSites   int `json:"completedSites"`
	ScheduledTickets int `json:"scheduledTickets"`
	DoneTickets      int `json:"doneTickets"`
	ActiveUsers      int `json:"activeUsers"`
	PendingMaterials int `json:"pendingMaterials"`
}

// DashboardHandler serves aggregated counts with a short-lived cache.
type DashboardHandler struct {
	store  *store.Store
	cache  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(st *store.Store, c *cache.Cache, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		store:  st,
		cache:  c,
		ttl:    2 * time.Second,
		logger: logger,
	}
}

// Get handles GET /api/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.Get(dashboardCacheKey); ok {
		writeJSON(w, http.StatusOK, cached.(DashboardSummary))
		return
	}

	snapshot := h.store.Snapshot()
	summary := DashboardSummary{}
	for _, site := range snapshot.Sites {
		if site.Status == domain.SiteOngoing {
			summary.OngoingSites++
		} else {
			summary.CompletedSites++
		}
	}
	for _, ticket := range snapshot.Tickets {
		if ticket.Status == domain.TicketDone {
			summary.DoneTickets++
		} else {
			summary.ScheduledTickets++
		}
	}
	for _, user := range snapshot.Users {
		if user.Active {
			summary.ActiveUsers++
		}
	}
	for _, materials := range snapshot.SiteMaterials {
		for _, m := range materials {
			if m.Status == domain.MaterialPending {
				summary.PendingMaterials++
			}
		}
	}

	h.cache.Set(dashboardCacheKey, summary, h.ttl)
	writeJSON(w, http.StatusOK, summary)
}
