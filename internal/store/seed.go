package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/siteops/internal/domain"
	"github.com/yourorg/siteops/internal/security/auth"
)

// EnsureInitialized loads the persisted snapshot, or builds and persists
// the seed snapshot when the slot is absent or unreadable. An existing
// snapshot wins entirely; no per-collection merging with seed data.
func EnsureInitialized(ctx context.Context, repo domain.SnapshotRepository, logger *slog.Logger) (*domain.Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	snapshot, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		logger.Info("loaded existing snapshot",
			slog.Int("users", len(snapshot.Users)),
			slog.Int("sites", len(snapshot.Sites)),
			slog.Int("tickets", len(snapshot.Tickets)),
		)
		return snapshot, nil
	}

	snapshot, err = seedSnapshot()
	if err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("persist seed snapshot: %w", err)
	}
	logger.Info("initialized seed snapshot",
		slog.Int("users", len(snapshot.Users)),
		slog.Int("sites", len(snapshot.Sites)),
	)
	return snapshot, nil
}

// seedSnapshot builds the first-run dataset: a built-in administrator,
// demo manager and worker accounts, two demo sites and one AS ticket.
func seedSnapshot() (*domain.Snapshot, error) {
	now := time.Now()

	adminHash, err := auth.HashPassword("931931")
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	demoHash, err := auth.HashPassword("1234")
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	snapshot := domain.NewSnapshot()
	snapshot.Users = []domain.User{
		{
			ID:           "u_admin",
			EmployeeID:   "admin",
			Name:         "관리자",
			Role:         domain.RoleAdmin,
			PasswordHash: adminHash,
			Active:       true,
			CreatedAt:    now,
		},
		{
			ID:           "u_manager_demo",
			EmployeeID:   "manager",
			Name:         "김반장",
			Phone:        "010-0000-0000",
			Role:         domain.RoleManager,
			PasswordHash: demoHash,
			Active:       true,
			CreatedAt:    now,
		},
		{
			ID:           "u_worker_demo",
			EmployeeID:   "worker",
			Name:         "최목수",
			Phone:        "010-0000-0000",
			Role:         domain.RoleWorker,
			PasswordHash: demoHash,
			Active:       true,
			CreatedAt:    now,
		},
	}
	snapshot.Sites = []domain.Site{
		{
			ID:        "s1",
			Name:      "천안 불당동 푸르지오 304호",
			Address:   "충남 천안시 서북구 불당동",
			Status:    domain.SiteOngoing,
			StartDate: "2026-01-10",
			EndDate:   "2026-02-15",
			ManagerID: "u_manager_demo",
			Memo:      "현관/주방 집중",
			CreatedAt: now,
		},
		{
			ID:        "s2",
			Name:      "아산 탕정 아파트",
			Address:   "충남 아산시 탕정면",
			Status:    domain.SiteOngoing,
			StartDate: "2026-01-05",
			EndDate:   "2026-02-20",
			ManagerID: "u_manager_demo",
			Memo:      "타일 수급 체크",
			CreatedAt: now,
		},
	}
	snapshot.Tickets = []domain.Ticket{
		{
			ID:            "a1",
			SiteID:        "s1",
			Issue:         "주방 수전 물샘 현상",
			Status:        domain.TicketScheduled,
			Date:          "2026-01-12",
			Time:          "14:00",
			AssignedTo:    "u_worker_demo",
			CustomerName:  "이수진",
			CustomerPhone: "010-0000-0000",
			CreatedAt:     now,
		},
	}
	for _, site := range snapshot.Sites {
		snapshot.SiteLogs[site.ID] = []domain.SiteLog{}
		snapshot.SiteWorkers[site.ID] = []domain.SiteWorker{}
		snapshot.SiteMaterials[site.ID] = []domain.SiteMaterial{}
	}
	return snapshot, nil
}
