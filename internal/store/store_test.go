package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/yourorg/siteops/internal/domain"
)

type memRepo struct {
	mu       sync.Mutex
	saved    *domain.Snapshot
	saves    int
	failSave bool
}

func (m *memRepo) Load(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return nil, nil
	}
	return m.saved.Clone(), nil
}

func (m *memRepo) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.saved = snapshot.Clone()
	m.saves++
	return nil
}

func baseSnapshot() *domain.Snapshot {
	s := domain.NewSnapshot()
	s.Users = []domain.User{
		{ID: "u1", EmployeeID: "admin", Name: "Admin", Role: domain.RoleAdmin, PasswordHash: "hash1", Active: true},
	}
	s.Sites = []domain.Site{
		{ID: "s1", Name: "Site One", Address: "Addr 1", Status: domain.SiteOngoing, StartDate: "2026-01-01", EndDate: "2026-02-01"},
	}
	s.Tickets = []domain.Ticket{
		{ID: "a1", SiteID: "s1", Issue: "leak", Status: domain.TicketScheduled, Date: "2026-01-12", Time: "14:00", CustomerName: "Kim", CustomerPhone: "010"},
	}
	s.SiteLogs["s1"] = []domain.SiteLog{}
	s.SiteWorkers["s1"] = []domain.SiteWorker{}
	s.SiteMaterials["s1"] = []domain.SiteMaterial{}
	return s
}

func newTestStore(t *testing.T) (*Store, *memRepo) {
	t.Helper()
	repo := &memRepo{}
	return New(baseSnapshot(), repo, nil, Options{}), repo
}

func TestUpsertUserPrependsAndPreservesPosition(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	u2, err := st.UpsertUser(ctx, domain.User{EmployeeID: "mgr", Name: "Manager", Role: domain.RoleManager, PasswordHash: "h"})
	if err != nil {
		t.Fatalf("upsert user failed: %v", err)
	}
	users := st.Snapshot().Users
	if users[0].ID != u2.ID {
		t.Fatalf("expected new user prepended, got %s first", users[0].ID)
	}

	// Replacing the existing admin keeps its position at the tail.
	if _, err := st.UpsertUser(ctx, domain.User{ID: "u1", EmployeeID: "admin", Name: "Renamed", Role: domain.RoleAdmin}); err != nil {
		t.Fatalf("replace user failed: %v", err)
	}
	users = st.Snapshot().Users
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[1].ID != "u1" || users[1].Name != "Renamed" {
		t.Fatalf("expected u1 replaced in place, got %+v", users[1])
	}
	if users[1].PasswordHash != "hash1" {
		t.Fatalf("replace without password must keep the stored hash")
	}
}

func TestUpsertUserRejectsDuplicateEmployeeID(t *testing.T) {
	st, _ := newTestStore(t)
	before := st.Snapshot()

	_, err := st.UpsertUser(context.Background(), domain.User{EmployeeID: "admin", Name: "Imposter", Role: domain.RoleWorker, PasswordHash: "h"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if st.Snapshot() != before {
		t.Fatalf("failed mutation must leave the snapshot untouched")
	}
}

func TestResetPassword(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	if err := st.ResetPassword(ctx, "u1", "newhash"); err != nil {
		t.Fatalf("reset password failed: %v", err)
	}
	if got := st.Snapshot().FindUser("u1").PasswordHash; got != "newhash" {
		t.Fatalf("expected newhash, got %s", got)
	}

	err := st.ResetPassword(ctx, "u_missing", "h")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestUpsertSiteSeedsCollections(t *testing.T) {
	st, _ := newTestStore(t)

	site, err := st.UpsertSite(context.Background(), domain.Site{Name: "New Site", Address: "Addr", StartDate: "2026-03-01", EndDate: "2026-04-01"})
	if err != nil {
		t.Fatalf("upsert site failed: %v", err)
	}
	if site.Status != domain.SiteOngoing {
		t.Fatalf("expected default ongoing status, got %s", site.Status)
	}

	snap := st.Snapshot()
	if snap.Sites[0].ID != site.ID {
		t.Fatalf("expected new site prepended")
	}
	if _, ok := snap.SiteLogs[site.ID]; !ok {
		t.Fatalf("expected empty log collection seeded")
	}
	if _, ok := snap.SiteWorkers[site.ID]; !ok {
		t.Fatalf("expected empty worker collection seeded")
	}
	if _, ok := snap.SiteMaterials[site.ID]; !ok {
		t.Fatalf("expected empty material collection seeded")
	}
}

func TestDeleteSiteCascades(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := st.AppendSiteLog(ctx, "s1", domain.SiteLog{Text: "work", Author: "Admin"}); err != nil {
		t.Fatalf("append log failed: %v", err)
	}
	if _, err := st.UpsertSiteWorker(ctx, "s1", domain.SiteWorker{Name: "Crew"}); err != nil {
		t.Fatalf("upsert worker failed: %v", err)
	}

	if err := st.DeleteSite(ctx, "s1"); err != nil {
		t.Fatalf("delete site failed: %v", err)
	}

	snap := st.Snapshot()
	if len(snap.Sites) != 0 {
		t.Fatalf("expected site removed")
	}
	if len(snap.Tickets) != 0 {
		t.Fatalf("expected referencing tickets removed, got %d", len(snap.Tickets))
	}
	if _, ok := snap.SiteLogs["s1"]; ok {
		t.Fatalf("expected log collection removed")
	}
	if _, ok := snap.SiteWorkers["s1"]; ok {
		t.Fatalf("expected worker collection removed")
	}
	if _, ok := snap.SiteMaterials["s1"]; ok {
		t.Fatalf("expected material collection removed")
	}

	if err := st.DeleteSite(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for second delete, got %v", err)
	}
}

func TestUpsertTicketAllowsDanglingSite(t *testing.T) {
	st, _ := newTestStore(t)

	ticket, err := st.UpsertTicket(context.Background(), domain.Ticket{
		SiteID: "s_gone", Issue: "broken hinge", Date: "2026-02-01", Time: "10:00",
		CustomerName: "Lee", CustomerPhone: "010",
	})
	if err != nil {
		t.Fatalf("expected dangling site to be tolerated, got %v", err)
	}
	if st.Snapshot().FindTicket(ticket.ID) == nil {
		t.Fatalf("ticket not stored")
	}
}

func TestTicketReopenRejectedByDefault(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	done := st.Snapshot().Tickets[0]
	done.Status = domain.TicketDone
	if _, err := st.UpsertTicket(ctx, done); err != nil {
		t.Fatalf("closing ticket failed: %v", err)
	}

	reopened := done
	reopened.Status = domain.TicketScheduled
	if _, err := st.UpsertTicket(ctx, reopened); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected reopen to be rejected, got %v", err)
	}
}

func TestTicketReopenAllowedWhenEnabled(t *testing.T) {
	repo := &memRepo{}
	st := New(baseSnapshot(), repo, nil, Options{ReopenTickets: true})
	ctx := context.Background()

	done := st.Snapshot().Tickets[0]
	done.Status = domain.TicketDone
	if _, err := st.UpsertTicket(ctx, done); err != nil {
		t.Fatalf("closing ticket failed: %v", err)
	}

	done.Status = domain.TicketScheduled
	if _, err := st.UpsertTicket(ctx, done); err != nil {
		t.Fatalf("expected reopen to be allowed, got %v", err)
	}
	if got := st.Snapshot().FindTicket("a1").Status; got != domain.TicketScheduled {
		t.Fatalf("expected scheduled, got %s", got)
	}
}

func TestDeleteTicket(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	if err := st.DeleteTicket(ctx, "a1"); err != nil {
		t.Fatalf("delete ticket failed: %v", err)
	}
	if len(st.Snapshot().Tickets) != 0 {
		t.Fatalf("expected ticket removed")
	}
	if err := st.DeleteTicket(ctx, "a1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSiteLogOrderingAndComments(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	first, err := st.AppendSiteLog(ctx, "s1", domain.SiteLog{Text: "first", Author: "Admin"})
	if err != nil {
		t.Fatalf("append log failed: %v", err)
	}
	second, err := st.AppendSiteLog(ctx, "s1", domain.SiteLog{Text: "second", Author: "Admin"})
	if err != nil {
		t.Fatalf("append log failed: %v", err)
	}

	logs := st.Snapshot().SiteLogs["s1"]
	if logs[0].ID != second.ID || logs[1].ID != first.ID {
		t.Fatalf("expected newest-first ordering")
	}

	c1, err := st.AppendLogComment(ctx, "s1", first.ID, domain.LogComment{Author: "Admin", Text: "one"})
	if err != nil {
		t.Fatalf("append comment failed: %v", err)
	}
	c2, err := st.AppendLogComment(ctx, "s1", first.ID, domain.LogComment{Author: "Admin", Text: "two"})
	if err != nil {
		t.Fatalf("append comment failed: %v", err)
	}

	comments := st.Snapshot().SiteLogs["s1"][1].Comments
	if len(comments) != 2 || comments[0].ID != c1.ID || comments[1].ID != c2.ID {
		t.Fatalf("expected oldest-first comment ordering")
	}

	if _, err := st.AppendSiteLog(ctx, "s_gone", domain.SiteLog{Text: "x", Author: "A"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing site, got %v", err)
	}
}

func TestToggleLogCheckRoundTrip(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	log, err := st.AppendSiteLog(ctx, "s1", domain.SiteLog{Text: "work", Author: "Admin"})
	if err != nil {
		t.Fatalf("append log failed: %v", err)
	}

	if err := st.ToggleLogCheck(ctx, "s1", log.ID, "Admin"); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	checks := st.Snapshot().SiteLogs["s1"][0].Checks
	if len(checks) != 1 || checks[0] != "Admin" {
		t.Fatalf("expected Admin in checks, got %v", checks)
	}

	if err := st.ToggleLogCheck(ctx, "s1", log.ID, "Admin"); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if checks := st.Snapshot().SiteLogs["s1"][0].Checks; len(checks) != 0 {
		t.Fatalf("expected toggle to remove the name, got %v", checks)
	}

	if err := st.ToggleLogCheck(ctx, "s1", "l_missing", "Admin"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for missing log, got %v", err)
	}
}

func TestToggleMaterialStatus(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	material, err := st.UpsertSiteMaterial(ctx, "s1", domain.SiteMaterial{Name: "Tile", Location: "Kitchen"})
	if err != nil {
		t.Fatalf("upsert material failed: %v", err)
	}
	if material.Status != domain.MaterialPending {
		t.Fatalf("expected default pending status")
	}

	if err := st.ToggleMaterialStatus(ctx, "s1", material.ID); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if got := st.Snapshot().SiteMaterials["s1"][0].Status; got != domain.MaterialOrdered {
		t.Fatalf("expected ordered, got %s", got)
	}

	if err := st.ToggleMaterialStatus(ctx, "s1", material.ID); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if got := st.Snapshot().SiteMaterials["s1"][0].Status; got != domain.MaterialPending {
		t.Fatalf("expected pending after second toggle, got %s", got)
	}
}

func TestSaveFailureStillAdvancesState(t *testing.T) {
	repo := &memRepo{failSave: true}
	st := New(baseSnapshot(), repo, nil, Options{})
	ctx := context.Background()

	site, err := st.UpsertSite(ctx, domain.Site{Name: "New", Address: "Addr", StartDate: "2026-01-01", EndDate: "2026-02-01"})
	if err != nil {
		t.Fatalf("mutation must succeed despite save failure, got %v", err)
	}
	if st.Snapshot().FindSite(site.ID) == nil {
		t.Fatalf("in-memory state must advance")
	}
	if st.LastSaveErr() == nil {
		t.Fatalf("expected last save error to be recorded")
	}

	// Once the backing store recovers, Flush clears the lag.
	repo.mu.Lock()
	repo.failSave = false
	repo.mu.Unlock()
	if err := st.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if st.LastSaveErr() != nil {
		t.Fatalf("expected lag cleared after flush")
	}
	if repo.saved.FindSite(site.ID) == nil {
		t.Fatalf("expected flushed snapshot to contain the site")
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	st, _ := newTestStore(t)
	ch := st.Subscribe()
	defer st.Unsubscribe(ch)

	if _, err := st.UpsertSiteWorker(context.Background(), "s1", domain.SiteWorker{Name: "Crew"}); err != nil {
		t.Fatalf("upsert worker failed: %v", err)
	}

	select {
	case snap := <-ch:
		if len(snap.SiteWorkers["s1"]) != 1 {
			t.Fatalf("expected updated snapshot delivered")
		}
	default:
		t.Fatalf("expected a snapshot on the channel")
	}
}
