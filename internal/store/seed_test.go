package store

import (
	"context"
	"testing"

	"github.com/yourorg/siteops/internal/domain"
	"github.com/yourorg/siteops/internal/security/auth"
)

func TestEnsureInitializedSeedsEmptySlot(t *testing.T) {
	repo := &memRepo{}
	snapshot, err := EnsureInitialized(context.Background(), repo, nil)
	if err != nil {
		t.Fatalf("initialization failed: %v", err)
	}

	admins := 0
	var admin domain.User
	for _, u := range snapshot.Users {
		if u.Role == domain.RoleAdmin {
			admins++
			admin = u
		}
	}
	if admins != 1 {
		t.Fatalf("expected exactly one admin, got %d", admins)
	}
	if admin.EmployeeID != "admin" || !admin.Active {
		t.Fatalf("unexpected admin account: %+v", admin)
	}
	if !auth.VerifyPassword(admin.PasswordHash, "931931") {
		t.Fatalf("admin password digest does not verify")
	}

	if len(snapshot.Sites) != 2 || len(snapshot.Tickets) != 1 {
		t.Fatalf("expected demo sites and ticket, got %d sites %d tickets", len(snapshot.Sites), len(snapshot.Tickets))
	}
	for _, site := range snapshot.Sites {
		if _, ok := snapshot.SiteLogs[site.ID]; !ok {
			t.Fatalf("missing log collection for %s", site.ID)
		}
		if _, ok := snapshot.SiteWorkers[site.ID]; !ok {
			t.Fatalf("missing worker collection for %s", site.ID)
		}
		if _, ok := snapshot.SiteMaterials[site.ID]; !ok {
			t.Fatalf("missing material collection for %s", site.ID)
		}
	}

	if repo.saves != 1 {
		t.Fatalf("expected seed snapshot persisted once, got %d saves", repo.saves)
	}
}

func TestEnsureInitializedKeepsExistingSnapshot(t *testing.T) {
	repo := &memRepo{}
	existing := domain.NewSnapshot()
	existing.Users = []domain.User{
		{ID: "u_custom", EmployeeID: "boss", Name: "Boss", Role: domain.RoleAdmin, PasswordHash: "h", Active: true},
	}
	if err := repo.Save(context.Background(), existing); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	repo.saves = 0

	snapshot, err := EnsureInitialized(context.Background(), repo, nil)
	if err != nil {
		t.Fatalf("initialization failed: %v", err)
	}

	// An existing snapshot wins entirely; no seed data is merged in.
	if len(snapshot.Users) != 1 || snapshot.Users[0].ID != "u_custom" {
		t.Fatalf("expected existing snapshot untouched, got %+v", snapshot.Users)
	}
	if len(snapshot.Sites) != 0 {
		t.Fatalf("expected no demo sites merged in")
	}
	if repo.saves != 0 {
		t.Fatalf("expected no save for existing snapshot")
	}
}
