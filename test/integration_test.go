package test

import (
	"net/http"
	"testing"

	"github.com/yourorg/siteops/internal/domain"
)

func TestSeededAdminCanLogIn(t *testing.T) {
	env := NewTestEnv(t)

	token := env.Login(t, "admin", "931931")
	if token == "" {
		t.Fatalf("expected token for seeded admin")
	}

	status, _ := env.Do(t, "POST", "/api/login", "", map[string]string{
		"employeeId": "admin", "password": "wrong",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", status)
	}

	status, _ = env.Do(t, "POST", "/api/login", "", map[string]string{
		"employeeId": "ghost", "password": "x",
	})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown employee id, got %d", status)
	}
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	env := NewTestEnv(t)

	status, _ := env.Do(t, "GET", "/api/sites", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	status, _ = env.Do(t, "GET", "/healthz", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected healthz to be public, got %d", status)
	}
}

func TestSiteLifecycleSurvivesRestart(t *testing.T) {
	env := NewTestEnv(t)
	token := env.Login(t, "admin", "931931")

	status, site := env.Do(t, "POST", "/api/sites", token, map[string]string{
		"name": "서초 재건축 101동", "address": "서울 서초구",
		"startDate": "2026-03-01", "endDate": "2026-05-01",
	})
	if status != http.StatusOK {
		t.Fatalf("create site failed with %d: %v", status, site)
	}
	siteID, _ := site["id"].(string)
	if siteID == "" {
		t.Fatalf("no site id in response")
	}

	status, log := env.Do(t, "POST", "/api/sites/"+siteID+"/logs", token, map[string]string{
		"text": "철거 완료",
	})
	if status != http.StatusOK {
		t.Fatalf("append log failed with %d: %v", status, log)
	}

	status, material := env.Do(t, "POST", "/api/sites/"+siteID+"/materials", token, map[string]string{
		"name": "타일", "location": "주방",
	})
	if status != http.StatusOK {
		t.Fatalf("add material failed with %d: %v", status, material)
	}
	materialID, _ := material["id"].(string)
	status, _ = env.Do(t, "POST", "/api/sites/"+siteID+"/materials/"+materialID+"/toggle", token, nil)
	if status != http.StatusOK {
		t.Fatalf("toggle material failed with %d", status)
	}

	// Restart on the same database file: everything must come back.
	env = env.Reopen(t)

	snap := env.Store.Snapshot()
	if snap.FindSite(siteID) == nil {
		t.Fatalf("site lost across restart")
	}
	if len(snap.SiteLogs[siteID]) != 1 || snap.SiteLogs[siteID][0].Text != "철거 완료" {
		t.Fatalf("site log lost across restart: %+v", snap.SiteLogs[siteID])
	}
	materials := snap.SiteMaterials[siteID]
	if len(materials) != 1 || materials[0].Status != domain.MaterialOrdered {
		t.Fatalf("material state lost across restart: %+v", materials)
	}

	// Seed data must not be re-applied over the existing snapshot: the
	// created site coexists with the demo data, nothing is duplicated.
	token = env.Login(t, "admin", "931931")
	status, _ = env.Do(t, "DELETE", "/api/sites/"+siteID, token, nil)
	if status != http.StatusOK {
		t.Fatalf("delete site failed with %d", status)
	}

	snap = env.Store.Snapshot()
	if snap.FindSite(siteID) != nil {
		t.Fatalf("expected site removed")
	}
	if _, ok := snap.SiteLogs[siteID]; ok {
		t.Fatalf("expected site logs removed by cascade")
	}
}

func TestWorkerRoleRestrictions(t *testing.T) {
	env := NewTestEnv(t)
	workerToken := env.Login(t, "worker", "1234")
	adminToken := env.Login(t, "admin", "931931")

	status, _ := env.Do(t, "POST", "/api/sites", workerToken, map[string]string{
		"name": "X", "address": "Y", "startDate": "2026-01-01", "endDate": "2026-02-01",
	})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for worker creating site, got %d", status)
	}

	status, _ = env.Do(t, "GET", "/api/users", workerToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for worker listing users, got %d", status)
	}

	// Workers write logs on the seeded demo site.
	status, log := env.Do(t, "POST", "/api/sites/s1/logs", workerToken, map[string]string{
		"text": "작업 완료",
	})
	if status != http.StatusOK {
		t.Fatalf("worker log append failed with %d: %v", status, log)
	}
	if author, _ := log["author"].(string); author != "최목수" {
		t.Fatalf("expected author from token, got %q", author)
	}

	// Both roles confirm the log; each toggle only touches the caller.
	logID, _ := log["id"].(string)
	for _, token := range []string{workerToken, adminToken} {
		status, _ = env.Do(t, "POST", "/api/sites/s1/logs/"+logID+"/checks", token, nil)
		if status != http.StatusOK {
			t.Fatalf("toggle check failed with %d", status)
		}
	}
	checks := env.Store.Snapshot().SiteLogs["s1"][0].Checks
	if len(checks) != 2 {
		t.Fatalf("expected two confirmations, got %v", checks)
	}
}

func TestAdminManagesAccounts(t *testing.T) {
	env := NewTestEnv(t)
	adminToken := env.Login(t, "admin", "931931")

	status, created := env.Do(t, "POST", "/api/users", adminToken, map[string]string{
		"employeeId": "lee01", "name": "이직원", "role": domain.RoleWorker, "password": "temp123",
	})
	if status != http.StatusOK {
		t.Fatalf("create user failed with %d: %v", status, created)
	}
	userID, _ := created["id"].(string)

	// The new account can log in with its initial password.
	newToken := env.Login(t, "lee01", "temp123")
	if newToken == "" {
		t.Fatalf("new account cannot log in")
	}

	status, _ = env.Do(t, "POST", "/api/users/"+userID+"/reset-password", adminToken, map[string]string{
		"newPassword": "fresh456",
	})
	if status != http.StatusOK {
		t.Fatalf("reset password failed with %d", status)
	}

	status, _ = env.Do(t, "POST", "/api/login", "", map[string]string{
		"employeeId": "lee01", "password": "temp123",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected old password rejected after reset, got %d", status)
	}
	if tok := env.Login(t, "lee01", "fresh456"); tok == "" {
		t.Fatalf("new password does not work after reset")
	}
}

func TestTicketCompletionIsOneWay(t *testing.T) {
	env := NewTestEnv(t)
	token := env.Login(t, "admin", "931931")

	status, _ := env.Do(t, "POST", "/api/tickets", token, map[string]string{
		"id": "a1", "siteId": "s1", "issue": "주방 수전 물샘 현상",
		"status": "done", "date": "2026-01-12", "time": "14:00",
		"customerName": "이수진", "customerPhone": "010-0000-0000",
	})
	if status != http.StatusOK {
		t.Fatalf("close ticket failed with %d", status)
	}

	status, _ = env.Do(t, "POST", "/api/tickets", token, map[string]string{
		"id": "a1", "siteId": "s1", "issue": "주방 수전 물샘 현상",
		"status": "scheduled", "date": "2026-01-12", "time": "14:00",
		"customerName": "이수진", "customerPhone": "010-0000-0000",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected reopen rejected with 400, got %d", status)
	}
}
