package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/yourorg/siteops/internal/handler"
	"github.com/yourorg/siteops/internal/infrastructure/logger"
	"github.com/yourorg/siteops/internal/repository"
	"github.com/yourorg/siteops/internal/security"
	"github.com/yourorg/siteops/internal/security/auth"
	"github.com/yourorg/siteops/internal/security/middleware"
	"github.com/yourorg/siteops/internal/service"
	"github.com/yourorg/siteops/internal/store"
	"github.com/yourorg/siteops/pkg/cache"
	"github.com/yourorg/siteops/pkg/database"
)

// TestEnv wires the full stack against a temporary database file, with the
// real JWT middleware in front so requests authenticate the same way they
// do in production.
type TestEnv struct {
	Server *httptest.Server
	Store  *store.Store
	DBPath string

	pool *database.ConnectionPool
}

// NewTestEnv boots the stack on a fresh database under t.TempDir.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return newTestEnvAt(t, filepath.Join(t.TempDir(), "siteops.db"))
}

// Reopen closes the environment and boots a new one on the same database
// file, simulating a process restart.
func (e *TestEnv) Reopen(t *testing.T) *TestEnv {
	t.Helper()
	e.Close()
	return newTestEnvAt(t, e.DBPath)
}

func newTestEnvAt(t *testing.T, dbPath string) *TestEnv {
	t.Helper()
	log := logger.NewLogger("error")
	ctx := context.Background()

	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Path:            dbPath,
		BusyTimeout:     5 * time.Second,
		ConnMaxLifetime: time.Hour,
	}, log)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	snapshotRepo, err := repository.NewSnapshotRepository(pool.GetDB(), log)
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	snapshot, err := store.EnsureInitialized(ctx, snapshotRepo, log)
	if err != nil {
		t.Fatalf("initialize snapshot: %v", err)
	}

	st := store.New(snapshot, snapshotRepo, log, store.Options{})
	tokenManager := auth.NewTokenManager("integration-secret", "siteops")
	authz := security.NewAuthorizationService(log)
	authService := service.NewAuthService(st, tokenManager, time.Hour, log)

	loginHandler := handler.NewLoginHandler(authService, nil, log)
	snapshotHandler := handler.NewSnapshotHandler(st, log)
	dashboardHandler := handler.NewDashboardHandler(st, cache.New(), log)
	sitesHandler := handler.NewSitesHandler(st, authz, log)
	ticketsHandler := handler.NewTicketsHandler(st, authz, log)
	usersHandler := handler.NewUsersHandler(st, authService, authz, log)
	siteLogsHandler := handler.NewSiteLogsHandler(st, authz, log)
	workersHandler := handler.NewWorkersHandler(st, authz, log)
	materialsHandler := handler.NewMaterialsHandler(st, authz, log)
	healthHandler := handler.NewHealthHandler(pool, st, log)

	mux := http.NewServeMux()
	mux.Handle("POST /api/login", loginHandler)
	mux.HandleFunc("GET /api/snapshot", snapshotHandler.Get)
	mux.HandleFunc("GET /api/dashboard", dashboardHandler.Get)
	mux.HandleFunc("GET /api/sites", sitesHandler.List)
	mux.HandleFunc("POST /api/sites", sitesHandler.Upsert)
	mux.HandleFunc("DELETE /api/sites/{id}", sitesHandler.Delete)
	mux.HandleFunc("GET /api/tickets", ticketsHandler.List)
	mux.HandleFunc("POST /api/tickets", ticketsHandler.Upsert)
	mux.HandleFunc("DELETE /api/tickets/{id}", ticketsHandler.Delete)
	mux.HandleFunc("GET /api/users", usersHandler.List)
	mux.HandleFunc("POST /api/users", usersHandler.Upsert)
	mux.HandleFunc("POST /api/users/{id}/reset-password", usersHandler.ResetPassword)
	mux.HandleFunc("GET /api/sites/{id}/logs", siteLogsHandler.List)
	mux.HandleFunc("POST /api/sites/{id}/logs", siteLogsHandler.Append)
	mux.HandleFunc("POST /api/sites/{id}/logs/{logId}/checks", siteLogsHandler.ToggleCheck)
	mux.HandleFunc("POST /api/sites/{id}/logs/{logId}/comments", siteLogsHandler.AddComment)
	mux.HandleFunc("GET /api/sites/{id}/workers", workersHandler.List)
	mux.HandleFunc("POST /api/sites/{id}/workers", workersHandler.Upsert)
	mux.HandleFunc("GET /api/sites/{id}/materials", materialsHandler.List)
	mux.HandleFunc("POST /api/sites/{id}/materials", materialsHandler.Upsert)
	mux.HandleFunc("POST /api/sites/{id}/materials/{materialId}/toggle", materialsHandler.ToggleStatus)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	root := middleware.JWTMiddleware(tokenManager, log)(mux)
	server := httptest.NewServer(root)

	env := &TestEnv{Server: server, Store: st, DBPath: dbPath, pool: pool}
	t.Cleanup(env.Close)
	return env
}

func (e *TestEnv) Close() {
	if e.Server != nil {
		e.Server.Close()
		e.Server = nil
	}
	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
}

// Login authenticates and returns a bearer token.
func (e *TestEnv) Login(t *testing.T, employeeID, password string) string {
	t.Helper()
	status, body := e.Do(t, "POST", "/api/login", "", map[string]string{
		"employeeId": employeeID,
		"password":   password,
	})
	if status != http.StatusOK {
		t.Fatalf("login failed with %d: %v", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("no token in login response: %v", body)
	}
	return token
}

// Do issues a JSON request and decodes the JSON object response.
func (e *TestEnv) Do(t *testing.T, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}
