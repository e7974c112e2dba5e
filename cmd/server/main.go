package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/siteops/internal/featureflags"
	"github.com/yourorg/siteops/internal/handler"
	"github.com/yourorg/siteops/internal/infrastructure/logger"
	"github.com/yourorg/siteops/internal/observability/metrics"
	"github.com/yourorg/siteops/internal/observability/tracing"
	"github.com/yourorg/siteops/internal/repository"
	"github.com/yourorg/siteops/internal/security"
	"github.com/yourorg/siteops/internal/security/auth"
	"github.com/yourorg/siteops/internal/security/middleware"
	"github.com/yourorg/siteops/internal/security/ratelimit"
	"github.com/yourorg/siteops/internal/service"
	"github.com/yourorg/siteops/internal/store"
	"github.com/yourorg/siteops/internal/worker"
	"github.com/yourorg/siteops/pkg/cache"
	"github.com/yourorg/siteops/pkg/config"
	"github.com/yourorg/siteops/pkg/database"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting siteops server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set)
	shutdownTracing, err := tracing.Init(ctx, log, "siteops", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// 4. Open the local database
	dbConfig := database.DefaultConfig()
	if cfg.DataPath != "" {
		dbConfig.Path = cfg.DataPath
	}
	pool, err := database.NewConnectionPool(ctx, dbConfig, log)
	if err != nil {
		log.Error("failed to open database", slog.String("error", err.Error()), slog.String("path", dbConfig.Path))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Initialize repository and load or seed the snapshot
	snapshotRepo, err := repository.NewSnapshotRepository(pool.GetDB(), log)
	if err != nil {
		log.Error("failed to initialize snapshot repository", slog.String("error", err.Error()))
		os.Exit(1)
	}
	snapshot, err := store.EnsureInitialized(ctx, snapshotRepo, log)
	if err != nil {
		log.Error("failed to initialize snapshot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	st := store.New(snapshot, snapshotRepo, log, store.Options{
		ReopenTickets: featureflags.Enabled("ticket_reopen"),
	})

	// 6. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "siteops")
	authz := security.NewAuthorizationService(log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)

	// 7. Initialize services
	authService := service.NewAuthService(st, tokenManager, cfg.TokenTTL, log)

	// 8. Initialize handlers
	loginHandler := handler.NewLoginHandler(authService, rateLimiter, log)
	snapshotHandler := handler.NewSnapshotHandler(st, log)
	dashboardHandler := handler.NewDashboardHandler(st, cache.New(), log)
	sitesHandler := handler.NewSitesHandler(st, authz, log)
	ticketsHandler := handler.NewTicketsHandler(st, authz, log)
	usersHandler := handler.NewUsersHandler(st, authService, authz, log)
	siteLogsHandler := handler.NewSiteLogsHandler(st, authz, log)
	workersHandler := handler.NewWorkersHandler(st, authz, log)
	materialsHandler := handler.NewMaterialsHandler(st, authz, log)
	feedHandler := handler.NewFeedHandler(st, tokenManager, cfg.CORSAllowedOrigins, log)
	healthHandler := handler.NewHealthHandler(pool, st, log)

	// 9. Setup HTTP routes
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
	mux.Handle("GET /ws/snapshot", feedHandler)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> rate limit -> JWT -> JSON validation -> CORS -> mux
	rootHandler := withRequestID(
		withHTTPMetrics(
			middleware.RateLimitMiddleware(rateLimiter, log)(
				middleware.JWTMiddleware(tokenManager, log)(
					middleware.ValidateJSONContentType(log)(handlerWithCORS),
				),
			),
		),
		log,
	)
	rootHandler = otelhttp.NewHandler(rootHandler, "siteops")

	// 10. Start flush worker in background
	flushWorker := worker.NewFlushWorker(st, log, time.Duration(cfg.FlushIntervalSeconds)*time.Second)
	go flushWorker.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.String("data_path", dbConfig.Path),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	// Final flush so restarts never serve state older than the last mutation
	if err := st.Flush(shutdownCtx); err != nil {
		log.Error("final snapshot flush failed", slog.String("error", err.Error()))
	}

	cancel() // Stop flush worker
	rateLimiter.Stop()
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

// withHTTPMetrics wraps the handler chain in request metrics, except for
// websocket paths where the recording writer would break the upgrade
// (it does not implement http.Hijacker).
func withHTTPMetrics(next http.Handler) http.Handler {
	instrumented := metrics.HTTPMetricsMiddleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			next.ServeHTTP(w, r)
			return
		}
		instrumented.ServeHTTP(w, r)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
