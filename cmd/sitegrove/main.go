package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	sghttp "github.com/sitegrove/sitegrove/internal/adapter/http"
	sgnats "github.com/sitegrove/sitegrove/internal/adapter/nats"
	"github.com/sitegrove/sitegrove/internal/adapter/natskv"
	sgotel "github.com/sitegrove/sitegrove/internal/adapter/otel"
	"github.com/sitegrove/sitegrove/internal/adapter/postgres"
	"github.com/sitegrove/sitegrove/internal/adapter/ristretto"
	"github.com/sitegrove/sitegrove/internal/adapter/tiered"
	"github.com/sitegrove/sitegrove/internal/adapter/ws"
	"github.com/sitegrove/sitegrove/internal/config"
	"github.com/sitegrove/sitegrove/internal/logger"
	"github.com/sitegrove/sitegrove/internal/middleware"
	"github.com/sitegrove/sitegrove/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"base_domain", cfg.Server.BaseDomain,
		"l1_ttl", cfg.Cache.L1TTL,
		"l2_ttl", cfg.Cache.L2TTL,
	)

	ctx := context.Background()

	// --- Telemetry ---
	otelShutdown, err := sgotel.Setup(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	var metrics *sgotel.Metrics
	if cfg.Telemetry.Enabled {
		metrics, err = sgotel.NewMetrics()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS: invalidation bus plus the JetStream KV edge cache bucket.
	queue, err := sgnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	kv, err := natskv.EnsureBucket(ctx, queue.JetStream(), cfg.NATS.KVBucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("edge cache bucket: %w", err)
	}

	// Tiered hostname cache: ristretto in-process, NATS KV shared.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()
	hostCache := tiered.New(l1, natskv.New(kv), cfg.Cache.L1TTL)

	// --- Services ---
	hub := ws.NewHub()
	store := postgres.NewStore(pool)

	accessors := service.NewAccessors(store, store)
	resolver := service.NewResolver(hostCache, store, cfg.Server.BaseDomain,
		cfg.Cache.L2TTL, cfg.Cache.NegativeTTL)
	statusSvc := service.NewStatusService()
	invalidation := service.NewInvalidationCoordinator(resolver, queue, hub, hostCache)

	cancelInvalidation, err := invalidation.Start(ctx)
	if err != nil {
		return fmt.Errorf("invalidation subscriber: %w", err)
	}
	defer cancelInvalidation()

	// --- HTTP ---
	handlers := &sghttp.Handlers{
		Accessors:    accessors,
		Status:       statusSvc,
		Resolver:     resolver,
		Invalidation: invalidation,
		Metrics:      metrics,
	}

	r := chi.NewRouter()

	r.Use(sghttp.CORS(cfg.Server.CORSOrigin))
	r.Use(sghttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(sghttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	if cfg.Telemetry.Enabled {
		r.Use(sgotel.HTTPMiddleware(cfg.Logging.Service))
	}

	r.Get("/health", healthHandler(pool, hub))
	r.Get("/ws", hub.HandleWS)

	sghttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler returns an http.HandlerFunc that reports component health.
func healthHandler(pool interface{ Ping(context.Context) error }, hub *ws.Hub) http.HandlerFunc {
	type healthStatus struct {
		Status    string `json:"status"`
		Postgres  string `json:"postgres"`
		WSClients int    `json:"ws_clients"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Postgres: "ok", WSClients: hub.ConnectionCount()}
		code := http.StatusOK
		if err := pool.Ping(r.Context()); err != nil {
			status.Status = "degraded"
			status.Postgres = err.Error()
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
