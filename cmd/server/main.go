// sitetime - local website time tracking daemon
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/sitetime/internal/api"
	"github.com/ashureev/sitetime/internal/config"
	"github.com/ashureev/sitetime/internal/ingest"
	"github.com/ashureev/sitetime/internal/metrics"
	"github.com/ashureev/sitetime/internal/middleware"
	"github.com/ashureev/sitetime/internal/recorder"
	"github.com/ashureev/sitetime/internal/report"
	"github.com/ashureev/sitetime/internal/rollup"
	"github.com/ashureev/sitetime/internal/shared"
	"github.com/ashureev/sitetime/internal/store"
	"github.com/ashureev/sitetime/internal/tracker"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "addr", cfg.Addr(), "timezone", cfg.Location.String(), "db", cfg.DBPath)
	if !cfg.IsLoopback() {
		slog.Warn("Listening on a non-loopback address; browsing history is exposed to the network", "bind_addr", cfg.BindAddr)
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected")

	seed, err := config.LoadCategories(cfg.CategoriesFile)
	if err != nil {
		return err
	}
	seeded, err := repo.SeedCategories(context.Background(), seed)
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if seeded {
		slog.Info("Category lists seeded",
			"productive", len(seed.Productive),
			"unproductive", len(seed.Unproductive),
			"source", cfg.CategoriesFile)
	}

	clock := shared.SystemClock{}
	m := metrics.New()

	rec := recorder.New(repo, cfg.Location, clock, m, logger)
	tr := tracker.New(rec,
		tracker.WithClock(clock),
		tracker.WithMetrics(m),
		tracker.WithLogger(logger),
	)
	rollups := rollup.NewService(repo, cfg.Location, clock, m)
	reports := report.NewService(repo, cfg.Location, clock)

	// Initialize handlers.
	events := ingest.NewHandler(tr, nil, m, cfg.AllowedOrigins)
	apiHandler := api.NewHandler(repo, reports, rollups, tr)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterHealth(r)
	apiHandler.RegisterRoutes(r)
	events.RegisterRoutes(r)
	r.Handle("/metrics", m.Handler())

	// Websocket sessions are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-rollup.StartWorker(gctx, rollups, cfg.RollupInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		stop()
		slog.Info("Shutting down gracefully...")
		shutdown(srv, events.Clients(), tr, rollups, cfg.Shutdown)
		return nil
	})

	return g.Wait()
}

// shutdown stops accepting requests, disconnects event clients, closes out
// the live session and stores a final summary for today.
func shutdown(srv *http.Server, clients *ingest.ClientManager, tr *tracker.Tracker, rollups *rollup.Service, cfg config.ShutdownConfig) {
	httpCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	clients.CloseAll("server shutting down")

	closeCtx, cancelClose := context.WithTimeout(context.Background(), cfg.CloseOutTimeout)
	defer cancelClose()
	if err := tr.Shutdown(closeCtx); err != nil {
		slog.Error("Failed to close out active session", "error", err)
	}
	if _, err := rollups.RunToday(closeCtx); err != nil {
		slog.Error("Failed to store final summary", "error", err)
	}
}
