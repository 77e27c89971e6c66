// Command aria runs the adaptive coordination engine: the decision
// pipeline for unreliable agent output, the trust-gated executor, and the
// undo buffer sweep.
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

	"golang.org/x/sync/errgroup"

	ariahttp "github.com/arcwell-foundry/aria/internal/adapter/http"
	arianats "github.com/arcwell-foundry/aria/internal/adapter/nats"
	otelx "github.com/arcwell-foundry/aria/internal/adapter/otel"
	"github.com/arcwell-foundry/aria/internal/adapter/postgres"
	"github.com/arcwell-foundry/aria/internal/adapter/ristretto"
	"github.com/arcwell-foundry/aria/internal/config"
	"github.com/arcwell-foundry/aria/internal/logger"
	"github.com/arcwell-foundry/aria/internal/port/notifier"
	"github.com/arcwell-foundry/aria/internal/resilience"
	"github.com/arcwell-foundry/aria/internal/service"
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

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"retry_ceiling", cfg.Coordinator.RetryCeiling,
		"undo_window", cfg.Coordinator.UndoWindow,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := otelx.Init(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(shutdownCtx); err != nil {
			slog.Warn("otel shutdown failed", "error", err)
		}
	}()

	metrics, err := otelx.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

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

	// NATS carries both agent dispatch (request/reply) and notification
	// events (JetStream).
	nc, err := arianats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = nc.Close() }()

	notifiers := notifier.NewRegistry()
	notifiers.Add(nc)

	scoreCache, err := ristretto.NewScoreCache(cfg.Trust.CacheMaxItems, cfg.Trust.CacheTTL)
	if err != nil {
		return fmt.Errorf("trust cache: %w", err)
	}
	defer scoreCache.Close()

	// --- Services ---

	store := postgres.NewStore(pool)
	trustSvc := service.NewTrustService(store, scoreCache, cfg.Trust.RiskWeight)
	governor := service.NewBudgetGovernor(cfg.Coordinator.RetryCeiling)
	resolver := service.NewFallbackResolver()
	recorder := service.NewCheckpointRecorder(store)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	// No external verifier is wired at the composition root yet; the
	// engine fails open without one.
	engine := service.NewDecisionEngine(governor, resolver, recorder, nil, breaker, store, trustSvc)

	executor := service.NewTrustGatedExecutor(store, nc, trustSvc, notifiers, metrics, cfg.Coordinator.UndoWindow)
	defer executor.Close()

	sweeper := service.NewUndoSweeper(store, executor, cfg.Coordinator.SweepInterval, cfg.Coordinator.SweepBatchSize)

	// --- HTTP ---

	handlers := &ariahttp.Handlers{
		Engine:   engine,
		Executor: executor,
		Store:    store,
		Metrics:  metrics,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           ariahttp.NewRouter(handlers, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("undo sweeper: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
