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

	authhandler "screener/internal/auth/handler"
	authservice "screener/internal/auth/service"
	"screener/internal/auth/store/credential"
	"screener/internal/platform/config"
	"screener/internal/platform/httpserver"
	"screener/internal/platform/logger"
	platformmetrics "screener/internal/platform/metrics"
	"screener/internal/platform/redis"
	rlhandler "screener/internal/ratelimit/handler"
	rlmetrics "screener/internal/ratelimit/metrics"
	rlmiddleware "screener/internal/ratelimit/middleware"
	"screener/internal/ratelimit/ports"
	rlservice "screener/internal/ratelimit/service"
	"screener/internal/ratelimit/store/window"
	"screener/internal/screening/aggregator"
	screeninghandler "screener/internal/screening/handler"
	screeningmetrics "screener/internal/screening/metrics"
	"screener/internal/screening/setup"
	httptransport "screener/internal/transport/http"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/audit/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("screener exited with error", "error", err)
		os.Exit(1)
	}
}

// run wires every dependency, serves until ctx is cancelled, then shuts the
// server down before draining the audit worker.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		log.Info("redis connected")
	}

	auditStore, closeAudit, err := openAuditStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	publisher := audit.NewPublisher(cfg.Audit.Buffer, audit.WithPublisherLogger(log))
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		_ = worker.NewWorker(auditStore, publisher.Inbox(), log).Run(workerCtx)
	}()
	defer func() {
		stopWorker()
		<-workerDone
	}()

	reg := platformmetrics.NewRegistry()

	credentials := credential.New()
	seeded, err := credential.SeedFromEnv(ctx, credentials, os.Getenv)
	if err != nil {
		return err
	}
	if seeded == 0 {
		log.Warn("no API keys seeded; create one through the admin routes")
	}
	authSvc, err := authservice.New(credentials,
		authservice.WithLogger(log),
		authservice.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	limiter, err := rlservice.New(windowStore(cfg, rdb, log),
		rlservice.WithQuota(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
		rlservice.WithLogger(log),
		rlservice.WithMetrics(rlmetrics.New(reg)),
		rlservice.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	sm := screeningmetrics.New(reg)
	src, err := setup.NewSources(cfg, log, sm, rdb)
	if err != nil {
		return err
	}
	agg := aggregator.New(src.Aggregated(), aggregator.WithLogger(log), aggregator.WithMetrics(sm))

	router := httptransport.NewRouter(httptransport.Deps{
		Screening: screeninghandler.New(agg, screeninghandler.Sources{
			Sanctions: src.Sanctions,
			Offshore:  src.Offshore,
			Registry:  src.Registry,
		}, publisher, log, screeninghandler.WithVersion(cfg.Server.Version)),
		RateLimit:     rlhandler.New(limiter, log),
		Auth:          authhandler.New(authSvc, log),
		Authenticator: authSvc,
		Limiter:       rlmiddleware.New(limiter, log),
		AdminToken:    cfg.Server.AdminToken,
		Metrics:       platformmetrics.Handler(reg),
		Logger:        log,
	})
	if cfg.Server.AdminToken == "" {
		log.Warn("admin token not set; admin routes are disabled")
	}

	srv := httpserver.New(cfg.Server.Addr, router)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting screener", "addr", cfg.Server.Addr, "version", cfg.Server.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func windowStore(cfg config.Config, rdb *redis.Client, log *slog.Logger) ports.WindowStore {
	if cfg.RateLimit.Backend == "redis" {
		if rdb != nil {
			return window.NewRedisWindowStore(rdb.Client)
		}
		log.Warn("rate limit backend is redis but no redis url is set; using memory")
	}
	return window.NewInMemoryWindowStore()
}

