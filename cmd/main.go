package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sandlin/cma-scout/internal/adapters/http/api"
	"github.com/sandlin/cma-scout/internal/adapters/ingest"
	"github.com/sandlin/cma-scout/internal/adapters/repository"
	service "github.com/sandlin/cma-scout/internal/app"
	"github.com/sandlin/cma-scout/internal/config"
	"github.com/sandlin/cma-scout/internal/jobs"
	"github.com/sandlin/cma-scout/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Drop the default Go runtime collectors; the engine exposes its own
	// domain metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional .env -> file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.Error(err))
		return
	}
	defer closeStore()

	ingestor := ingest.WithRetry(
		ingest.NewSimulatedIngestor(),
		ingest.WithMaxAttempts(cfg.IngestMaxAttempts),
		ingest.WithBaseDelay(time.Duration(cfg.IngestBaseDelayMS)*time.Millisecond),
	)

	svc := service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithIngestor(ingestor),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithSearchRadius(cfg.SearchRadiusMiles),
		service.WithScoreWeights(cfg.NameWeight, cfg.PriceWeight, cfg.DistanceWeight),
		service.WithScoreDelta(cfg.ScoreDelta),
		service.WithSeverityFloor(cfg.SeverityFloor),
		service.WithFreshnessWindow(time.Duration(cfg.FreshnessDays)*24*time.Hour),
		service.WithCooldown(time.Duration(cfg.CooldownHours)*time.Hour),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	scheduler := jobs.NewScheduler(svc, time.Duration(cfg.ScrapeFrequencyHours)*time.Hour)
	if err := scheduler.Start(ctx); err != nil {
		log.Error(ctx, "failed to start scheduler", logger.Error(err))
		return
	}
	defer scheduler.Stop()

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// buildStore opens the configured persistence backend.
func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		pg, err := repository.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info(ctx, "using postgres store")
		return pg, func() { _ = pg.Close() }, nil
	default:
		log.Info(ctx, "using in-memory store")
		return repository.NewMemStore(), func() {}, nil
	}
}
