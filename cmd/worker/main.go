// Package main provides the entry point for the batch worker. It runs
// inbox ingestion, OpenAlex enrichment, metric recomputation and
// estimator training on cron schedules.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/helixir/bibliometrics-service/internal/app"
	"github.com/helixir/bibliometrics-service/internal/config"
	"github.com/helixir/bibliometrics-service/internal/database"
	"github.com/helixir/bibliometrics-service/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg.Logging).With().Str("component", "worker").Logger()
	logger.Info().Msg("bibliometrics-service worker starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	metrics := app.NewMetrics(cfg)

	services, err := app.NewServices(ctx, cfg, db, metrics, logger)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	scheduler := worker.NewScheduler(db, cfg.Scheduler.LockKey, logger)
	for _, job := range jobs(cfg, services, logger) {
		if err := scheduler.Add(job); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	metricsServer := app.NewMetricsServer(cfg)
	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	scheduler.Start()

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("worker error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("scheduler did not stop cleanly")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("bibliometrics-service worker stopped")
	return nil
}

// jobs builds the scheduled batch jobs. A job whose spec is empty is
// registered but never fires.
func jobs(cfg *config.Config, s *app.Services, logger zerolog.Logger) []worker.Job {
	inbox := worker.NewInboxSweeper(cfg.Scheduler.InboxDir, s.Registry, s.Ingestion, logger)

	out := []worker.Job{
		{
			Name: "ingest",
			Spec: cfg.Scheduler.IngestCron,
			Run: func(ctx context.Context) error {
				_, err := inbox.Sweep(ctx)
				return err
			},
		},
		{
			Name: "metrics",
			Spec: cfg.Scheduler.MetricsCron,
			Run: func(ctx context.Context) error {
				_, err := s.Bibliometrics.RecomputeAll(ctx)
				return err
			},
		},
		{
			Name: "train",
			Spec: cfg.Scheduler.TrainCron,
			Run: func(ctx context.Context) error {
				_, err := s.Trainer.Train(ctx)
				return err
			},
		},
	}

	if cfg.Scheduler.EnrichExport != "" {
		enricher := worker.NewOpenAlexEnricher(cfg.Scheduler.EnrichExport, s.Ingestion, logger)
		out = append(out, worker.Job{
			Name: "enrich",
			Spec: cfg.Scheduler.EnrichCron,
			Run: func(ctx context.Context) error {
				_, err := enricher.Run(ctx)
				return err
			},
		})
	}
	return out
}
