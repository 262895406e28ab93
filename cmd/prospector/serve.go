package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	redis_adapter "github.com/user/prospector/internal/adapter/redis"
	"github.com/user/prospector/internal/delivery/http/handler"
	"github.com/user/prospector/internal/delivery/http/router"
	"github.com/user/prospector/internal/usecase"
	"github.com/user/prospector/pkg/config"
	"github.com/user/prospector/pkg/metrics"
)

func serveCmd(a *app) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background harvest worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before starting")
	return cmd
}

func runServe(ctx context.Context, a *app, migrate bool) error {
	cfg, logger := a.cfg, a.logger

	m := metrics.New(prometheus.DefaultRegisterer)
	logger.Info("metrics initialized")

	store, err := openStore(ctx, cfg, migrate, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()
	logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))

	events, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer events.Close()

	// --- Repositories ---
	queueRepo := redis_adapter.NewQueueRepo(rdb)
	statusRepo := redis_adapter.NewJobStatusRepo(rdb, config.Hours(cfg.JobStatusTTLHours))
	submissionRepo := redis_adapter.NewSubmissionRepo(rdb)

	// --- Use Cases ---
	svc := newServices(cfg, store, rdb, logger, m)
	runner := usecase.NewHarvestService(svc.harvester, store, redis_adapter.NewSeenRepo(rdb), config.Hours(cfg.SeenTTLHours), logger)
	jobs := usecase.NewJobManager(queueRepo, statusRepo, submissionRepo, harvesterConfig(cfg), logger, m)
	prospects := usecase.NewProspectManager(store)

	worker := usecase.NewHarvestWorker(queueRepo, statusRepo, runner, events, config.Seconds(cfg.JobPollIntervalSeconds), logger, m)
	worker.Start()

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(jobs, prospects, svc.validator, store, logger)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, m, prometheus.DefaultGatherer, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		worker.Stop()
		return fmt.Errorf("could not listen on port %s: %w", cfg.ServerPort, err)
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	worker.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exiting")
	return nil
}
