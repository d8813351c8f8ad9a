package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/frostline-scm/frostline/internal/app"
	"github.com/frostline-scm/frostline/internal/customers"
	"github.com/frostline-scm/frostline/internal/geo"
	"github.com/frostline-scm/frostline/internal/insight"
	"github.com/frostline-scm/frostline/internal/notify"
	"github.com/frostline-scm/frostline/internal/platform/cache"
	"github.com/frostline-scm/frostline/internal/platform/db"
	"github.com/frostline-scm/frostline/internal/shared"
	"github.com/frostline-scm/frostline/internal/workflow"
	"github.com/frostline-scm/frostline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	snapshotSource := customers.NewCachedSource(
		customers.NewRepository(pool), redisClient, cfg.SnapshotTTL, logger)

	service := workflow.NewService(workflow.NewRepository(pool), logger)
	service.SetCustomers(snapshotSource)
	service.SetNotifier(notify.NewAsynqNotifier(jobClient, logger))
	service.SetAudit(shared.NewAuditLogger(pool))
	if cfg.InsightURL != "" {
		service.SetInsight(insight.NewClient(cfg.InsightURL, redisClient, logger))
	}
	if cfg.GeoURL != "" {
		service.SetDistance(geo.NewClient(cfg.GeoURL, logger))
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		WorkflowHandler: workflow.NewHandler(logger, service),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Pool:            pool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
