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

	"github.com/ledgerlens/ledgerlens/internal/app"
	drillhttp "github.com/ledgerlens/ledgerlens/internal/drill/http"
	"github.com/ledgerlens/ledgerlens/internal/history"
	"github.com/ledgerlens/ledgerlens/internal/observability"
	"github.com/ledgerlens/ledgerlens/internal/platform/cache"
	"github.com/ledgerlens/ledgerlens/internal/platform/db"
	"github.com/ledgerlens/ledgerlens/internal/source"
	"github.com/ledgerlens/ledgerlens/internal/source/ledgerapi"
	"github.com/ledgerlens/ledgerlens/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, running uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	provider := ledgerapi.NewClient(cfg.ProviderBaseURL, cfg.ProviderTenantID, ledgerapi.StaticToken(cfg.ProviderToken)).
		WithPortal(cfg.ProviderPortalURL)
	if err := provider.Ping(ctx); err != nil {
		logger.Warn("provider ping", slog.Any("error", err))
	}

	drillCache := source.NewCache(redisClient, cfg.CacheTTL)
	if err := drillCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	historyRepo := history.NewRepository(dbpool)
	var dataSource source.DataSource = source.NewCachedSource(
		source.NewComposite(provider, historyRepo, cfg.HistoryCutoff, logger),
		drillCache,
	)

	drillHandler := drillhttp.NewHandler(logger, dataSource)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		DrillHandler: drillHandler,
		JobHandler:   jobHandler,
		Metrics:      metrics,
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
