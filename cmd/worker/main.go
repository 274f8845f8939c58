package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ledgerlens/ledgerlens/internal/app"
	"github.com/ledgerlens/ledgerlens/internal/history"
	"github.com/ledgerlens/ledgerlens/internal/platform/cache"
	"github.com/ledgerlens/ledgerlens/internal/platform/db"
	"github.com/ledgerlens/ledgerlens/internal/source"
	"github.com/ledgerlens/ledgerlens/internal/source/ledgerapi"
	"github.com/ledgerlens/ledgerlens/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
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

	provider := ledgerapi.NewClient(cfg.ProviderBaseURL, cfg.ProviderTenantID, ledgerapi.StaticToken(cfg.ProviderToken)).
		WithPortal(cfg.ProviderPortalURL)
	drillCache := source.NewCache(redisClient, cfg.CacheTTL)
	historyRepo := history.NewRepository(pool)
	cachedSource := source.NewCachedSource(
		source.NewComposite(provider, historyRepo, cfg.HistoryCutoff, logger),
		drillCache,
	)

	warmupJob := jobs.NewDrillWarmupJob(cachedSource, logger, nil)
	bumpHandler := func(ctx context.Context, t *asynq.Task) error {
		return cachedSource.Bump(ctx)
	}

	warmupTask, err := jobs.NewDrillWarmupTask(jobs.DrillWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDrillWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskCacheBump, Handler: bumpHandler},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
