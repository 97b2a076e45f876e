package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jegsons/sellthru/internal/app"
	jobmetrics "github.com/jegsons/sellthru/internal/jobs"
	"github.com/jegsons/sellthru/internal/platform/cache"
	"github.com/jegsons/sellthru/internal/platform/db"
	"github.com/jegsons/sellthru/internal/sellthru"
	"github.com/jegsons/sellthru/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{ApplicationName: "sellthru-worker", MaxConns: int32(4 * max(cfg.WorkerConcurrency, 1))})
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

	store, err := app.OpenReportStore(ctx, cfg)
	if err != nil {
		logger.Error("open report store", slog.Any("error", err))
		os.Exit(1)
	}

	service := app.NewReportService(cfg, app.ReportDeps{
		Pool:    pool,
		Redis:   redisClient,
		Store:   store,
		Metrics: jobmetrics.NewMetrics(nil),
		Logger:  logger,
	})
	reportJob := sellthru.NewJob(sellthru.JobConfig{Service: service, Logger: logger})

	var cron []jobs.CronRegistration
	if cfg.ReportWeeklyCron != "" {
		weeklyTask, err := jobs.NewWeeklyReportTask(jobs.WeeklyReportPayload{
			VendorID:     cfg.ReportDefaultVendor,
			PreviousWeek: true,
			RequestedBy:  "cron",
		})
		if err != nil {
			logger.Error("build weekly task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.ReportWeeklyCron, Task: weeklyTask})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Queues:      cfg.WorkerQueues,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSellThruWeekly, Handler: reportJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("cron", cfg.ReportWeeklyCron), slog.String("vendor", cfg.ReportDefaultVendor))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
