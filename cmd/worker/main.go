package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/apexpos/admin/internal/app"
	"github.com/apexpos/admin/internal/backend"
	"github.com/apexpos/admin/internal/observability"
	"github.com/apexpos/admin/internal/platform/db"
	"github.com/apexpos/admin/internal/wizard"
	"github.com/apexpos/admin/jobs"
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
	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	rules := cfg.Rules()
	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout,
		backend.WithMetrics(backend.NewMetrics(metrics.Registerer())))
	mailer := jobs.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, nil)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := asynq.NewClient(redisOpts)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	scanJob := &jobs.StockScanJob{
		Catalog:   backendClient,
		Rules:     rules,
		Queue:     queue,
		Recipient: cfg.AlertEmail,
		Logger:    logger,
		Metrics:   metrics.Jobs(),
	}
	emailJob := &jobs.SendEmailJob{Sender: mailer, Logger: logger, Metrics: metrics.Jobs()}
	exportJob := &jobs.ExportEmailJob{Catalog: backendClient, Rules: rules, Sender: mailer, Logger: logger, Metrics: metrics.Jobs()}
	purgeJob := &jobs.DraftPurgeJob{Store: wizard.NewPGStore(pool), Logger: logger, Metrics: metrics.Jobs()}

	scanTask, err := jobs.NewStockScanTask(time.Time{})
	if err != nil {
		logger.Error("build stock scan task", slog.Any("error", err))
		os.Exit(1)
	}
	purgeTask, err := jobs.NewDraftPurgeTask(cfg.DraftMaxAge)
	if err != nil {
		logger.Error("build draft purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Location:  rules.Location,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockScan, Handler: scanJob.Handle},
			{Type: jobs.TaskTypeSendEmail, Handler: emailJob.Handle},
			{Type: jobs.TaskExportEmail, Handler: exportJob.Handle},
			{Type: jobs.TaskDraftPurge, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.StockScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
