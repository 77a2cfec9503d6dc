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
	"github.com/apexpos/admin/internal/pages"
	"github.com/apexpos/admin/internal/platform/cache"
	"github.com/apexpos/admin/internal/platform/db"
	"github.com/apexpos/admin/internal/refdata"
	"github.com/apexpos/admin/internal/shared"
	"github.com/apexpos/admin/internal/view"
	"github.com/apexpos/admin/internal/wizard"
	"github.com/apexpos/admin/jobs"
	"github.com/apexpos/admin/report"
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

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			logger.Error("run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	metrics := observability.NewMetrics()
	rules := cfg.Rules()

	sessionManager := shared.NewSessionManager(redisClient, shared.SessionConfig{
		CookieName: "apexpos_session",
		TTL:        cfg.SessionTTL,
		Secure:     cfg.IsProduction(),
	})
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)

	backendClient := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout,
		backend.WithMetrics(backend.NewMetrics(metrics.Registerer())))

	optionService := refdata.NewService(
		refdata.NewRepository(dbpool),
		cache.NewVersioned(redisClient, "refdata", 10*time.Minute),
		auditLogger,
		logger,
	)
	if err := optionService.Watch(ctx); err != nil {
		logger.Warn("refdata watch disabled", slog.Any("error", err))
	}

	templates, err := view.NewEngine(view.Options{ImageURL: backendClient.ImageURL, Location: rules.Location})
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	reportClient := report.NewClient(cfg.GotenbergURL, 30*time.Second, report.WithLandscape())

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	pageHandler := pages.NewHandler(pages.Params{
		Logger:         logger,
		Templates:      templates,
		CSRF:           csrfManager,
		Catalog:        backendClient,
		Options:        optionService,
		Drafts:         wizard.NewPGStore(dbpool),
		Submitter:      wizard.NewSubmitter(backendClient, wizard.WarrantyMode(cfg.WarrantyMode), logger),
		PDF:            reportClient,
		Exports:        jobClient,
		AlertEmail:     cfg.AlertEmail,
		Audit:          auditLogger,
		Rules:          rules,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Pages:          pageHandler,
		Options:        refdata.NewHandler(logger, optionService),
		Report:         report.NewHandler(reportClient, logger),
		Jobs:           jobs.NewHandler(inspector, jobClient, logger),
		Metrics:        metrics,
		Ready: func(ctx context.Context) error {
			if err := dbpool.Ping(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  cfg.AppIdleTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
