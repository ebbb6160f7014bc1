package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"globalnews_translator/internal/api"
	"globalnews_translator/internal/app/service"
	"globalnews_translator/internal/app/translation"
	"globalnews_translator/internal/app/worker"
	"globalnews_translator/internal/common/security"
	"globalnews_translator/internal/platform/database"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var (
		migrate         bool
		shutdownTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the worker pool and retry maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate, shutdownTimeout)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply pending migrations before serving")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "How long to wait for in-flight jobs on shutdown")
	return cmd
}

func runServe(ctx context.Context, migrate bool, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	if migrate && a.db != nil {
		if err := database.Migrate(a.db, cfg.Database.MigrationsDir); err != nil {
			return err
		}
		log.Info("migrations applied", zap.String("dir", cfg.Database.MigrationsDir))
	}

	pipeline, gateway, err := a.pipeline()
	if err != nil {
		return err
	}
	metrics := worker.NewMetricsReporter(a.jobs, a.results, pipeline, cfg.Pipeline.MetricsWindowDays)
	requeuer := worker.NewRequeuer(a.jobs, a.signal, pipeline, worker.RequeuerOptions{
		Interval:        cfg.Pipeline.RequeueInterval,
		RetryBaseDelay:  cfg.Pipeline.RetryBaseDelay,
		StaleJobTimeout: cfg.Pipeline.StaleJobTimeout,
	}, log)

	issuer := security.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTExpiry)
	authService := service.NewAuthService(cfg.Auth.OperatorPasswordHash, issuer, log)
	translationService := service.NewTranslationService(a.jobService(), pipeline, metrics, a.articles, a.jobs, a.results, log)

	var health translation.HealthChecker
	if hc, ok := gateway.(translation.HealthChecker); ok {
		health = hc
	}
	router := api.NewRouter(log, issuer, authService, translationService, health, api.RouterOptions{
		StopTimeout: shutdownTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.Pipeline.AutoStart {
		translationService.StartPipeline()
	}
	maintenanceCtx, stopMaintenance := context.WithCancel(context.Background())
	defer stopMaintenance()
	go requeuer.Run(maintenanceCtx)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopMaintenance()
	runErr = multierr.Append(runErr, server.Shutdown(shutdownCtx))
	if err := translationService.StopPipeline(shutdownCtx); err != nil {
		log.Warn("jobs still in flight at shutdown, the requeuer will settle them", zap.Int("busy", pipeline.Busy()))
		runErr = multierr.Append(runErr, fmt.Errorf("stop pipeline: %w", err))
	}

	if runErr == nil {
		log.Info("server and pipeline stopped gracefully")
	}
	return runErr
}
