package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attaboy/gamesocial/internal/app"
	"github.com/attaboy/gamesocial/internal/auth"
	"github.com/attaboy/gamesocial/internal/guard"
	"github.com/attaboy/gamesocial/internal/infra"
	"github.com/attaboy/gamesocial/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	events := infra.NewEventPublisher(producer, cfg.KafkaTopicPrefix,
		guard.NewCircuitBreaker(cfg.PublishFailThreshold, cfg.PublishResetTimeout))

	services := app.NewServices(stores, cfg, events, logger)

	if cfg.SchedulerEnabled {
		loc, _ := cfg.Location()
		sched, err := scheduler.New(services.Ledger, scheduler.Config{
			DailyCron:     cfg.ResetDailyCron,
			WeeklyCron:    cfg.ResetWeeklyCron,
			Location:      loc,
			Sweeper:       services.Limiter,
			SweepInterval: 10 * time.Minute,
		}, logger)
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		sched.Start(ctx)
		defer func() {
			if err := sched.Stop(); err != nil {
				logger.Error("scheduler stop failed", "error", err)
			}
		}()
	}

	router := app.NewRouter(app.RouterDeps{
		Stores:   stores,
		Services: services,
		JWTMgr:   auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour),
		Logger:   logger,
	})

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr, "backend", stores.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
