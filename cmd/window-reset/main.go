// Command window-reset performs one day or week window reset and exits.
// It is meant for an external cron when the API's built-in scheduler is disabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/attaboy/gamesocial/internal/app"
	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/infra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	window := flag.String("window", "", "window to reset: day or week")
	flag.Parse()

	if err := run(logger, *window); err != nil {
		logger.Error("window reset failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, rawWindow string) error {
	window, err := domain.ParseWindow(rawWindow)
	if err != nil {
		return err
	}
	if !window.Resettable() {
		return fmt.Errorf("window %q cannot be reset", window)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := checkConfig(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()

	services := app.NewServices(stores, cfg, infra.NewEventPublisher(producer, cfg.KafkaTopicPrefix, nil), logger)

	result, err := services.Ledger.ResetWindow(ctx, window)
	if err != nil {
		return fmt.Errorf("reset %s: %w", window, err)
	}
	logger.Info("window reset done", "window", window, "total", result.Total, "chunks", result.Chunks)
	return nil
}

// checkConfig validates the store settings. The memory backend is refused: a
// fresh process would reset an empty store and report success.
func checkConfig(cfg *infra.Config) error {
	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	if cfg.StoreBackend == infra.BackendMemory {
		return fmt.Errorf("STORE_BACKEND=%s has nothing to reset in a one-shot process", cfg.StoreBackend)
	}
	return nil
}
