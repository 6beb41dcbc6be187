// Command server runs the factory manager API and its background jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"factorymanager.io/manager/internal/app"
	"factorymanager.io/manager/internal/config"
	"factorymanager.io/manager/internal/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "factory manager: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Factory manager starting",
		zap.Int("port", cfg.Server.Port),
		zap.String("quota_backend", cfg.Quota.Backend),
		zap.String("quota_timezone", cfg.Quota.Timezone),
		zap.Int("default_max_actions", cfg.Quota.DefaultMaxActions),
		zap.Bool("openapi_validation", cfg.Server.OpenAPIValidation),
	)

	application, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer application.Close(context.Background())

	if err := application.StartJobs(ctx); err != nil {
		return err
	}
	if err := application.Serve(ctx); err != nil {
		return err
	}
	logger.Info("Factory manager stopped")
	return nil
}
