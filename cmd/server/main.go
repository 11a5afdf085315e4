package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/config"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/logging"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	}()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
