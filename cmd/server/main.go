package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/config"
	"github.com/scanops/oms/internal/container"
	"github.com/scanops/oms/pkg/utils"
)

const version = "1.0.0"

func main() {
	defaultPath := os.Getenv("OMS_CONFIG")
	if defaultPath == "" {
		defaultPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML configuration file")
	flag.Parse()

	if _, err := os.Stat(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config file %s not readable, using defaults and environment: %v\n", *configPath, err)
		*configPath = ""
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting scan operations OMS",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("email_provider", cfg.Email.Provider))

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("failed to start container: %w", err)
	}

	health := c.Health()
	for name, component := range health.Components {
		logger.Info("Component status",
			zap.String("component", name),
			zap.Bool("healthy", component.Healthy),
			zap.String("message", component.Message))
	}
	if !health.Overall {
		logger.Warn("Starting with unhealthy components")
	}

	// Start blocks until the signal context is cancelled or the listener fails
	serveErr := c.Server().Start(ctx)

	logger.Info("Shutting down server...")
	if err := c.Close(); err != nil {
		logger.Error("Container shutdown error", zap.Error(err))
	}
	return serveErr
}
