package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Chichichkin/logshipper/internal/config"
	"github.com/Chichichkin/logshipper/internal/daemon"
	"github.com/Chichichkin/logshipper/internal/logger"
	"github.com/Chichichkin/logshipper/internal/logging/delivery"
	"github.com/Chichichkin/logshipper/internal/logging/sinks"
)

var version = "dev"

func main() {
	configPath := pflag.StringP("config", "c", config.DefaultPath, "path to config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalChan
		slog.Info("Received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	sink, err := sinks.New(cfg.LogService, cfg.LogPath)
	if err != nil {
		return fmt.Errorf("configuring log service: %w", err)
	}

	dispatcher := delivery.NewDispatcher(sink, delivery.Config{
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay(),
	})

	service, err := daemon.NewLogDaemonService(ctx, daemon.Config{
		LogPath:         cfg.LogPath,
		BatchSize:       cfg.BatchSize,
		MaxBatchBytes:   cfg.MaxBatchBytes,
		Filter:          cfg.Filter,
		FollowMode:      cfg.FollowMode,
		FileWaitTimeout: cfg.FileWaitTimeout.Duration,
		MetricsInterval: cfg.MetricsInterval.Duration,
	}, dispatcher)
	if err != nil {
		return err
	}

	slog.Info("Shipping logs", "service", sink.Name(), "version", version)
	service.Start()

	select {
	case <-ctx.Done():
	case <-service.Done():
	}

	service.Stop()
	return service.Err()
}
