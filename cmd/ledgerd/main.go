package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poolcard/ledger-core/internal/bootstrap"
	"github.com/poolcard/ledger-core/internal/httpapi"
	"github.com/poolcard/ledger-core/pkg/mzap"
)

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := mzap.InitializeLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("failed to build app: %v", err)
		os.Exit(1)
	}

	fiberApp := httpapi.NewApp(app.Fiber)

	app.Sweep.Start()

	go func() {
		if err := fiberApp.Listen(cfg.ServerAddress); err != nil {
			logger.Errorf("http server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	app.Sweep.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorf("fiber shutdown: %v", err)
	}

	if err := app.Postgres.Close(); err != nil {
		logger.Errorf("postgres close: %v", err)
	}

	if err := app.Mongo.Close(shutdownCtx); err != nil {
		logger.Errorf("mongo close: %v", err)
	}

	if err := app.RabbitMQ.Close(); err != nil {
		logger.Errorf("rabbitmq close: %v", err)
	}
}
