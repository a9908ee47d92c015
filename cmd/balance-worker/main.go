package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ledgerview/internal/amqp"
	"ledgerview/internal/cli"
	"ledgerview/internal/directory"
	"ledgerview/internal/log"
	"ledgerview/internal/report"
	"ledgerview/internal/restapi"
	"ledgerview/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting balance-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	backend := restapi.New(cfg.BackendBaseURL, cfg.BackendToken, cfg.BackendTimeout)
	engine := report.NewEngine(backend, backend)

	store := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer store.Close()

	appLog := log.New(log.DefaultConfig())
	dir := directory.New(backend, backend, store, cfg.DirectoryTTL, appLog.WithComponent(log.ComponentDirectory))

	balances := services.NewBalanceService(engine, dir, store, services.BalanceServiceConfig{
		Concurrency: cfg.BalanceConcurrency,
		PageSize:    cfg.PageSize,
	}, appLog.WithComponent(log.ComponentWorker))
	refresher := services.NewRefreshService(balances, dir, appLog.WithComponent(log.ComponentWorker))

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Warm the directory and balances once on startup, so a fresh deploy
	// serves data before the first refresh event arrives.
	if err := dir.Refresh(ctx); err != nil {
		logger.Error("Startup directory refresh failed", "error", err)
	}
	if _, err := balances.ComputeAll(ctx); err != nil {
		logger.Error("Startup balance computation failed", "error", err)
	}

	go func() {
		err := amqpClient.ConsumeRefresh(ctx, func(msg *amqp.RefreshMessage) error {
			return refresher.Handle(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption stopped", "error", err)
		}
	}()

	logger.Info("Worker ready, consuming refresh events", "queue", cfg.AMQPQueue)
	cli.WaitForShutdown(ctx, done)
}
