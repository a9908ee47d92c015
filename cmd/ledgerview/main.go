package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"ledgerview/internal/amqp"
	"ledgerview/internal/cli"
	"ledgerview/internal/directory"
	"ledgerview/internal/export/gsheet"
	apphttp "ledgerview/internal/http"
	"ledgerview/internal/log"
	"ledgerview/internal/report"
	"ledgerview/internal/restapi"
	"ledgerview/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting ledgerview")

	cfg := cli.LoadAndValidateConfig(logger)

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

	// AMQP is optional; without it, refresh requests only drop local caches.
	var publisher apphttp.RefreshPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	// Sheet export is optional; without it the endpoint reports 503.
	var sheets apphttp.SummaryAppender
	if os.Getenv("GOOGLE_SPREADSHEET_ID") != "" {
		sheetClient, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Sheets client", "error", err)
		} else {
			sheets = sheetClient
			logger.Info("Sheets exporter initialized")
		}
	} else {
		logger.Info("Sheet export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, engine, dir, balances, publisher, sheets, cfg.PageSize)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Server listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
}
