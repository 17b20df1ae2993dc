package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/engine"
	"ledger/internal/log"
	"ledger/internal/services"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal("Configuration validation failed", err)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	if !cfg.HasSheets() {
		cli.Fatal("Schedule export is not configured", errors.New("GOOGLE_SPREADSHEET_ID is required"))
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal("Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(slog.Default()).CreateBackend(ctx, bcfg)
	if err != nil {
		cli.Fatal("Failed to initialize backend", err, "backend", cfg.DataBackend)
	}
	defer res.Close()

	sheetsClient, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleScheduleSheet)
	if err != nil {
		cli.Fatal("Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleScheduleSheet)

	eng := engine.New(cache.NewLRUCache[engine.Balance](cfg.CacheSize, cfg.CacheTTL))
	svc := services.NewLedgerService(res.Store, nil, eng)

	scheduleWorker := worker.NewScheduleWorker(svc, sheetsClient, worker.ScheduleWorkerConfig{
		RefreshInterval: cfg.RefreshInterval,
	})
	if err := scheduleWorker.Start(ctx); err != nil {
		cli.Fatal("Failed to start schedule worker", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HasAMQP() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal("Failed to initialize AMQP client", err)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeWithRetry(gctx, scheduleWorker.HandleLedgerChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided, relying on periodic refresh")
	}

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return scheduleWorker.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
