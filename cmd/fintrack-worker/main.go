package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/rates"
	"fintrack/internal/services"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store, err := backend.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()
	if !store.Type.Shared() {
		logger.Warn("Worker is running against a private memory store; snapshots will not reach the API process",
			"backend", cfg.DataBackend)
	}

	// Market rates: refresh at start-up when stale, then on schedule.
	scheduler := worker.NewScheduler(ctx, cfg.JobTimeout, logger)
	ratesJob := worker.NewRatesJob(rates.NewClient(cfg.MarketRatesURL, cfg.BaseCurrency, logger), store.Store, cfg.MarketRatesMaxAge, logger)
	if stale, err := ratesJob.Stale(ctx); err != nil {
		logger.Warn("Could not check market rates age", log.FieldError, err)
	} else if stale {
		if err := scheduler.RunNow(ratesJob); err != nil {
			logger.Warn("Start-up market rates refresh failed", log.FieldError, err)
		}
	}
	if err := scheduler.AddJob(cfg.MarketRatesSchedule, ratesJob); err != nil {
		logger.Error("Failed to schedule market rates refresh", log.FieldError, err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided, only scheduled jobs will run")
		<-ctx.Done()
		logger.Info("Worker shutdown complete")
		return
	}

	// Snapshots are computed fresh on every message; the worker keeps no cache.
	dashboard := services.NewDashboardService(store.Store, nil, services.DashboardOptions{
		BaseCurrency:    cfg.BaseCurrency,
		TrendMonths:     cfg.TrendWindowMonths,
		EmergencyMonths: cfg.EmergencyTargetMonths,
	}, logger)

	var exporter worker.SnapshotExporter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.NewClient(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = sheetsClient
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}
	snapshots := worker.NewSnapshotWorker(dashboard, store.Store, exporter, logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	if err := amqpClient.ConsumeLedgerChanged(ctx, snapshots.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		cancel()
	}
	logger.Info("Worker shutdown complete")
}
