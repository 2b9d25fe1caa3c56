package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/rates"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	store, err := backend.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	dashCache := cache.NewLRUCache[*services.Dashboard](cfg.DashboardCacheSize, cfg.DashboardCacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(dashCache)
	cacheManager.Start(ctx, time.Minute)
	defer cacheManager.Stop()

	dashboard := services.NewDashboardService(store.Store, dashCache, services.DashboardOptions{
		BaseCurrency:    cfg.BaseCurrency,
		TrendMonths:     cfg.TrendWindowMonths,
		EmergencyMonths: cfg.EmergencyTargetMonths,
	}, logger)

	// Left as a nil interface when AMQP is off so the ledger skips publishing.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without snapshot events", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	ledgerService := services.NewLedgerService(store.Store, publisher, dashboard, cfg.BaseCurrency, logger)

	// A memory store is private to this process, so market rates are refreshed here
	// instead of by fintrack-worker.
	if !store.Type.Shared() {
		scheduler := worker.NewScheduler(ctx, cfg.JobTimeout, logger)
		job := worker.NewRatesJob(rates.NewClient(cfg.MarketRatesURL, cfg.BaseCurrency, logger), store.Store, cfg.MarketRatesMaxAge, logger).
			OnRefresh(dashboard.InvalidateAll)
		if err := scheduler.AddJob(cfg.MarketRatesSchedule, job); err != nil {
			logger.Error("Failed to schedule market rates refresh", log.FieldError, err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
		go func() {
			if err := scheduler.RunNow(job); err != nil {
				logger.Warn("Initial market rates refresh failed", log.FieldError, err)
			}
		}()
	}

	srv := apphttp.NewServer(":"+cfg.Port, dashboard, ledgerService, apphttp.Options{
		BaseCurrency:       cfg.BaseCurrency,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowedOrigins:     cfg.AllowedOrigins,
		Ready:              store.Ready,
		Logger:             logger,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend, "base_currency", cfg.BaseCurrency)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			cancel()
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
