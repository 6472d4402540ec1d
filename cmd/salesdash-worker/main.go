package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/anomaly"
	"salesdash/internal/cli"
	applog "salesdash/internal/log"
	"salesdash/internal/metrics"
	"salesdash/internal/reports"
	"salesdash/internal/services"
	gsource "salesdash/internal/sources/google"
	"salesdash/internal/worker"
)

func main() {
	// Load .env file for local development (ignore a missing file)
	envErr := cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	if envErr != nil {
		logger.Warn("Failed to load .env file", "error", envErr)
	}
	logger.Info("Starting salesdash-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	// Initialize SQLite repository to read pending sales
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	collectors := metrics.New()

	// Google Sheets mirror is optional
	var sheets worker.SheetAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsource.Open(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		sheets = client
		logger.Info("Google Sheets client initialized", "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// Report refresh is optional
	var store reports.Store
	if cfg.RedisURL != "" {
		redisStore, err := reports.NewRedisStore(cfg.RedisURL, cfg.ReportTTL)
		if err != nil {
			logger.Error("Failed to initialize report store", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		logger.Info("Report store initialized", "ttl", cfg.ReportTTL)
	} else {
		logger.Info("Report refresh disabled - no REDIS_URL provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	anomalies := services.NewAnomalyService(repo,
		anomaly.NewDetector(cfg.AnomalyThreshold, cfg.ZScorePrecision),
		services.WithMetrics(collectors),
		services.WithMaxSeriesLength(cfg.MaxSeriesLength),
		services.WithSourceName("sqlite ledger"),
	)
	syncWorker := worker.NewSyncWorker(repo, sheets, anomalies, store, collectors, worker.Config{
		BatchSize:    cfg.SyncBatchSize,
		PollInterval: cfg.SyncInterval,
	})

	// Sync and report counters are scraped from a small side listener
	var metricsServer *http.Server
	if cfg.WorkerMetricsPort > 0 {
		metricsServer = collectors.NewServer(":" + strconv.Itoa(cfg.WorkerMetricsPort))
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics listener failed", "error", err)
			}
		}()
		logger.Info("Worker metrics listening", "addr", metricsServer.Addr)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := syncWorker.Stop(ctx); err != nil {
			logger.Warn("Worker stop error", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("Metrics listener shutdown error", "error", err)
			}
		}
	})

	// Process anything left pending while the worker was down
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	if err := syncWorker.Start(ctx); err != nil {
		logger.Error("Failed to start pending sweep", "error", err)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeMessages(ctx, syncWorker.HandleSyncMessage, syncWorker.HandleDeleteMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
