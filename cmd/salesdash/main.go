package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"salesdash/internal/anomaly"
	"salesdash/internal/backend"
	"salesdash/internal/cache"
	"salesdash/internal/cli"
	"salesdash/internal/core"
	apphttp "salesdash/internal/http"
	applog "salesdash/internal/log"
	"salesdash/internal/metrics"
	"salesdash/internal/reports"
	"salesdash/internal/services"
)

func main() {
	// Load .env file for local development (ignore a missing file)
	envErr := cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	if envErr != nil {
		logger.Warn("Failed to load .env file", "error", envErr)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	collectors := metrics.New()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	ledger, err := backend.NewFactory(logger.Logger, collectors).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	// Series cache, swept in the background.
	seriesCache := cache.NewLRUCache[[]core.SalesObservation](256, services.DefaultSeriesCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(seriesCache)
	cacheManager.StartCleanup(5 * time.Minute)

	anomalies := services.NewAnomalyService(ledger.Backend,
		anomaly.NewDetector(cfg.AnomalyThreshold, cfg.ZScorePrecision),
		services.WithSeriesCache(seriesCache),
		services.WithMetrics(collectors),
		services.WithMaxSeriesLength(cfg.MaxSeriesLength),
		services.WithSourceName(ledger.Source),
	)

	deps := apphttp.Deps{
		Backend:         ledger.Backend,
		Source:          ledger.Source,
		Anomalies:       anomalies,
		Summaries:       services.NewSummaryService(services.DefaultSummaryLength),
		Metrics:         collectors,
		Logger:          logger,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		WritesPerMinute: cfg.RateLimitPerMinute,
	}

	// Reports are optional; without Redis /anomalies/latest answers 503.
	var reportStore *reports.RedisStore
	if cfg.RedisURL != "" {
		reportStore, err = reports.NewRedisStore(cfg.RedisURL, cfg.ReportTTL)
		if err != nil {
			logger.Warn("Failed to initialize report store, continuing without reports", "error", err)
		} else {
			deps.Reports = reportStore
			logger.Info("Report store initialized")
		}
	}

	srv := apphttp.NewServer(cfg.Addr(), deps)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if reportStore != nil {
			if err := reportStore.Close(); err != nil {
				logger.Warn("Failed to close report store", "error", err)
			}
		}
		if err := ledger.Close(); err != nil {
			logger.Warn("Failed to close backend", "error", err)
		}
	})

	logger.Info("Starting salesdash server",
		"addr", cfg.Addr(),
		applog.FieldBackend, cfg.DataBackend,
		applog.FieldThreshold, cfg.AnomalyThreshold)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "addr", cfg.Addr())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
