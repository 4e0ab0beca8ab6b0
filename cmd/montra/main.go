package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"montra/internal/amqp"
	"montra/internal/cache"
	"montra/internal/cli"
	"montra/internal/config"
	apphttp "montra/internal/http"
	applog "montra/internal/log"
	"montra/internal/middleware/identity"
	"montra/internal/middleware/ratelimit"
	"montra/internal/report"
	"montra/internal/services"
	"montra/internal/sheets"
	gsheet "montra/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	loc, _ := cfg.Location()

	store := cli.OpenStore(context.Background(), logger, cfg)
	defer store.Close()

	cacheManager := cache.NewManager(logger.Logger)
	reports := report.NewCached(report.NewEngine(store, loc), cfg.ReportCacheSize, cfg.ReportCacheTTL, logger.Logger)
	reports.Register(cacheManager)
	cacheManager.StartCleanup(time.Minute)

	opts := services.Options{Reports: reports, Logger: logger, Location: loc}
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events disabled", applog.FieldError, err)
		} else {
			opts.Events = events
			logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	ledger := services.NewLedgerService(store, opts)

	seeded, err := ledger.SeedSystemCategories(context.Background())
	if err != nil {
		logger.Error("Failed to seed system categories", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("System categories ready", "created", seeded.Created, "updated", seeded.Updated)

	var exporter sheets.RowExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), sheetsConfig(cfg), logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:    ledger,
		Reports:   reports,
		Sheets:    exporter,
		SheetName: cfg.GoogleSheetName,
		Identity: identity.NewResolver(identity.Config{
			JWTSecret: []byte(cfg.AuthJWTSecret),
			Header:    cfg.AuthUserHeader,
			Issuer:    cfg.AuthJWTIssuer,
		}),
		Logger: logger,
		RateLimit: ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		},
		TrustedProxies: cfg.TrustedProxies,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldOperation, applog.OpShutdown, applog.FieldError, err)
		}
		cacheManager.Stop()
		if events != nil {
			if err := events.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting montra server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"time_zone", loc.String(),
		"jwt", len(cfg.AuthJWTSecret) > 0)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func sheetsConfig(cfg *config.Config) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	}
}
