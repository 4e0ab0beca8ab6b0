package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"montra/internal/amqp"
	"montra/internal/cli"
	"montra/internal/config"
	applog "montra/internal/log"
	"montra/internal/notify"
	"montra/internal/report"
	"montra/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting montra-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process; the worker will see no ledger data")
	}
	loc, _ := cfg.Location()

	store := cli.OpenStore(context.Background(), logger, cfg)
	defer store.Close()

	var sender notify.Sender
	if cfg.SMTPEnabled() {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		logger.Info("SMTP enabled", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
	} else {
		sender = notify.NewLogSender(logger)
		logger.Info("SMTP disabled - e-mails will only be logged")
	}

	engine := report.NewEngine(store, loc)
	scheduler := worker.NewScheduler(loc, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		scheduler.Stop()
	})

	summaries := worker.NewMonthlySummaryJob(engine, store, sender, logger)
	if err := scheduler.Add(ctx, "monthly_summary", cfg.MonthlyReportSchedule, worker.SummaryJob(summaries)); err != nil {
		logger.Error("Failed to schedule monthly summary", applog.FieldError, err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Monthly summary scheduled", "schedule", cfg.MonthlyReportSchedule, "time_zone", loc.String())

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		alerts := worker.NewAlertWorker(engine, store, sender, logger)
		g.Go(func() error {
			return client.Consume(gctx, alerts.HandleEvent)
		})
	} else {
		logger.Info("Skipping budget alerts - no AMQP_URL provided")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		scheduler.Stop()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
