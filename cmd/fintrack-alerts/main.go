package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal("configuration", err)
	}
	if !cfg.AMQPEnabled() {
		cli.Fatal("configuration", errors.New("AMQP_URL is required for the alerts worker"))
	}
	logger, err := cli.SetupLogger(cfg, applog.ComponentAlerts, nil)
	if err != nil {
		cli.Fatal("logging", err)
	}
	logger.InfoContext(context.Background(), "Starting fintrack-alerts", applog.FieldOperation, applog.OpStartup)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal("backend", err)
	}
	// The worker consumes events itself, so the backend does not need a
	// publisher of its own.
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal("backend", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		res.Cleanup()
		cli.Fatal("amqp", err)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := client.Close(); err != nil {
			logger.WarnContext(context.Background(), "Failed to close AMQP client", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.WarnContext(context.Background(), "Cleanup failed", applog.FieldError, err)
		}
	})

	if res.Exporter == nil {
		logger.InfoContext(ctx, "Google Sheets disabled - covered months will not be exported")
	}
	alerts := worker.NewAlertWorker(res.Repository, res.Exporter, logger.WithComponent(applog.ComponentAlerts).Logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Consuming ledger events", applog.FieldOperation, applog.OpConsume, "queue", cfg.AMQPQueue)
		return client.ConsumeLedgerEvents(gctx, alerts.HandleLedgerEvent)
	})
	err = g.Wait()
	if ctx.Err() == nil {
		// Consumption stopped on its own; no signal will run the cleanup.
		logger.ErrorContext(ctx, "Ledger event consumption failed", applog.FieldError, err)
		client.Close()
		res.Cleanup()
		os.Exit(1)
	}
	<-done
	logger.InfoContext(context.Background(), "Alerts worker stopped", applog.FieldOperation, applog.OpShutdown)
}
