package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"saldos/internal/amqp"
	"saldos/internal/backend"
	"saldos/internal/cli"
	"saldos/internal/config"
	applog "saldos/internal/log"
	"saldos/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", applog.ComponentWorker), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.Logger).CreateWorkerBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Cleanup failed", applog.FieldError, err)
		}
	}()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	syncWorker := worker.NewSyncWorker(result.Store, result.Mirror, cfg.SyncBatchSize)

	if cfg.SyncOnStartup {
		logger.Info("Performing startup sync", applog.FieldOperation, applog.OpStartup)
		if err := syncWorker.StartupSync(ctx); err != nil {
			// redelivery and the next startup sync cover what was missed
			logger.Error("Startup sync failed", applog.FieldError, err)
		}
	}

	logger.Info("Consuming balance notifications",
		"queue", cfg.AMQPQueue,
		"mirror", cfg.MirrorBackend)
	err = client.ConsumeBalanceRecorded(ctx, syncWorker.HandleBalanceRecorded)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
