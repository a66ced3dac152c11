package main

import (
	"os"

	"saldos/internal/backend"
	"saldos/internal/cli"
	"saldos/internal/config"
	apphttp "saldos/internal/http"
	applog "saldos/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", applog.ComponentApp), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger.Logger).CreateLedger(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Cleanup failed", applog.FieldError, err)
		}
	}()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:          ":" + cfg.Port,
		PageSize:      cfg.PageSize,
		SecretKey:     cfg.SecretKey,
		SecureCookies: cfg.IsProduction(),
	}, result.Ledger, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting saldos",
		"port", cfg.Port,
		"env", cfg.AppEnv,
		"page_size", cfg.PageSize)
	return srv.Run(ctx, cfg.ShutdownTimeout)
}
