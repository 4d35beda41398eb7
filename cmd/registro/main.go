package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"registro/internal/amqp"
	"registro/internal/cli"
	"registro/internal/config"
	apphttp "registro/internal/http"
	"registro/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	appLogger := cli.SetupLogger(cfg)
	logger := appLogger.Logger
	cli.ValidateConfig(logger, cfg)

	repo := cli.InitSQLite(logger, cfg.DBPath)
	logger.Info("SQLite repository ready", "path", cfg.DBPath)

	// AMQP is optional: without it transactions are only stored locally.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		client, err := amqp.NewClient(connectCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		cancel()
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without event publishing",
				"error", err, "exchange", cfg.AMQPExchange)
		} else {
			publisher = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	ledger := services.NewLedgerService(repo, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, appLogger)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := ledger.Close(); err != nil {
			logger.Error("Ledger close error", "error", err)
		}
	})

	logger.Info("Starting registro server", "port", cfg.Port, "amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		if cerr := ledger.Close(); cerr != nil {
			slog.Error("Ledger close error", "error", cerr)
		}
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
