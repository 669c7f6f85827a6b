package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"quicksplit/internal/amqp"
	"quicksplit/internal/cli"
	apphttp "quicksplit/internal/http"
	"quicksplit/internal/log"
	"quicksplit/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg)

	// The broker is optional for the API: receipts are saved first and the
	// worker sweep picks up anything that was never announced.
	var publisher services.ScanPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, receipt scans will rely on the worker sweep", log.FieldError, err)
	} else {
		publisher = amqpClient
		defer amqpClient.Close()
	}

	svc := services.NewBillService(store.Store, publisher)
	srv := apphttp.NewServer(":"+cfg.Port, svc)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := store.Cleanup(); err != nil {
			logger.Error("Storage cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting quicksplit server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
