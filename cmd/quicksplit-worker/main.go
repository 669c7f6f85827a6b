package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"quicksplit/internal/amqp"
	"quicksplit/internal/cli"
	"quicksplit/internal/log"
	"quicksplit/internal/receipt/google"
	"quicksplit/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting quicksplit-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Storage cleanup error", log.FieldError, err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	visionClient, err := google.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Vision client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	scanWorker := worker.NewScanWorker(store.Store, visionClient, cfg.ScanBatchSize)

	// Drain receipts left pending while the worker was down.
	if err := scanWorker.StartupScanCheck(ctx); err != nil {
		logger.Error("Startup scan check failed", log.FieldError, err)
		// Don't exit - continue with normal operation
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := amqpClient.ConsumeReceiptScans(ctx, func(msg *amqp.ReceiptScanMessage) error {
			return scanWorker.HandleScanMessage(ctx, msg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Periodic sweep for receipts whose scan message was lost.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.ScanInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := scanWorker.ProcessPendingReceipts(ctx); err != nil {
					logger.Error("Periodic scan sweep failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
