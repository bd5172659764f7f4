package main

import (
	"context"
	"errors"
	"os"
	"time"

	"tutordesk/internal/amqp"
	"tutordesk/internal/cli"
	applog "tutordesk/internal/log"
	"tutordesk/internal/receipt"
	"tutordesk/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting receipt-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed", "error", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	rt, err := cli.Open(startCtx, cfg, logger.Slog())
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer rt.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	renderer := receipt.NewRenderer(receipt.WithFont(cfg.ReceiptFont))
	receipts, err := worker.NewReceiptWorker(rt.Ledger, renderer, rt.Formatter, cfg.ReceiptDir,
		logger.WithComponent(applog.ComponentReceipts).Slog())
	if err != nil {
		logger.Error("Failed to initialize receipt worker", "error", err, "dir", cfg.ReceiptDir)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Receipts missed while the worker was down are written before consuming.
	if n, err := receipts.ProcessBacklog(ctx); err != nil {
		logger.Error("Startup backlog failed", "error", err)
	} else {
		logger.Info("Startup backlog processed", "written", n)
	}

	go func() {
		err := amqpClient.ConsumeWithReconnect(ctx, receipts.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event consumption stopped", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.ReceiptBacklogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := receipts.ProcessBacklog(ctx); err != nil {
					logger.Error("Periodic backlog failed", "error", err)
				} else if n > 0 {
					logger.Info("Periodic backlog processed", "written", n)
				}
			}
		}
	}()

	logger.Info("Receipt worker running",
		"queue", cfg.AMQPQueue,
		"dir", cfg.ReceiptDir,
		"backlog_interval", cfg.ReceiptBacklogInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Receipt worker stopped")
}
