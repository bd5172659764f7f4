package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tutordesk/internal/cli"
	apphttp "tutordesk/internal/http"
	applog "tutordesk/internal/log"
	"tutordesk/internal/receipt"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	rt, err := cli.Open(startCtx, cfg, logger.Slog())
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	renderer := receipt.NewRenderer(receipt.WithFont(cfg.ReceiptFont))
	srv, err := apphttp.NewServer(":"+cfg.Port, rt.Ledger, rt.Formatter,
		apphttp.WithLogger(logger.WithComponent(applog.ComponentHTTP)),
		apphttp.WithRenderer(renderer))
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		_ = rt.Close()
		os.Exit(1)
	}

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := rt.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
	})

	logger.Info("Starting tutordesk server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", rt.Backend.Events)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		_ = rt.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
