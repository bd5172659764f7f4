// Package cli holds the start-up steps shared by cmd/tutordesk,
// cmd/receipt-worker and cmd/tutorctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tutordesk/internal/backend"
	"tutordesk/internal/cache"
	"tutordesk/internal/config"
	"tutordesk/internal/format"
	applog "tutordesk/internal/log"
	"tutordesk/internal/services"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.JSON = os.Getenv("LOG_FORMAT") == "json"
	cfg.Component = component
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and exits the process when it
// does not validate.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Runtime bundles what every entry point builds from configuration.
type Runtime struct {
	Backend   *backend.BackendResult
	Ledger    *services.Ledger
	Formatter *format.Formatter
	caches    *cache.Manager
}

// Open connects the configured backend and wires the ledger on top of it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	formatter, err := format.New(cfg.Locale, cfg.CurrencyCode)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	levels := cache.NewLRUCache[[]string](4, cfg.LevelsCacheTTL)
	caches := cache.NewManager()
	caches.Register(levels)
	caches.StartCleanup(time.Minute)

	ledger := services.NewLedger(res.Gateway,
		services.WithLogger(logger),
		services.WithLevelCache(levels))

	return &Runtime{
		Backend:   res,
		Ledger:    ledger,
		Formatter: formatter,
		caches:    caches,
	}, nil
}

// Close stops cache cleanup and releases the backend.
func (r *Runtime) Close() error {
	r.caches.Stop()
	return r.Backend.Close()
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM, after
// cleanup has run, and a channel closed once shutdown has finished.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
