package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tutordesk/internal/adapters"
	"tutordesk/internal/amqp"
	"tutordesk/internal/store"
	"tutordesk/internal/store/google"
	"tutordesk/internal/store/memory"
	"tutordesk/internal/store/postgres"
	"tutordesk/internal/store/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured gateway and, when AMQP is configured,
// wraps it so payment writes publish events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		gw      store.Gateway
		cleanup CleanupFunc
		err     error
	)
	switch config.Type {
	case MemoryBackend:
		gw = f.createMemoryBackend(config)
	case SQLiteBackend:
		gw, cleanup, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		gw, cleanup, err = f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		gw, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Gateway: gw, Cleanup: cleanup}
	if config.AMQPURL == "" {
		return result, nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without payment events", "error", err)
		return result, nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Gateway = adapters.NewEventedGateway(gw, client, f.logger)
	result.Events = true
	result.Cleanup = chain(cleanup, client.Close)
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) store.Gateway {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	s := memory.NewFromFiles(dataDir, config.Levels)
	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return s
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (store.Gateway, CleanupFunc, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath, config.Levels)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, repo.Close, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (store.Gateway, CleanupFunc, error) {
	conn, err := postgres.NewConnectionFromURL(ctx, config.DatabaseURL, config.DBMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := conn.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, nil, err
	}
	f.logger.Info("Initialized Postgres backend", "max_conns", config.DBMaxConns)
	return postgres.NewRepository(conn, config.Levels), func() error {
		conn.Close()
		return nil
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (store.Gateway, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		StudentsSheet:   config.GoogleStudentsSheet,
		PaymentsSheet:   config.GooglePaymentsSheet,
		LevelsSheet:     config.GoogleLevelsSheet,
		CredentialsJSON: config.GoogleCredsJSON,
		CredentialsFile: config.GoogleCredsFile,
		Levels:          config.Levels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)
	return cli, nil
}

func chain(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(fns) - 1; i >= 0; i-- {
			if fns[i] == nil {
				continue
			}
			if err := fns[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
