package backend

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/csvfile"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createCSVBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVBackend(config Config) (*BackendResult, error) {
	f.logger.Info("Initialized CSV backend", "data_file", config.DataFile)
	return &BackendResult{Store: csvfile.New(config.DataFile)}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to reach SQLite database: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

// createMemoryBackend seeds an in-process table from DataFile when it exists. Nothing is written back.
func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	var seed []core.Transaction
	if config.DataFile != "" {
		rows, err := csvfile.New(config.DataFile).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		seed = rows
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.DataFile, applog.FieldRows, len(seed))

	return &BackendResult{Store: memory.NewSeeded(seed)}, nil
}

// CreatePublisher implements Factory.CreatePublisher. A broker that cannot be reached is not fatal.
func (f *DefaultFactory) CreatePublisher(config Config) events.Publisher {
	if config.AMQPURL == "" {
		f.logger.Debug("AMQP not configured, transaction events disabled")
		return events.Nop{}
	}

	client, err := events.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err.Error())
		return events.Nop{}
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
