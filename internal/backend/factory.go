package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"saldos/internal/amqp"
	"saldos/internal/services"
	gsheet "saldos/internal/sheets/google"
	"saldos/internal/sheets/memory"
	"saldos/internal/storage"
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

// CreateLedger opens the SQLite store and, when configured, the AMQP
// publisher. A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateLedger(ctx context.Context, config Config) (*LedgerResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	ledger := services.NewLedgerService(repo, publisher)

	f.logger.InfoContext(ctx, "Initialized ledger",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &LedgerResult{Ledger: ledger, Cleanup: ledger.Close}, nil
}

// CreateWorkerBackend opens the SQLite store and the configured mirror.
func (f *DefaultFactory) CreateWorkerBackend(ctx context.Context, config Config) (*WorkerResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	var result *WorkerResult
	switch config.Mirror {
	case GoogleMirror:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to initialize Google Sheets client: %w", err), repo.Close())
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "sheet", config.GoogleSheetName)
		result = &WorkerResult{Store: repo, Mirror: cli}
	case MemoryMirror:
		f.logger.InfoContext(ctx, "Initialized memory mirror")
		result = &WorkerResult{Store: repo, Mirror: memory.New()}
	default:
		repo.Close()
		return nil, fmt.Errorf("unsupported mirror backend: %s", config.Mirror)
	}

	result.Cleanup = repo.Close
	return result, nil
}
