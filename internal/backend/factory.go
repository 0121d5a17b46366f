package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneytracker/internal/amqp"
	"moneytracker/internal/catalog"
	"moneytracker/internal/quote"
	"moneytracker/internal/services"
	"moneytracker/internal/sheets"
	gsheet "moneytracker/internal/sheets/google"
	"moneytracker/internal/storage"
	"moneytracker/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateStore opens the configured record store.
func (f *DefaultFactory) CreateStore(config Config) (StoreResult, error) {
	if err := config.Validate(); err != nil {
		return StoreResult{}, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return StoreResult{}, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return StoreResult{Store: repo, Queue: repo, Type: SQLiteBackend}, nil
	case MemoryBackend:
		store := memory.New()
		f.logger.Warn("Using in-memory store, records are lost on restart")
		return StoreResult{Store: store, Queue: store, Type: MemoryBackend}, nil
	default:
		return StoreResult{}, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateService builds the spending service. A broker that cannot be reached
// disables publishing instead of failing startup.
func (f *DefaultFactory) CreateService(ctx context.Context, config Config) (*ServiceResult, error) {
	store, err := f.CreateStore(config)
	if err != nil {
		return nil, err
	}

	catalogs, err := catalog.Load(config.CatalogFile)
	if err != nil {
		_ = store.Store.Close()
		return nil, fmt.Errorf("load catalogs: %w", err)
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

	svc, err := services.NewSpendingService(store.Store, publisher, services.Options{
		Thresholds: config.Thresholds,
		Catalogs:   catalogs,
		Quotes: quote.New(quote.Config{
			APIKey:  config.OpenAIAPIKey,
			Model:   config.OpenAIModel,
			BaseURL: config.OpenAIBaseURL,
			Timeout: config.QuoteTimeout,
		}),
		Now: config.Now,
	})
	if err != nil {
		var errs []error
		errs = append(errs, err, store.Store.Close())
		if publisher != nil {
			errs = append(errs, publisher.Close())
		}
		return nil, errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Initialized spending service",
		"backend", config.Type.String(),
		"amqp_enabled", publisher != nil,
		"catalog_file", config.CatalogFile)

	return &ServiceResult{
		Service: svc,
		Store:   store,
		AMQP:    publisher != nil,
		Cleanup: svc.Close,
	}, nil
}

// CreateMirror connects to the Google spreadsheet that mirrors saved days.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.RecordMirror, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "sheet_base", config.GoogleSheetName)
	return cli, nil
}
