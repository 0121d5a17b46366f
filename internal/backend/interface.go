// Package backend assembles the spending service from configuration: the
// record store, the optional AMQP publisher, catalogs and the quote generator.
package backend

import (
	"context"
	"time"

	"moneytracker/internal/services"
	"moneytracker/internal/sheets"
	"moneytracker/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// StoreResult is a record store with its mirror bookkeeping. Queue is nil
// for stores that cannot track mirrored rows.
type StoreResult struct {
	Store storage.Store
	Queue storage.MirrorQueue
	Type  Type
}

// ServiceResult contains the service and the function releasing its resources.
type ServiceResult struct {
	Service *services.SpendingService
	Store   StoreResult
	// AMQP reports whether saved days are published.
	AMQP    bool
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateStore(config Config) (StoreResult, error)
	CreateService(ctx context.Context, config Config) (*ServiceResult, error)
	CreateMirror(ctx context.Context, config Config) (sheets.RecordMirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	QuoteTimeout  time.Duration

	CatalogFile string
	Thresholds  thresholds

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Now overrides the service clock in tests.
	Now func() time.Time
}

// Type represents the type of record store
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
