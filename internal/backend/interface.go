package backend

import (
	"context"

	"saldos/internal/services"
	"saldos/internal/sheets"
	"saldos/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// LedgerResult is the wired ledger service for the web app.
type LedgerResult struct {
	Ledger  *services.LedgerService
	Cleanup CleanupFunc
}

// WorkerResult holds what the sync worker needs: the store it reads and the
// mirror it writes.
type WorkerResult struct {
	Store   *storage.SQLiteRepository
	Mirror  sheets.BalanceWriter
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateLedger(ctx context.Context, config Config) (*LedgerResult, error)
	CreateWorkerBackend(ctx context.Context, config Config) (*WorkerResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Mirror                   MirrorType
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// MirrorType selects where the worker mirrors balance entries.
type MirrorType string

const (
	GoogleMirror MirrorType = "google"
	MemoryMirror MirrorType = "memory"
)

// String implements fmt.Stringer
func (mt MirrorType) String() string {
	return string(mt)
}

// IsValid returns true if the mirror type is valid
func (mt MirrorType) IsValid() bool {
	switch mt {
	case GoogleMirror, MemoryMirror:
		return true
	default:
		return false
	}
}
