package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"saldos/internal/amqp"
	"saldos/internal/core"
	"saldos/internal/sheets"
)

// Source is the read side of the ledger store the worker needs.
type Source interface {
	GetBalance(ctx context.Context, key core.BalanceKey) (core.BalanceEntry, error)
	ListBalancesPage(ctx context.Context, offset, limit int) ([]core.BalanceEntry, int64, error)
}

// SyncWorker mirrors balance entries from SQLite to the spreadsheet.
type SyncWorker struct {
	source    Source
	sheets    sheets.BalanceWriter
	batchSize int
}

func NewSyncWorker(source Source, writer sheets.BalanceWriter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 50
	}
	return &SyncWorker{source: source, sheets: writer, batchSize: batchSize}
}

// HandleBalanceRecorded processes one balance recorded message. An entry
// that no longer exists is acknowledged and skipped; any other failure is
// returned so the message is requeued.
func (w *SyncWorker) HandleBalanceRecorded(ctx context.Context, msg *amqp.BalanceRecordedMessage) error {
	key := msg.Key()
	slog.InfoContext(ctx, "Processing balance recorded message",
		"key", key.String(),
		"message_id", msg.MessageID)

	e, err := w.source.GetBalance(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Balance referenced by message does not exist, skipping", "key", key.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("get balance from storage: %w", err)
	}

	return w.mirror(ctx, e)
}

// StartupSync walks every stored entry, newest first, and mirrors the ones
// the sheet is missing. It recovers messages lost while the worker was down.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	synced, failed := 0, 0
	for offset := 0; ; offset += w.batchSize {
		items, total, err := w.source.ListBalancesPage(ctx, offset, w.batchSize)
		if err != nil {
			return fmt.Errorf("list balances for startup sync: %w", err)
		}
		for _, e := range items {
			if err := w.mirror(ctx, e); err != nil {
				slog.ErrorContext(ctx, "Failed to sync balance during startup",
					"key", e.Key.String(), "error", err)
				failed++
				continue
			}
			synced++
		}
		if int64(offset+w.batchSize) >= total || len(items) == 0 {
			break
		}
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) mirror(ctx context.Context, e core.BalanceEntry) error {
	ref, err := w.sheets.AppendBalance(ctx, e)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Synced balance",
		"key", e.Key.String(),
		"sheets_ref", ref,
		"amount", e.Amount.StringFixed(2))
	return nil
}
