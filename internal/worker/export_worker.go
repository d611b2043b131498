// Package worker exports recorded transactions to an external sheet. It
// consumes activity events and reads full records back from the store, so a
// lost message never loses data and a full re-export can rebuild the sheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/activity"
	"tally/internal/core"
	"tally/internal/storage"
)

// RowWriter appends a single transaction row to the export target and
// returns a reference to where it landed.
type RowWriter interface {
	AppendTransaction(ctx context.Context, tx core.Transaction, userName string) (string, error)
}

type ExportWorker struct {
	users     *storage.UserRepository
	ledgers   *storage.LedgerRepository
	writer    RowWriter
	batchSize int
}

func NewExportWorker(users *storage.UserRepository, ledgers *storage.LedgerRepository, writer RowWriter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ExportWorker{
		users:     users,
		ledgers:   ledgers,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleActivityEvent processes a single transaction-recorded event. The
// event only carries identity; the full record is loaded from the store.
// A missing transaction is not an error: the user or the transaction may
// have been deleted between publish and consume.
func (w *ExportWorker) HandleActivityEvent(ctx context.Context, msg *activity.TransactionRecorded) error {
	slog.InfoContext(ctx, "Processing activity event",
		"transaction_id", msg.TransactionID,
		"user_id", msg.UserID)

	tx, found := w.lookupTransaction(ctx, msg.UserID, msg.TransactionID)
	if !found {
		slog.WarnContext(ctx, "Transaction no longer exists, dropping event",
			"transaction_id", msg.TransactionID,
			"user_id", msg.UserID)
		return nil
	}

	userName := w.lookupUserName(ctx, msg.UserID)

	ref, err := w.writer.AppendTransaction(ctx, tx, userName)
	if err != nil {
		return fmt.Errorf("append transaction %s: %w", msg.TransactionID, err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"amount_cents", tx.Amount.Cents,
		"sheet_ref", ref)

	return nil
}

// ExportAll rewrites every ledger entry to the export target, newest first.
// Useful to bootstrap a fresh sheet or recover from missed events.
func (w *ExportWorker) ExportAll(ctx context.Context) error {
	txs, err := w.ledgers.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if len(txs) == 0 {
		slog.InfoContext(ctx, "No transactions to export")
		return nil
	}

	slog.InfoContext(ctx, "Starting full export", "count", len(txs))

	names := make(map[string]string)
	exported := 0
	failed := 0
	for i, tx := range txs {
		name, ok := names[tx.UserID]
		if !ok {
			name = w.lookupUserName(ctx, tx.UserID)
			names[tx.UserID] = name
		}

		if _, err := w.writer.AppendTransaction(ctx, tx, name); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"transaction_id", tx.ID, "error", err)
			failed++
			continue
		}
		exported++

		if (i+1)%w.batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}

	slog.InfoContext(ctx, "Full export completed",
		"total", len(txs),
		"exported", exported,
		"errors", failed)

	if failed > 0 {
		return fmt.Errorf("full export finished with %d errors", failed)
	}
	return nil
}

func (w *ExportWorker) lookupTransaction(ctx context.Context, userID, transactionID string) (core.Transaction, bool) {
	for _, tx := range w.ledgers.Load(ctx, userID) {
		if tx.ID == transactionID {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

func (w *ExportWorker) lookupUserName(ctx context.Context, userID string) string {
	user, found, err := w.users.FindByID(ctx, userID)
	if err != nil || !found {
		return userID
	}
	return user.Name
}
