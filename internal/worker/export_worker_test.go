package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tally/internal/activity"
	"tally/internal/core"
	"tally/internal/kv"
	"tally/internal/log"
	"tally/internal/storage"
)

type fakeWriter struct {
	rows []string
	fail bool
}

func (f *fakeWriter) AppendTransaction(_ context.Context, tx core.Transaction, userName string) (string, error) {
	if f.fail {
		return "", errors.New("sheet unavailable")
	}
	f.rows = append(f.rows, fmt.Sprintf("%s/%s/%d", userName, tx.Description, tx.Amount.Cents))
	return fmt.Sprintf("Ledger!A%d", len(f.rows)), nil
}

func newTestRepos(t *testing.T) (*storage.UserRepository, *storage.LedgerRepository) {
	t.Helper()
	store := kv.NewMemoryStore()
	logger := log.New(log.DefaultConfig())
	return storage.NewUserRepository(store, logger), storage.NewLedgerRepository(store, logger)
}

func TestHandleActivityEventExportsRecord(t *testing.T) {
	ctx := context.Background()
	users, ledgers := newTestRepos(t)

	if _, err := users.List(ctx); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	tx, err := ledgers.Append(ctx, storage.AdminID, core.NewExpense(core.Money{Cents: 1250}, "groceries", core.CategoryFood))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	writer := &fakeWriter{}
	w := NewExportWorker(users, ledgers, writer, 10)

	if err := w.HandleActivityEvent(ctx, activity.NewTransactionRecorded(tx.ID, storage.AdminID)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(writer.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(writer.rows))
	}
	want := storage.AdminName + "/groceries/1250"
	if writer.rows[0] != want {
		t.Fatalf("row = %q, want %q", writer.rows[0], want)
	}
}

func TestHandleActivityEventDropsMissingTransaction(t *testing.T) {
	ctx := context.Background()
	users, ledgers := newTestRepos(t)
	writer := &fakeWriter{}
	w := NewExportWorker(users, ledgers, writer, 10)

	err := w.HandleActivityEvent(ctx, activity.NewTransactionRecorded("gone", "nobody"))
	if err != nil {
		t.Fatalf("missing transaction should be dropped, got %v", err)
	}
	if len(writer.rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(writer.rows))
	}
}

func TestHandleActivityEventPropagatesWriterError(t *testing.T) {
	ctx := context.Background()
	users, ledgers := newTestRepos(t)

	tx, err := ledgers.Append(ctx, "u1", core.NewIncome(core.Money{Cents: 5000}, "salary"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	w := NewExportWorker(users, ledgers, &fakeWriter{fail: true}, 10)
	if err := w.HandleActivityEvent(ctx, activity.NewTransactionRecorded(tx.ID, "u1")); err == nil {
		t.Fatalf("expected writer error to propagate for requeue")
	}
}

func TestExportAllWritesEveryLedger(t *testing.T) {
	ctx := context.Background()
	users, ledgers := newTestRepos(t)

	for i := 0; i < 3; i++ {
		if _, err := ledgers.Append(ctx, "u1", core.NewIncome(core.Money{Cents: int64(100 * (i + 1))}, fmt.Sprintf("pay %d", i))); err != nil {
			t.Fatalf("append u1: %v", err)
		}
	}
	if _, err := ledgers.Append(ctx, "u2", core.NewExpense(core.Money{Cents: 400}, "bus ticket", core.CategoryTransport)); err != nil {
		t.Fatalf("append u2: %v", err)
	}

	writer := &fakeWriter{}
	w := NewExportWorker(users, ledgers, writer, 2)
	if err := w.ExportAll(ctx); err != nil {
		t.Fatalf("export all: %v", err)
	}
	if len(writer.rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(writer.rows))
	}
}
