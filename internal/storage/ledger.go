package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	"tally/internal/kv"
	"tally/internal/log"
)

// How many per-user ledgers the admin scan loads at once.
const listAllConcurrency = 8

// LedgerRepository owns the per-user "transactions_<id>" cells. Each cell is
// the user's full transaction history, newest-first.
type LedgerRepository struct {
	store  kv.Store
	logger *log.Logger

	now   func() time.Time
	newID func() string
}

func NewLedgerRepository(store kv.Store, logger *log.Logger) *LedgerRepository {
	return &LedgerRepository{
		store:  store,
		logger: logger.WithComponent(log.ComponentLedger),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock fixes the timestamp and id sources, for deterministic tests.
func (r *LedgerRepository) WithClock(now func() time.Time, newID func() string) *LedgerRepository {
	r.now = now
	r.newID = newID
	return r
}

// Load returns the user's stored sequence, newest-first, or an empty
// sequence when nothing (valid) is stored.
func (r *LedgerRepository) Load(ctx context.Context, userID string) []core.Transaction {
	var transactions []core.Transaction
	if !loadJSON(ctx, r.store, r.logger, kv.TransactionsKey(userID), &transactions) {
		return nil
	}
	return transactions
}

// Append validates the draft, stamps identity and time, prepends it to the
// user's sequence and persists the whole cell back.
func (r *LedgerRepository) Append(ctx context.Context, userID string, draft core.Draft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}

	transaction := core.Transaction{
		ID:          r.newID(),
		UserID:      userID,
		Type:        draft.Type(),
		Amount:      draft.Amount(),
		Description: draft.Description(),
		Category:    draft.Category(),
		Date:        r.now().UTC(),
	}

	sequence := append([]core.Transaction{transaction}, r.Load(ctx, userID)...)
	if err := saveJSON(ctx, r.store, kv.TransactionsKey(userID), sequence); err != nil {
		return core.Transaction{}, err
	}

	r.logger.InfoContext(ctx, "Transaction recorded",
		log.FieldUserID, userID,
		"transaction_id", transaction.ID,
		"type", transaction.Type,
		log.FieldAmount, transaction.Amount.Cents)
	return transaction, nil
}

// DeleteAllForUser removes the user's entire ledger cell.
func (r *LedgerRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, kv.TransactionsKey(userID)); err != nil {
		return fmt.Errorf("delete ledger for %q: %w", userID, err)
	}
	return nil
}

// ListAll concatenates every user's ledger, sorted descending by date.
// Per-user cells load concurrently; cost is linear in total transactions.
func (r *LedgerRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	keys, err := r.store.Keys(ctx, kv.PrefixTransactions)
	if err != nil {
		return nil, fmt.Errorf("list ledger keys: %w", err)
	}

	var (
		mu  sync.Mutex
		all []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listAllConcurrency)
	for _, key := range keys {
		userID := strings.TrimPrefix(key, kv.PrefixTransactions)
		g.Go(func() error {
			transactions := r.Load(gctx, userID)
			mu.Lock()
			all = append(all, transactions...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.After(all[j].Date)
	})
	return all, nil
}
