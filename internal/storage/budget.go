package storage

import (
	"context"
	"fmt"

	"tally/internal/core"
	"tally/internal/kv"
	"tally/internal/log"
)

// BudgetRepository owns the per-user "budget_<id>" cells. A cell holds at
// most one record, scoped to a single calendar month.
type BudgetRepository struct {
	store  kv.Store
	logger *log.Logger
}

func NewBudgetRepository(store kv.Store, logger *log.Logger) *BudgetRepository {
	return &BudgetRepository{store: store, logger: logger.WithComponent(log.ComponentBudget)}
}

// Load returns the user's budget for currentMonth. A record for any other
// month counts as absent and is erased as a side effect of the read.
func (r *BudgetRepository) Load(ctx context.Context, userID, currentMonth string) (core.Budget, bool) {
	var budget core.Budget
	if !loadJSON(ctx, r.store, r.logger, kv.BudgetKey(userID), &budget) {
		return core.Budget{}, false
	}
	if budget.Month != currentMonth {
		if err := r.store.Delete(ctx, kv.BudgetKey(userID)); err != nil {
			r.logger.WarnContext(ctx, "Failed to erase stale budget", log.FieldUserID, userID, log.FieldError, err)
		} else {
			r.logger.InfoContext(ctx, "Expired stale budget",
				log.FieldUserID, userID, log.FieldMonth, budget.Month)
		}
		return core.Budget{}, false
	}
	return budget, true
}

// Set writes the budget for currentMonth, replacing any existing record.
// A non-positive amount behaves as Reset.
func (r *BudgetRepository) Set(ctx context.Context, userID string, amount core.Money, currentMonth string) (core.Budget, error) {
	if amount.Cents <= 0 {
		return core.Budget{}, r.Reset(ctx, userID)
	}

	budget := core.Budget{UserID: userID, Amount: amount, Month: currentMonth}
	if err := budget.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := saveJSON(ctx, r.store, kv.BudgetKey(userID), budget); err != nil {
		return core.Budget{}, err
	}
	r.logger.InfoContext(ctx, "Budget set",
		log.FieldUserID, userID, log.FieldAmount, amount.Cents, log.FieldMonth, currentMonth)
	return budget, nil
}

// Reset erases the user's budget record unconditionally.
func (r *BudgetRepository) Reset(ctx context.Context, userID string) error {
	if err := r.store.Delete(ctx, kv.BudgetKey(userID)); err != nil {
		return fmt.Errorf("reset budget for %q: %w", userID, err)
	}
	return nil
}
