// Package budget manages the per-user monthly budget record and the
// threshold alerting derived from it.
package budget

import (
	"context"
	"sync"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

// Status is one evaluation of a user's budget against their ledger.
type Status struct {
	Budget          *core.Budget `json:"budget,omitempty"`
	MonthlyExpenses core.Money   `json:"monthlyExpenses"`
	Ratio           float64      `json:"ratio"`
	Alerts          []Alert      `json:"alerts,omitempty"`
}

// Tracker wraps the budget repository and owns one alert machine per user,
// independent of any presentation lifecycle.
type Tracker struct {
	budgets *storage.BudgetRepository
	logger  *log.Logger

	mu       sync.Mutex
	machines map[string]*AlertMachine
}

func NewTracker(budgets *storage.BudgetRepository, logger *log.Logger) *Tracker {
	return &Tracker{
		budgets:  budgets,
		logger:   logger.WithComponent(log.ComponentBudget),
		machines: make(map[string]*AlertMachine),
	}
}

func (t *Tracker) Load(ctx context.Context, userID, currentMonth string) (core.Budget, bool) {
	return t.budgets.Load(ctx, userID, currentMonth)
}

func (t *Tracker) Set(ctx context.Context, userID string, amount core.Money, currentMonth string) (core.Budget, error) {
	if amount.Cents <= 0 {
		return core.Budget{}, t.Reset(ctx, userID)
	}
	return t.budgets.Set(ctx, userID, amount, currentMonth)
}

// Reset erases the budget record and discards the user's alert latches.
func (t *Tracker) Reset(ctx context.Context, userID string) error {
	if err := t.budgets.Reset(ctx, userID); err != nil {
		return err
	}
	t.mu.Lock()
	delete(t.machines, userID)
	t.mu.Unlock()
	return nil
}

// MonthlyExpenses sums expense amounts dated within month ("YYYY-MM").
func MonthlyExpenses(transactions []core.Transaction, month string) core.Money {
	var sum core.Money
	for _, tx := range transactions {
		if tx.Type == core.Expense && core.MonthKey(tx.Date) == month {
			sum.Cents += tx.Amount.Cents
		}
	}
	return sum
}

// Evaluate computes the user's budget status for currentMonth and advances
// the alert machine. Without a (positive) budget no alert is evaluated.
func (t *Tracker) Evaluate(ctx context.Context, userID string, transactions []core.Transaction, currentMonth string) Status {
	status := Status{MonthlyExpenses: MonthlyExpenses(transactions, currentMonth)}

	budget, ok := t.Load(ctx, userID, currentMonth)
	if !ok || budget.Amount.Cents <= 0 {
		return status
	}
	status.Budget = &budget
	status.Ratio = float64(status.MonthlyExpenses.Cents) / float64(budget.Amount.Cents)

	t.mu.Lock()
	machine, exists := t.machines[userID]
	if !exists {
		machine = NewAlertMachine()
		t.machines[userID] = machine
	}
	status.Alerts = machine.Observe(status.Ratio)
	t.mu.Unlock()

	for _, alert := range status.Alerts {
		t.logger.InfoContext(ctx, "Budget alert fired",
			log.FieldUserID, userID, "alert", string(alert), "ratio", status.Ratio)
	}
	return status
}
