// Package report derives totals, time-bucketed series and cross-user views
// from transaction ledgers. The series functions are pure: the caller
// supplies "now" so charts are deterministic under test.
package report

import (
	"context"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

const (
	weeklyDays    = 7
	monthlyMonths = 6
)

type Totals struct {
	TotalIncome   core.Money `json:"totalIncome"`
	TotalExpenses core.Money `json:"totalExpenses"`
	Balance       core.Money `json:"balance"`
}

// Bucket is one interval of a chart series. Label is the day ("YYYY-MM-DD")
// or month ("YYYY-MM") the bucket covers.
type Bucket struct {
	Label    string     `json:"label"`
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
}

// ComputeTotals sums the ledger in a single pass.
func ComputeTotals(transactions []core.Transaction) Totals {
	var t Totals
	for _, tx := range transactions {
		if tx.Type == core.Income {
			t.TotalIncome.Cents += tx.Amount.Cents
		} else {
			t.TotalExpenses.Cents += tx.Amount.Cents
		}
	}
	t.Balance.Cents = t.TotalIncome.Cents - t.TotalExpenses.Cents
	return t
}

// WeeklySeries buckets the trailing 7 calendar days ending on now's day,
// chronological ascending, zero-filled.
func WeeklySeries(transactions []core.Transaction, now time.Time) []Bucket {
	buckets := make([]Bucket, 0, weeklyDays)
	index := make(map[string]int, weeklyDays)
	day := now.AddDate(0, 0, -(weeklyDays - 1))
	for i := 0; i < weeklyDays; i++ {
		label := core.DayKey(day)
		index[label] = len(buckets)
		buckets = append(buckets, Bucket{Label: label})
		day = day.AddDate(0, 0, 1)
	}
	fill(buckets, index, transactions, func(t time.Time) string { return core.DayKey(t) })
	return buckets
}

// MonthlySeries buckets the trailing 6 calendar months including the
// current one, chronological ascending, zero-filled.
func MonthlySeries(transactions []core.Transaction, now time.Time) []Bucket {
	buckets := make([]Bucket, 0, monthlyMonths)
	index := make(map[string]int, monthlyMonths)
	// Anchor at the first of the month so month arithmetic never slides.
	anchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := monthlyMonths - 1; i >= 0; i-- {
		label := core.MonthKey(anchor.AddDate(0, -i, 0))
		index[label] = len(buckets)
		buckets = append(buckets, Bucket{Label: label})
	}
	fill(buckets, index, transactions, func(t time.Time) string { return core.MonthKey(t) })
	return buckets
}

func fill(buckets []Bucket, index map[string]int, transactions []core.Transaction, key func(time.Time) string) {
	for _, tx := range transactions {
		i, ok := index[key(tx.Date)]
		if !ok {
			continue
		}
		if tx.Type == core.Income {
			buckets[i].Income.Cents += tx.Amount.Cents
		} else {
			buckets[i].Expenses.Cents += tx.Amount.Cents
		}
	}
}

// Engine binds the pure aggregations to the ledger repository.
type Engine struct {
	ledgers *storage.LedgerRepository
	now     func() time.Time
}

func NewEngine(ledgers *storage.LedgerRepository) *Engine {
	return &Engine{ledgers: ledgers, now: time.Now}
}

// WithClock fixes the engine's time source, for deterministic tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Summary(ctx context.Context, userID string) Totals {
	return ComputeTotals(e.ledgers.Load(ctx, userID))
}

func (e *Engine) Weekly(ctx context.Context, userID string) []Bucket {
	return WeeklySeries(e.ledgers.Load(ctx, userID), e.now())
}

func (e *Engine) Monthly(ctx context.Context, userID string) []Bucket {
	return MonthlySeries(e.ledgers.Load(ctx, userID), e.now())
}

// AllTransactions is the admin view: every user's ledger concatenated,
// newest first.
func (e *Engine) AllTransactions(ctx context.Context) ([]core.Transaction, error) {
	return e.ledgers.ListAll(ctx)
}
