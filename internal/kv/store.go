// Package kv provides the persistent key-value store the tracker keeps all
// of its state in. Values are JSON documents; keys follow the layout
// users / currentUser / transactions_<userId> / budget_<userId>.
package kv

import "context"

// Well-known keys and key prefixes.
const (
	KeyUsers       = "users"
	KeyCurrentUser = "currentUser"

	PrefixTransactions = "transactions_"
	PrefixBudget       = "budget_"
)

// Store is a string-keyed cell store. Get reports ok=false for absent keys;
// implementations never interpret the stored bytes.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Keys returns every stored key starting with prefix, in unspecified order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Close() error
}

// TransactionsKey returns the ledger key for a user.
func TransactionsKey(userID string) string { return PrefixTransactions + userID }

// BudgetKey returns the budget key for a user.
func BudgetKey(userID string) string { return PrefixBudget + userID }
