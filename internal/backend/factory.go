// Package backend selects and opens the key-value store implementation
// named by the configuration.
package backend

import (
	"fmt"

	"tally/internal/config"
	"tally/internal/kv"
	"tally/internal/log"
)

type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	}
	return false
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{SQLite, Memory}
}

// Result carries the opened store and its cleanup function. Cleanup is
// never nil.
type Result struct {
	Store   kv.Store
	Cleanup func() error
}

// Open creates the store named by cfg.KVBackend. The sqlite backend runs
// its migrations before returning.
func Open(cfg *config.Config, logger *log.Logger) (*Result, error) {
	backendType := Type(cfg.KVBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid kv backend %q, valid types: %v", cfg.KVBackend, Types())
	}

	l := logger.WithComponent(log.ComponentBackend)

	switch backendType {
	case SQLite:
		store, err := kv.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		l.Info("Opened sqlite store", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: store, Cleanup: store.Close}, nil

	case Memory:
		store := kv.NewMemoryStore()
		l.Info("Opened in-memory store")
		return &Result{Store: store, Cleanup: store.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported kv backend: %s", backendType)
	}
}
