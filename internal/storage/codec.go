// Package storage implements the entity repositories over the key-value
// store. Every entity lives in a single cell; writes are whole-cell
// replacements and reads that hit missing or corrupt data degrade to
// "absent" instead of failing the caller.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"tally/internal/kv"
	"tally/internal/log"
)

// loadJSON decodes the cell at key into v. It returns false when the key is
// absent, the store errored, or the stored document does not parse; the two
// failure cases are logged and otherwise swallowed.
func loadJSON(ctx context.Context, store kv.Store, logger *log.Logger, key string, v any) bool {
	value, ok, err := store.Get(ctx, key)
	if err != nil {
		logger.WarnContext(ctx, "Storage read failed, treating as absent", log.FieldKey, key, log.FieldError, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(value, v); err != nil {
		logger.WarnContext(ctx, "Corrupt stored value, treating as absent", log.FieldKey, key, log.FieldError, err)
		return false
	}
	return true
}

func saveJSON(ctx context.Context, store kv.Store, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("persist %q: %w", key, err)
	}
	return nil
}
