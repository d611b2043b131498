package storage

import (
	"context"

	"tally/internal/core"
	"tally/internal/kv"
	"tally/internal/log"
)

// SessionRepository owns the "currentUser" cell: a snapshot of the signed-in
// user, at most one per store.
type SessionRepository struct {
	store  kv.Store
	logger *log.Logger
}

func NewSessionRepository(store kv.Store, logger *log.Logger) *SessionRepository {
	return &SessionRepository{store: store, logger: logger.WithComponent(log.ComponentSession)}
}

// Get returns the stored session snapshot, if any. Storage trouble reads as
// "logged out".
func (r *SessionRepository) Get(ctx context.Context) (core.User, bool) {
	var user core.User
	if !loadJSON(ctx, r.store, r.logger, kv.KeyCurrentUser, &user) {
		return core.User{}, false
	}
	return user, true
}

// Put persists the snapshot of the signed-in user.
func (r *SessionRepository) Put(ctx context.Context, user core.User) error {
	return saveJSON(ctx, r.store, kv.KeyCurrentUser, user)
}

// Clear removes the session pointer.
func (r *SessionRepository) Clear(ctx context.Context) error {
	return r.store.Delete(ctx, kv.KeyCurrentUser)
}
