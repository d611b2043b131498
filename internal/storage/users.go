package storage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"tally/internal/core"
	"tally/internal/kv"
	"tally/internal/log"
)

// Seeded admin account, created the first time the directory is read.
const (
	AdminID       = "admin"
	AdminName     = "Admin User"
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin"
)

var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository owns the global "users" cell.
type UserRepository struct {
	store  kv.Store
	logger *log.Logger
}

func NewUserRepository(store kv.Store, logger *log.Logger) *UserRepository {
	return &UserRepository{store: store, logger: logger.WithComponent(log.ComponentStorage)}
}

// List returns every registered user. An empty directory is seeded with the
// single admin account before returning, so repeated calls are idempotent.
func (r *UserRepository) List(ctx context.Context) ([]core.User, error) {
	var users []core.User
	if loadJSON(ctx, r.store, r.logger, kv.KeyUsers, &users) && len(users) > 0 {
		return users, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	admin := core.User{
		ID:       AdminID,
		Name:     AdminName,
		Email:    AdminEmail,
		Password: string(hash),
		IsAdmin:  true,
	}
	users = []core.User{admin}
	if err := r.Save(ctx, users); err != nil {
		return nil, fmt.Errorf("seed admin user: %w", err)
	}
	r.logger.InfoContext(ctx, "Seeded user directory with admin account", log.FieldUserID, AdminID)
	return users, nil
}

// Save overwrites the full user set.
func (r *UserRepository) Save(ctx context.Context, users []core.User) error {
	return saveJSON(ctx, r.store, kv.KeyUsers, users)
}

// Insert appends a new user after checking email uniqueness at the
// directory boundary.
func (r *UserRepository) Insert(ctx context.Context, user core.User) error {
	users, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, existing := range users {
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	return r.Save(ctx, append(users, user))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (core.User, bool, error) {
	users, err := r.List(ctx)
	if err != nil {
		return core.User{}, false, err
	}
	for _, u := range users {
		if u.Email == email {
			return u, true, nil
		}
	}
	return core.User{}, false, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (core.User, bool, error) {
	users, err := r.List(ctx)
	if err != nil {
		return core.User{}, false, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, true, nil
		}
	}
	return core.User{}, false, nil
}
