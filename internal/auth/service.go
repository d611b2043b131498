// Package auth implements identity management: the signup/login lifecycle,
// the single persisted session, profile updates and account deletion.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrLastAdmin          = errors.New("cannot delete the last admin account")
)

// UserUpdate carries the profile fields a user may change. Nil means
// "leave unchanged"; id and isAdmin are never touched through this path.
type UserUpdate struct {
	Name     *string
	Password *string
}

// Service coordinates the user directory, the session snapshot and the
// per-user data that account deletion has to sweep.
type Service struct {
	users    *storage.UserRepository
	sessions *storage.SessionRepository
	ledgers  *storage.LedgerRepository
	budgets  *storage.BudgetRepository
	logger   *log.Logger
	newID    func() string
}

func NewService(users *storage.UserRepository, sessions *storage.SessionRepository,
	ledgers *storage.LedgerRepository, budgets *storage.BudgetRepository, logger *log.Logger) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		ledgers:  ledgers,
		budgets:  budgets,
		logger:   logger.WithComponent(log.ComponentSession),
		newID:    uuid.NewString,
	}
}

// WithIDSource fixes the id generator, for deterministic tests.
func (s *Service) WithIDSource(newID func() string) *Service {
	s.newID = newID
	return s
}

// Signup registers a new non-admin user. It does not establish a session;
// the caller logs in separately.
func (s *Service) Signup(ctx context.Context, name, email, password string) (core.User, error) {
	user := core.User{
		ID:      s.newID(),
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		IsAdmin: false,
	}
	// Validate against the raw password before it is replaced by the hash.
	user.Password = password
	if err := user.Validate(); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hash)

	if err := s.users.Insert(ctx, user); err != nil {
		return core.User{}, err
	}
	s.logger.InfoContext(ctx, "User signed up", log.FieldUserID, user.ID, log.FieldEmail, user.Email)
	return user, nil
}

// Login verifies the credentials and persists the session snapshot.
// Email matching is exact and case-sensitive.
func (s *Service) Login(ctx context.Context, email, password string) (core.User, error) {
	user, ok, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return core.User{}, err
	}
	if !ok || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return core.User{}, ErrInvalidCredentials
	}
	if err := s.sessions.Put(ctx, user); err != nil {
		return core.User{}, err
	}
	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, user.ID)
	return user, nil
}

// Logout clears the session pointer. Logging out while logged out is a no-op.
func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

// CurrentUser resolves the session snapshot. A snapshot referencing a user
// that no longer exists reads as logged-out and is cleared on the spot.
func (s *Service) CurrentUser(ctx context.Context) (core.User, bool) {
	snapshot, ok := s.sessions.Get(ctx)
	if !ok {
		return core.User{}, false
	}
	if _, exists, err := s.users.FindByID(ctx, snapshot.ID); err != nil || !exists {
		if err := s.sessions.Clear(ctx); err != nil {
			s.logger.WarnContext(ctx, "Failed to clear stale session", log.FieldError, err)
		}
		return core.User{}, false
	}
	return snapshot, true
}

// UpdateUser merges the provided fields into the directory record and, when
// the edited user holds the session, refreshes the snapshot to match.
func (s *Service) UpdateUser(ctx context.Context, userID string, update UserUpdate) (core.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return core.User{}, err
	}

	index := -1
	for i, u := range users {
		if u.ID == userID {
			index = i
			break
		}
	}
	if index == -1 {
		return core.User{}, ErrUserNotFound
	}

	updated := users[index]
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return core.User{}, core.ErrEmptyName
		}
		updated.Name = name
	}
	if update.Password != nil {
		if *update.Password == "" {
			return core.User{}, core.ErrEmptyPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return core.User{}, fmt.Errorf("hash password: %w", err)
		}
		updated.Password = string(hash)
	}

	users[index] = updated
	if err := s.users.Save(ctx, users); err != nil {
		return core.User{}, err
	}

	if snapshot, ok := s.sessions.Get(ctx); ok && snapshot.ID == userID {
		if err := s.sessions.Put(ctx, updated); err != nil {
			return core.User{}, err
		}
	}

	s.logger.InfoContext(ctx, "User profile updated", log.FieldUserID, userID)
	return updated, nil
}

// DeleteUser removes the directory entry plus the user's ledger and budget
// cells. The last remaining admin cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return err
	}

	index := -1
	admins := 0
	for i, u := range users {
		if u.IsAdmin {
			admins++
		}
		if u.ID == userID {
			index = i
		}
	}
	if index == -1 {
		return ErrUserNotFound
	}
	if users[index].IsAdmin && admins == 1 {
		return ErrLastAdmin
	}

	remaining := append(users[:index:index], users[index+1:]...)
	if err := s.users.Save(ctx, remaining); err != nil {
		return err
	}
	if err := s.ledgers.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.budgets.Reset(ctx, userID); err != nil {
		return err
	}
	if snapshot, ok := s.sessions.Get(ctx); ok && snapshot.ID == userID {
		if err := s.sessions.Clear(ctx); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "User account deleted", log.FieldUserID, userID)
	return nil
}

// ListUsers exposes the directory for the admin view.
func (s *Service) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.users.List(ctx)
}
