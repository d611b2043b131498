// Package http exposes the tracker as a JSON API. Handlers stay thin:
// decoding, auth guards and status mapping live here, everything else is
// delegated to the auth service, the budget tracker and the report engine.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"tally/internal/auth"
	"tally/internal/budget"
	"tally/internal/cache"
	"tally/internal/log"
	"tally/internal/report"
	"tally/internal/storage"
)

// ActivityPublisher emits a transaction-recorded event for the export
// pipeline. A nil publisher disables the pipeline.
type ActivityPublisher interface {
	PublishTransactionRecorded(ctx context.Context, transactionID, userID string) error
}

// Dependencies bundles everything the server routes to.
type Dependencies struct {
	Auth      *auth.Service
	Tracker   *budget.Tracker
	Reports   *report.Engine
	Ledgers   *storage.LedgerRepository
	Publisher ActivityPublisher
	Logger    *log.Logger

	// RateLimitPerMinute caps mutating requests per client IP.
	// Zero falls back to 60.
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	auth      *auth.Service
	tracker   *budget.Tracker
	reports   *report.Engine
	ledgers   *storage.LedgerRepository
	publisher ActivityPublisher
	logger    *log.Logger

	rateLimiter *rateLimiter

	// Derived dashboard views, keyed "<userId>:<view>".
	summaryCache *cache.ViewCache[report.Totals]
	seriesCache  *cache.ViewCache[[]report.Bucket]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		auth:             deps.Auth,
		tracker:          deps.Tracker,
		reports:          deps.Reports,
		ledgers:          deps.Ledgers,
		publisher:        deps.Publisher,
		logger:           deps.Logger.WithComponent(log.ComponentHTTP),
		rateLimiter:      newRateLimiter(deps.RateLimitPerMinute),
		summaryCache:     cache.New[report.Totals](100, 5*time.Minute),
		seriesCache:      cache.New[[]report.Bucket](200, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.withCommon)

	api.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/me", s.requireUser(s.handleMe)).Methods(http.MethodGet)
	api.HandleFunc("/profile", s.requireUser(s.handleUpdateProfile)).Methods(http.MethodPut)

	api.HandleFunc("/transactions", s.requireUser(s.handleListTransactions)).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.requireUser(s.handleCreateTransaction)).Methods(http.MethodPost)

	api.HandleFunc("/budget", s.requireUser(s.handleGetBudget)).Methods(http.MethodGet)
	api.HandleFunc("/budget", s.requireUser(s.handleSetBudget)).Methods(http.MethodPut)
	api.HandleFunc("/budget", s.requireUser(s.handleResetBudget)).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard/summary", s.requireUser(s.handleDashboardSummary)).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/weekly", s.requireUser(s.handleDashboardWeekly)).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/monthly", s.requireUser(s.handleDashboardMonthly)).Methods(http.MethodGet)

	api.HandleFunc("/admin/users", s.requireAdmin(s.handleAdminListUsers)).Methods(http.MethodGet)
	api.HandleFunc("/admin/users/{id}", s.requireAdmin(s.handleAdminDeleteUser)).Methods(http.MethodDelete)
	api.HandleFunc("/admin/transactions", s.requireAdmin(s.handleAdminListTransactions)).Methods(http.MethodGet)

	s.Handler = r

	go s.startCacheCleanup()

	return s
}

// invalidateUserViews drops a user's cached dashboard views after a write.
func (s *Server) invalidateUserViews(userID string) {
	s.summaryCache.InvalidatePrefix(userID + ":")
	s.seriesCache.InvalidatePrefix(userID + ":")
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := s.summaryCache.CleanExpired() + s.seriesCache.CleanExpired()
			if cleaned > 0 {
				s.logger.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
