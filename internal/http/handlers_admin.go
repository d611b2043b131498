package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"tally/internal/core"
)

func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request, _ core.User) {
	users, err := s.auth.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	redacted := make([]core.User, 0, len(users))
	for _, u := range users {
		redacted = append(redacted, u.Redacted())
	}
	writeJSON(w, http.StatusOK, redacted)
}

// handleAdminListTransactions is the cross-user view: every ledger
// concatenated, newest first.
func (s *Server) handleAdminListTransactions(w http.ResponseWriter, r *http.Request, _ core.User) {
	transactions, err := s.reports.AllTransactions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

// handleAdminDeleteUser removes an account with its ledger and budget.
// Admins may delete themselves as long as another admin remains.
func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request, _ core.User) {
	userID := mux.Vars(r)["id"]

	if err := s.auth.DeleteUser(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	s.invalidateUserViews(userID)
	w.WriteHeader(http.StatusNoContent)
}
