package http

import (
	"net/http"
	"time"

	"tally/internal/core"
)

type setBudgetRequest struct {
	Amount int64 `json:"amount"`
}

// handleGetBudget reports the caller's budget status for the current month.
// Evaluation advances the alert latches, so alerts that became due since the
// last write are delivered here as well.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	// Ledger timestamps are UTC, so the month must be too.
	month := core.MonthKey(time.Now().UTC())
	status := s.tracker.Evaluate(r.Context(), user.ID, s.ledgers.Load(r.Context(), user.ID), month)
	writeJSON(w, http.StatusOK, status)
}

// handleSetBudget replaces the budget for the current month. A zero or
// negative amount clears it.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	var req setBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	month := core.MonthKey(time.Now().UTC())
	if _, err := s.tracker.Set(r.Context(), user.ID, core.Money{Cents: req.Amount}, month); err != nil {
		writeServiceError(w, err)
		return
	}

	status := s.tracker.Evaluate(r.Context(), user.ID, s.ledgers.Load(r.Context(), user.ID), month)
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleResetBudget(w http.ResponseWriter, r *http.Request, user core.User) {
	if err := s.tracker.Reset(r.Context(), user.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
