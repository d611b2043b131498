package http

import (
	"net/http"
	"time"

	"tally/internal/budget"
	"tally/internal/core"
	"tally/internal/log"
)

type createTransactionRequest struct {
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

type createTransactionResponse struct {
	Transaction core.Transaction `json:"transaction"`
	Budget      budget.Status    `json:"budget"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, user core.User) {
	transactions := s.ledgers.Load(r.Context(), user.ID)
	if transactions == nil {
		transactions = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

// handleCreateTransaction appends a ledger entry, re-evaluates the budget
// and reports any alerts that fired on this write.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, user core.User) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var draft core.Draft
	switch core.TransactionType(req.Type) {
	case core.Income:
		draft = core.NewIncome(core.Money{Cents: req.Amount}, req.Description)
	case core.Expense:
		draft = core.NewExpense(core.Money{Cents: req.Amount}, req.Description, core.Category(req.Category))
	default:
		writeServiceError(w, core.ErrInvalidType)
		return
	}

	tx, err := s.ledgers.Append(r.Context(), user.ID, draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.invalidateUserViews(user.ID)

	// Ledger timestamps are UTC, so the month must be too.
	month := core.MonthKey(time.Now().UTC())
	status := s.tracker.Evaluate(r.Context(), user.ID, s.ledgers.Load(r.Context(), user.ID), month)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionRecorded(r.Context(), tx.ID, user.ID); err != nil {
			// The ledger write already succeeded; the export pipeline
			// catches up via a full re-export.
			s.logger.WarnContext(r.Context(), "Failed to publish activity event",
				log.FieldError, err, log.FieldUserID, user.ID)
		}
	}

	writeJSON(w, http.StatusCreated, createTransactionResponse{Transaction: tx, Budget: status})
}
