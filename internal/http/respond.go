package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/storage"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a bounded request body into v, rejecting trailing garbage.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return errors.New("unexpected trailing data in request body")
	}
	return nil
}

var validationErrs = []error{
	core.ErrInvalidAmount,
	core.ErrShortDescription,
	core.ErrLongDescription,
	core.ErrMissingCategory,
	core.ErrUnknownCategory,
	core.ErrInvalidMonth,
	core.ErrInvalidType,
	core.ErrEmptyName,
	core.ErrEmptyEmail,
	core.ErrEmptyPassword,
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrLastAdmin), errors.Is(err, storage.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
