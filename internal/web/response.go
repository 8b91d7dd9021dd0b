package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"earnpulse/internal/core"
)

// ErrorResponse is the JSON shape of every error answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps ledger sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal_error"

	switch {
	case errors.Is(err, core.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, core.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, core.ErrInsufficientFunds):
		status, kind = http.StatusPaymentRequired, "insufficient_funds"
	case errors.Is(err, core.ErrAccountBanned):
		status, kind = http.StatusForbidden, "account_banned"
	case errors.Is(err, core.ErrPayoutsDisabled):
		status, kind = http.StatusForbidden, "payouts_disabled"
	case errors.Is(err, core.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, core.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrInvalidTransition):
		status, kind = http.StatusConflict, "invalid_transition"
	case errors.Is(err, core.ErrMaintenance):
		status, kind = http.StatusServiceUnavailable, "maintenance"
	case errors.Is(err, core.ErrIntegrity):
		status, kind = http.StatusInternalServerError, "integrity_failure"
	}

	msg := err.Error()
	if kind == "internal_error" {
		// do not leak internals
		msg = "an internal error occurred"
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: msg})
}
