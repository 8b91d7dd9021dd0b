package core

import "errors"

// Sentinel errors for the ledger. Callers classify failures with errors.Is;
// the web layer maps them onto HTTP status codes.
var (
	// ErrUnauthorized means no active session, or the caller is not the
	// session user.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means a referenced user, task or transaction is absent.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds means a payout request exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidTransition means a settlement was attempted on a
	// transaction that is not a pending payout.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrValidation means the input failed a business rule.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden means the operation is disabled or not allowed for
	// this caller.
	ErrForbidden = errors.New("forbidden")

	// ErrAccountBanned means the account is banned and cannot log in.
	ErrAccountBanned = errors.New("account banned")

	// ErrPayoutsDisabled means withdrawals are switched off globally.
	ErrPayoutsDisabled = errors.New("payouts disabled")

	// ErrMaintenance means the application is in maintenance mode.
	ErrMaintenance = errors.New("maintenance mode")

	// ErrIntegrity means the persisted or imported state is inconsistent.
	ErrIntegrity = errors.New("integrity failure")
)
