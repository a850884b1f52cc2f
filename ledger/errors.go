/*
errors.go - Centralized error types for the ledger

All ledger errors are synchronous and locally recoverable: they are
returned to the immediate caller and never logged from here. Callers
branch with errors.Is / errors.As.
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input: bad incident number
	// format, missing reason, invalid date.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateIncident is returned when an incident number is claimed
	// twice by one officer or exceeds the global claimant cap.
	ErrDuplicateIncident = errors.New("duplicate incident claim")

	// ErrInsufficientBalance is returned when a consume cannot be fully
	// paid. Nothing is mutated.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrEntryNotFound is returned when a referenced entry id is unknown.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrNatureNotFound is returned when a referenced category is unknown.
	ErrNatureNotFound = errors.New("incident nature not found")

	// ErrInvalidTransition is returned for audit decisions on entries
	// that are not pending.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError details a balance shortage.
type InsufficientBalanceError struct {
	UserID    string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: available %s, requested %s",
		e.UserID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// DuplicateIncidentError details which duplicate rule fired.
type DuplicateIncidentError struct {
	IncidentNumber string
	UserID         string
	GlobalClaims   int
	SameUser       bool
}

func (e *DuplicateIncidentError) Error() string {
	if e.SameUser {
		return fmt.Sprintf("incident %s already claimed by this officer", e.IncidentNumber)
	}
	return fmt.Sprintf("incident %s reached the maximum of %d claims", e.IncidentNumber, e.GlobalClaims)
}

func (e *DuplicateIncidentError) Unwrap() error { return ErrDuplicateIncident }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to caller input rather
// than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateIncident) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidTransition)
}
