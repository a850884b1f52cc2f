/*
errors.go - Centralized error types for the allocation engine

The taxonomy mirrors the gate order in Request: day availability first
(blocked, off-duty, full, already scheduled), then CPC campaign gates,
then balance. All errors are returned to the caller with no state mutated.
*/
package dispense

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDayUnavailable is the umbrella for blocked / full / off-duty.
	ErrDayUnavailable = errors.New("day unavailable")

	// ErrDayBlocked: the date carries an administrative full-day lock.
	ErrDayBlocked = fmt.Errorf("%w: day is blocked", ErrDayUnavailable)

	// ErrDayFull: daily capacity is exhausted.
	ErrDayFull = fmt.Errorf("%w: day is full", ErrDayUnavailable)

	// ErrOffDuty: the officer's team is off duty on the date.
	ErrOffDuty = fmt.Errorf("%w: team is off duty", ErrDayUnavailable)

	// ErrAlreadyScheduled: the officer already holds an active
	// allocation on the date.
	ErrAlreadyScheduled = errors.New("officer already scheduled on this date")

	// ErrQueueViolation is the umbrella for CPC campaign gates.
	ErrQueueViolation = errors.New("cpc queue violation")

	// ErrCPCDisabled: the CPC campaign is not running.
	ErrCPCDisabled = fmt.Errorf("%w: campaign is not enabled", ErrQueueViolation)

	// ErrTeamNotInCampaign: the officer's team is out of campaign scope.
	ErrTeamNotInCampaign = fmt.Errorf("%w: team not enabled for this campaign", ErrQueueViolation)

	// ErrOutOfCampaignWindow: the date's month falls outside the window.
	ErrOutOfCampaignWindow = fmt.Errorf("%w: date outside the campaign window", ErrQueueViolation)

	// ErrNotYourTurn: someone with higher priority has not chosen yet.
	ErrNotYourTurn = fmt.Errorf("%w: not this officer's turn", ErrQueueViolation)

	// ErrAdminOnlyCategory: the OUTROS category is reserved for
	// administrative grants and cannot be self-requested.
	ErrAdminOnlyCategory = errors.New("category requires an administrative grant")

	// ErrAllocationNotFound is returned for unknown allocation ids.
	ErrAllocationNotFound = errors.New("allocation not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// DayUnavailableError reports why a date cannot be scheduled.
type DayUnavailableError struct {
	Date   time.Time
	Reason error // ErrDayBlocked, ErrDayFull, or ErrOffDuty
}

func (e *DayUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", e.Date.Format("2006-01-02"), e.Reason)
}

func (e *DayUnavailableError) Unwrap() error { return e.Reason }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrDayUnavailable) ||
		errors.Is(err, ErrAlreadyScheduled) ||
		errors.Is(err, ErrQueueViolation) ||
		errors.Is(err, ErrAdminOnlyCategory)
}
