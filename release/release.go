/*
Package release holds the administrative override records that feed the
cost and ledger rules: expired-incident reactivations, per-date holiday
cost overrides, and birthday registrations.

PURPOSE:
  Admins occasionally need to bend the standing rules for a specific case:
  re-validate an incident that aged out of the 90-day window, price a
  one-off commemorative date, or record an officer's birthday discount for
  transparency. These records are inputs read by the calendar oracle and
  the ledger; the core never mutates them beyond create/delete.

VARIANTS:
  ExpirationRelease: re-validates one expired incident number for one
                     officer, with a new validity date.
  HolidayOverride:   a specific date gets a custom point cost that replaces
                     the base cost entirely (before the birthday discount).
  BirthdayRelease:   registry record for an officer's birthday; the cost
                     discount itself keys off the officer's birth date.

SEE ALSO:
  - calendar/oracle.go: consults HolidayOverride
  - ledger/service.go: applies ExpirationRelease
*/
package release

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// RECORD VARIANTS
// =============================================================================

// ExpirationRelease re-validates a specific expired incident for a specific
// officer, giving it a new expiry date.
type ExpirationRelease struct {
	ID             string
	IncidentNumber string
	IncidentDate   time.Time
	Matricula      string
	OfficerName    string
	NatureID       string
	NatureName     string
	ValidUntil     time.Time
	Reason         string
	CreatedAt      time.Time
}

// HolidayOverride prices a specific date, replacing the weekday/weekend
// base cost before the birthday discount is applied.
type HolidayOverride struct {
	ID        string
	Date      time.Time
	Points    decimal.Decimal
	Reason    string
	CreatedAt time.Time
}

// BirthdayRelease records an officer's birthday registration for the
// admin-facing registry. The cost rule itself reads the officer's birth
// date; this record exists for visibility.
type BirthdayRelease struct {
	ID        string
	Date      time.Time // month/day are the significant parts
	Team      roster.Team
	Matricula string
	Notes     string
	CreatedAt time.Time
}

// =============================================================================
// REGISTRY - Repository interface
// =============================================================================

var ErrReleaseNotFound = errors.New("release record not found")

// Registry persists override records. The calendar oracle and the ledger
// read through this interface; only admin endpoints write.
type Registry interface {
	InsertExpirationRelease(ctx context.Context, r ExpirationRelease) error
	ListExpirationReleases(ctx context.Context) ([]ExpirationRelease, error)
	DeleteExpirationRelease(ctx context.Context, id string) error

	InsertHolidayOverride(ctx context.Context, r HolidayOverride) error
	// HolidayOverrideFor returns the override for an exact date, if any.
	HolidayOverrideFor(ctx context.Context, date time.Time) (HolidayOverride, bool, error)
	ListHolidayOverrides(ctx context.Context) ([]HolidayOverride, error)
	DeleteHolidayOverride(ctx context.Context, id string) error

	InsertBirthdayRelease(ctx context.Context, r BirthdayRelease) error
	ListBirthdayReleases(ctx context.Context) ([]BirthdayRelease, error)
	DeleteBirthdayRelease(ctx context.Context, id string) error
}
