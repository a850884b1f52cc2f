/*
Package calendar is the shift and pricing oracle: pure date arithmetic
mapping a calendar date to the on-duty team and to the point cost of a
dispense on that date.

PURPOSE:
  The four patrol teams rotate on a fixed 4-day cycle anchored to a
  reference date assigned to ALPHA. Everything the allocator needs to know
  about a date comes from here: which team is on duty, whether the date is
  priced as a weekday or a weekend/holiday, and what a dispense costs for a
  given officer.

DAY TYPING QUIRK:
  Friday counts as a weekend day for pricing. This is deliberate unit
  policy (weekend pricing covers the Friday-Sunday block), not a bug. It
  affects cost only, never the shift rotation.

COST RULE (in order):
  1. Base cost by day type (weekday vs weekend/holiday).
  2. A holiday override for the exact date replaces the base cost.
  3. If the date's month/day matches the officer's birth date, the result
     is multiplied by the birthday factor (0.5 by default).

DETERMINISM:
  ShiftForDate and DayType are pure. DispenseCost reads the override
  registry, which is the only side input.

SEE ALSO:
  - dispense/allocator.go: the only caller that charges costs
  - release/release.go: HolidayOverride records
*/
package calendar

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/release"
	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// DAY TYPE
// =============================================================================

type DayType string

const (
	Weekday          DayType = "WEEKDAY"
	WeekendOrHoliday DayType = "WEEKEND"
)

// =============================================================================
// ORACLE
// =============================================================================

// Oracle answers date questions. Construct one per process from the
// deployment params; it never mutates anything.
type Oracle struct {
	reference      time.Time // ALPHA's anchor date
	weekdayCost    decimal.Decimal
	weekendCost    decimal.Decimal
	birthdayFactor decimal.Decimal
	holidays       map[string]bool // keyed YYYY-MM-DD
	registry       release.Registry
}

// NewOracle builds the oracle from deployment params. The registry may be
// nil when overrides are not in play (tests, projections).
func NewOracle(params config.Params, registry release.Registry) *Oracle {
	holidays := make(map[string]bool, len(params.Holidays))
	for _, h := range params.Holidays {
		holidays[h.Format("2006-01-02")] = true
	}
	return &Oracle{
		reference:      truncate(params.ShiftReferenceDate),
		weekdayCost:    params.WeekdayCost,
		weekendCost:    params.WeekendHolidayCost,
		birthdayFactor: params.BirthdayFactor,
		holidays:       holidays,
		registry:       registry,
	}
}

// ShiftForDate returns the on-duty team for a date. Dates before the
// reference date have no shift and return false.
func (o *Oracle) ShiftForDate(date time.Time) (roster.Team, bool) {
	days := daysBetween(o.reference, truncate(date))
	if days < 0 {
		return "", false
	}
	teams := roster.AllTeams()
	return teams[days%4], true
}

// IsOffDay reports whether the team is NOT on duty on the date. Off days
// are never schedulable through the ordinary dispense path.
func (o *Oracle) IsOffDay(date time.Time, team roster.Team) bool {
	onDuty, ok := o.ShiftForDate(date)
	if !ok {
		return true
	}
	return onDuty != team
}

// DayTypeFor classifies a date for pricing. Friday, Saturday, and Sunday
// all price as weekend, as does any date in the holiday table.
func (o *Oracle) DayTypeFor(date time.Time) DayType {
	wd := date.Weekday()
	if wd == time.Friday || wd == time.Saturday || wd == time.Sunday {
		return WeekendOrHoliday
	}
	if o.holidays[truncate(date).Format("2006-01-02")] {
		return WeekendOrHoliday
	}
	return Weekday
}

// DispenseCost computes the point cost of a dispense on a date for an
// officer born on birthDate. A holiday override replaces the base cost
// before the birthday discount is applied.
func (o *Oracle) DispenseCost(ctx context.Context, date time.Time, birthDate time.Time) (decimal.Decimal, error) {
	base := o.weekdayCost
	if o.DayTypeFor(date) == WeekendOrHoliday {
		base = o.weekendCost
	}

	if o.registry != nil {
		override, ok, err := o.registry.HolidayOverrideFor(ctx, truncate(date))
		if err != nil {
			return decimal.Zero, err
		}
		if ok {
			base = override.Points
		}
	}

	if isBirthday(date, birthDate) {
		base = base.Mul(o.birthdayFactor)
	}
	return base, nil
}

// =============================================================================
// DATE HELPERS
// =============================================================================

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func isBirthday(date, birth time.Time) bool {
	return !birth.IsZero() && date.Month() == birth.Month() && date.Day() == birth.Day()
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
