/*
Package config carries the two layers of configuration the engine reads:

  1. Params - deployment constants loaded once from a TOML file: point
     costs, the shift rotation reference date, the holiday table, and
     defaults for the campaign settings. These rarely change and never
     change at runtime.

  2. Campaign - the admin-mutable process configuration: daily capacity,
     point validity window, and the CPC campaign settings (criterion,
     month window, enabled teams). Mutated only through admin endpoints,
     read by the allocator and the queue.

FILE FORMAT (TOML):

  weekday_cost = 100
  weekend_holiday_cost = 140
  birthday_factor = "0.5"
  shift_reference_date = "2026-01-02"
  holidays = ["2026-01-01", "2026-04-21", "2026-12-25"]

  [campaign]
  max_dispenses_per_day = 2
  validity_days = 90

SEE ALSO:
  - calendar/oracle.go: consumes costs, reference date, and holidays
  - dispense/allocator.go: consumes Campaign
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// CAMPAIGN - Admin-mutable process configuration
// =============================================================================

// Criterion selects how the CPC queue orders eligible officers.
type Criterion string

const (
	CriterionAlmanaque Criterion = "ALMANAQUE" // rank weight, then seniority position
	CriterionRanking   Criterion = "RANKING"   // point balance, almanaque tie-break
)

// Campaign is the process-wide configuration block. One instance exists;
// admin endpoints replace it wholesale.
type Campaign struct {
	MaxDispensesPerDay int
	ValidityDays       int

	CPCEnabled       bool
	CPCCriterion     Criterion
	CPCPeriodStart   string // YYYY-MM, inclusive
	CPCPeriodEnd     string // YYYY-MM, inclusive
	CPCTeamsEnabled  []roster.Team
}

// EnabledTeams returns the campaign scope, defaulting to all four teams
// when none are explicitly enabled.
func (c Campaign) EnabledTeams() []roster.Team {
	if len(c.CPCTeamsEnabled) > 0 {
		return c.CPCTeamsEnabled
	}
	return roster.AllTeams()
}

// TeamEnabled reports whether a team is in scope for the current campaign.
func (c Campaign) TeamEnabled(t roster.Team) bool {
	for _, team := range c.EnabledTeams() {
		if team == t {
			return true
		}
	}
	return false
}

// InPeriod reports whether a date's year-month falls inside the campaign
// window. Months compare lexicographically in YYYY-MM form; empty bounds
// are open.
func (c Campaign) InPeriod(date time.Time) bool {
	month := date.Format("2006-01")
	start := c.CPCPeriodStart
	if start == "" {
		start = "1900-01"
	}
	end := c.CPCPeriodEnd
	if end == "" {
		end = "2999-12"
	}
	return month >= start && month <= end
}

// Validate rejects inverted campaign windows and nonsense capacity.
func (c Campaign) Validate() error {
	if c.MaxDispensesPerDay < 1 {
		return fmt.Errorf("max dispenses per day must be at least 1, got %d", c.MaxDispensesPerDay)
	}
	if c.ValidityDays < 1 {
		return fmt.Errorf("validity window must be at least 1 day, got %d", c.ValidityDays)
	}
	if c.CPCPeriodStart != "" && c.CPCPeriodEnd != "" && c.CPCPeriodStart > c.CPCPeriodEnd {
		return fmt.Errorf("campaign window inverted: %s > %s", c.CPCPeriodStart, c.CPCPeriodEnd)
	}
	switch c.CPCCriterion {
	case CriterionAlmanaque, CriterionRanking, "":
	default:
		return fmt.Errorf("unknown CPC criterion %q", c.CPCCriterion)
	}
	for _, t := range c.CPCTeamsEnabled {
		if !roster.ValidTeam(t) {
			return fmt.Errorf("unknown team %q in campaign scope", t)
		}
	}
	return nil
}

// DefaultCampaign mirrors the deployment defaults.
func DefaultCampaign() Campaign {
	return Campaign{
		MaxDispensesPerDay: 2,
		ValidityDays:       90,
		CPCEnabled:         false,
		CPCCriterion:       CriterionAlmanaque,
	}
}

// =============================================================================
// PARAMS - Deployment constants (TOML)
// =============================================================================

// Params are the operating constants read at startup.
type Params struct {
	WeekdayCost        decimal.Decimal
	WeekendHolidayCost decimal.Decimal
	BirthdayFactor     decimal.Decimal
	ShiftReferenceDate time.Time
	Holidays           []time.Time
	Campaign           Campaign
}

// DefaultParams returns the built-in deployment constants: the 2026
// operating year with the ALPHA reference date of January 2nd.
func DefaultParams() Params {
	holidays := []string{
		"2026-01-01", "2026-02-17", "2026-04-03", "2026-04-21", "2026-05-01",
		"2026-06-04", "2026-09-07", "2026-10-12", "2026-11-02", "2026-11-15",
		"2026-12-25",
	}
	dates := make([]time.Time, 0, len(holidays))
	for _, h := range holidays {
		d, _ := time.Parse("2006-01-02", h)
		dates = append(dates, d)
	}
	return Params{
		WeekdayCost:        decimal.NewFromInt(100),
		WeekendHolidayCost: decimal.NewFromInt(140),
		BirthdayFactor:     decimal.RequireFromString("0.5"),
		ShiftReferenceDate: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC),
		Holidays:           dates,
		Campaign:           DefaultCampaign(),
	}
}

// fileParams is the TOML shape; decimal and date fields arrive as strings.
type fileParams struct {
	WeekdayCost        int      `toml:"weekday_cost"`
	WeekendHolidayCost int      `toml:"weekend_holiday_cost"`
	BirthdayFactor     string   `toml:"birthday_factor"`
	ShiftReferenceDate string   `toml:"shift_reference_date"`
	Holidays           []string `toml:"holidays"`
	Campaign           struct {
		MaxDispensesPerDay int      `toml:"max_dispenses_per_day"`
		ValidityDays       int      `toml:"validity_days"`
		CPCEnabled         bool     `toml:"cpc_enabled"`
		CPCCriterion       string   `toml:"cpc_criterion"`
		CPCPeriodStart     string   `toml:"cpc_period_start"`
		CPCPeriodEnd       string   `toml:"cpc_period_end"`
		CPCTeamsEnabled    []string `toml:"cpc_teams_enabled"`
	} `toml:"campaign"`
}

// Load reads Params from a TOML file, filling gaps from DefaultParams.
func Load(path string) (Params, error) {
	params := DefaultParams()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read config: %w", err)
	}
	var fp fileParams
	if err := toml.Unmarshal(raw, &fp); err != nil {
		return Params{}, fmt.Errorf("parse config: %w", err)
	}

	if fp.WeekdayCost > 0 {
		params.WeekdayCost = decimal.NewFromInt(int64(fp.WeekdayCost))
	}
	if fp.WeekendHolidayCost > 0 {
		params.WeekendHolidayCost = decimal.NewFromInt(int64(fp.WeekendHolidayCost))
	}
	if fp.BirthdayFactor != "" {
		factor, err := decimal.NewFromString(fp.BirthdayFactor)
		if err != nil {
			return Params{}, fmt.Errorf("parse birthday_factor: %w", err)
		}
		params.BirthdayFactor = factor
	}
	if fp.ShiftReferenceDate != "" {
		ref, err := time.Parse("2006-01-02", fp.ShiftReferenceDate)
		if err != nil {
			return Params{}, fmt.Errorf("parse shift_reference_date: %w", err)
		}
		params.ShiftReferenceDate = ref
	}
	if len(fp.Holidays) > 0 {
		params.Holidays = params.Holidays[:0]
		for _, h := range fp.Holidays {
			d, err := time.Parse("2006-01-02", h)
			if err != nil {
				return Params{}, fmt.Errorf("parse holiday %q: %w", h, err)
			}
			params.Holidays = append(params.Holidays, d)
		}
	}

	if fp.Campaign.MaxDispensesPerDay > 0 {
		params.Campaign.MaxDispensesPerDay = fp.Campaign.MaxDispensesPerDay
	}
	if fp.Campaign.ValidityDays > 0 {
		params.Campaign.ValidityDays = fp.Campaign.ValidityDays
	}
	params.Campaign.CPCEnabled = fp.Campaign.CPCEnabled
	if fp.Campaign.CPCCriterion != "" {
		params.Campaign.CPCCriterion = Criterion(fp.Campaign.CPCCriterion)
	}
	params.Campaign.CPCPeriodStart = fp.Campaign.CPCPeriodStart
	params.Campaign.CPCPeriodEnd = fp.Campaign.CPCPeriodEnd
	for _, t := range fp.Campaign.CPCTeamsEnabled {
		params.Campaign.CPCTeamsEnabled = append(params.Campaign.CPCTeamsEnabled, roster.Team(t))
	}

	if err := params.Campaign.Validate(); err != nil {
		return Params{}, fmt.Errorf("invalid campaign config: %w", err)
	}
	return params, nil
}
