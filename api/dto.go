/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through a shared *validator.Validate before touching domain logic.
  Dates travel as "2006-01-02" strings and are parsed in handlers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/guardia/roster-engine/dispense"
	"github.com/guardia/roster-engine/ledger"
	"github.com/guardia/roster-engine/release"
	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents an officer in API responses.
type UserDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	WarName      string `json:"war_name"`
	Email        string `json:"email,omitempty"`
	Matricula    string `json:"matricula"`
	Rank         string `json:"rank"`
	Team         string `json:"team"`
	BirthDate    string `json:"birth_date"`
	Phone        string `json:"phone,omitempty"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	SeniorityPos int    `json:"seniority_pos"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CreateUserRequest is the request to register an officer.
type CreateUserRequest struct {
	Name         string `json:"name" validate:"required"`
	WarName      string `json:"war_name" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Matricula    string `json:"matricula" validate:"required,len=5,numeric"`
	Rank         string `json:"rank" validate:"required"`
	Team         string `json:"team" validate:"required,oneof=ALPHA BRAVO CHARLIE DELTA"`
	BirthDate    string `json:"birth_date" validate:"required"`
	Phone        string `json:"phone"`
	Role         string `json:"role" validate:"omitempty,oneof=OFFICER ADM TI"`
	SeniorityPos int    `json:"seniority_pos" validate:"omitempty,min=1"`
}

// UpdateUserRequest is the request to edit an officer record.
type UpdateUserRequest struct {
	Name         string `json:"name" validate:"required"`
	WarName      string `json:"war_name" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Matricula    string `json:"matricula" validate:"required,len=5,numeric"`
	Rank         string `json:"rank" validate:"required"`
	Team         string `json:"team" validate:"required,oneof=ALPHA BRAVO CHARLIE DELTA"`
	BirthDate    string `json:"birth_date" validate:"required"`
	Phone        string `json:"phone"`
	Role         string `json:"role" validate:"omitempty,oneof=OFFICER ADM TI"`
	SeniorityPos int    `json:"seniority_pos" validate:"omitempty,min=1"`
}

// =============================================================================
// LEDGER
// =============================================================================

// EntryDTO represents a point-earning claim in API responses.
type EntryDTO struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	Matricula       string  `json:"matricula"`
	IncidentNumber  string  `json:"incident_number"`
	IncidentDate    string  `json:"incident_date"`
	NatureID        string  `json:"nature_id"`
	NatureName      string  `json:"nature_name"`
	Points          float64 `json:"points"`
	Status          string  `json:"status"`
	Notes           string  `json:"notes,omitempty"`
	ConsumedBy      string  `json:"consumed_by,omitempty"`
	AuditedBy       string  `json:"audited_by,omitempty"`
	AuditedAt       string  `json:"audited_at,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

// SubmitEntryRequest is the request to claim an incident.
type SubmitEntryRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	IncidentNumber string `json:"incident_number" validate:"required,len=8,numeric"`
	IncidentDate   string `json:"incident_date" validate:"required"`
	NatureID       string `json:"nature_id" validate:"required"`
	Notes          string `json:"notes"`
}

// AuditEntryRequest is the request to resolve a pending claim.
type AuditEntryRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Reason   string `json:"reason"`
	Auditor  string `json:"auditor" validate:"required"`
}

// NatureDTO represents an incident category.
type NatureDTO struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Points float64 `json:"points"`
	Active bool    `json:"active"`
}

// BalanceDTO represents an officer's spendable balance.
type BalanceDTO struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
	AsOf    string  `json:"as_of"`
}

// =============================================================================
// DISPENSES
// =============================================================================

// AllocationDTO represents a dispense slot in API responses.
type AllocationDTO struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	UserName           string  `json:"user_name"`
	Team               string  `json:"team"`
	Date               string  `json:"date"`
	PointsDebited      float64 `json:"points_debited"`
	Mode               string  `json:"mode"`
	Status             string  `json:"status"`
	Category           string  `json:"category"`
	Notes              string  `json:"notes,omitempty"`
	ManualRegistration bool    `json:"manual_registration,omitempty"`
	BlockedDay         bool    `json:"blocked_day,omitempty"`
	CPCCriterion       string  `json:"cpc_criterion,omitempty"`
	CPCOverallPos      int     `json:"cpc_overall_pos,omitempty"`
	CPCTeamPos         int     `json:"cpc_team_pos,omitempty"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

// RequestDispenseRequest is the officer-facing request for a slot.
// OUTROS is absent on purpose: that category only enters through the
// admin grant endpoint.
type RequestDispenseRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Category string `json:"category" validate:"required,oneof=PRODUTIVIDADE CPC"`
	Mode     string `json:"mode" validate:"required,oneof=CREDITO DEBITO"`
}

// AdminGrantRequest is the admin-facing manual registration.
type AdminGrantRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Category string `json:"category" validate:"required,oneof=PRODUTIVIDADE CPC OUTROS"`
	Mode     string `json:"mode" validate:"required,oneof=CREDITO DEBITO"`
	Note     string `json:"note"`
}

// DayStatusDTO summarizes a calendar day.
type DayStatusDTO struct {
	Date        string          `json:"date"`
	OnDutyTeam  string          `json:"on_duty_team,omitempty"`
	DayType     string          `json:"day_type"`
	Blocked     bool            `json:"blocked"`
	SlotsTaken  int             `json:"slots_taken"`
	SlotsTotal  int             `json:"slots_total"`
	Allocations []AllocationDTO `json:"allocations"`
}

// =============================================================================
// CPC QUEUE
// =============================================================================

// QueueEntryDTO is one position in the command-leave wait list.
type QueueEntryDTO struct {
	Position  int     `json:"position"`
	UserID    string  `json:"user_id"`
	WarName   string  `json:"war_name"`
	Matricula string  `json:"matricula"`
	Rank      string  `json:"rank"`
	Team      string  `json:"team"`
	Balance   float64 `json:"balance,omitempty"`
}

// =============================================================================
// CAMPAIGN SETTINGS
// =============================================================================

// CampaignDTO mirrors the mutable campaign configuration.
type CampaignDTO struct {
	MaxDispensesPerDay int      `json:"max_dispenses_per_day"`
	ValidityDays       int      `json:"validity_days"`
	CPCEnabled         bool     `json:"cpc_enabled"`
	CPCCriterion       string   `json:"cpc_criterion"`
	CPCPeriodStart     string   `json:"cpc_period_start,omitempty"`
	CPCPeriodEnd       string   `json:"cpc_period_end,omitempty"`
	CPCTeamsEnabled    []string `json:"cpc_teams_enabled"`
}

// =============================================================================
// RELEASE RECORDS
// =============================================================================

// ExpirationReleaseDTO represents an expired-claim re-activation record.
type ExpirationReleaseDTO struct {
	ID             string `json:"id"`
	IncidentNumber string `json:"incident_number"`
	IncidentDate   string `json:"incident_date"`
	Matricula      string `json:"matricula"`
	OfficerName    string `json:"officer_name,omitempty"`
	NatureID       string `json:"nature_id"`
	NatureName     string `json:"nature_name,omitempty"`
	ValidUntil     string `json:"valid_until"`
	Reason         string `json:"reason,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// CreateExpirationReleaseRequest re-activates an expired claim.
type CreateExpirationReleaseRequest struct {
	IncidentNumber string `json:"incident_number" validate:"required,len=8,numeric"`
	Matricula      string `json:"matricula" validate:"required,len=5,numeric"`
	NatureID       string `json:"nature_id" validate:"required"`
	ValidUntil     string `json:"valid_until" validate:"required"`
	Reason         string `json:"reason"`
}

// HolidayOverrideDTO represents a per-date cost override.
type HolidayOverrideDTO struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	Points    float64 `json:"points"`
	Reason    string  `json:"reason,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// CreateHolidayOverrideRequest sets the dispense cost for one date.
type CreateHolidayOverrideRequest struct {
	Date   string  `json:"date" validate:"required"`
	Points float64 `json:"points" validate:"required,gt=0"`
	Reason string  `json:"reason"`
}

// BirthdayReleaseDTO represents a birthday registry record.
type BirthdayReleaseDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Team      string `json:"team"`
	Matricula string `json:"matricula"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateBirthdayReleaseRequest registers a birthday record.
type CreateBirthdayReleaseRequest struct {
	Date      string `json:"date" validate:"required"`
	Team      string `json:"team" validate:"required,oneof=ALPHA BRAVO CHARLIE DELTA"`
	Matricula string `json:"matricula" validate:"required,len=5,numeric"`
	Notes     string `json:"notes"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

const dateLayout = "2006-01-02"

func toUserDTO(u roster.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Name:         u.Name,
		WarName:      u.WarName,
		Email:        u.Email,
		Matricula:    u.Matricula,
		Rank:         u.Rank,
		Team:         string(u.Team),
		BirthDate:    u.BirthDate.Format(dateLayout),
		Phone:        u.Phone,
		Role:         string(u.Role),
		Status:       string(u.Status),
		SeniorityPos: u.SeniorityPos,
		CreatedAt:    u.CreatedAt.Format(time.RFC3339),
	}
}

func toUserDTOs(users []roster.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	return dtos
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:              e.ID,
		UserID:          e.UserID,
		Matricula:       e.Matricula,
		IncidentNumber:  e.IncidentNumber,
		IncidentDate:    e.IncidentDate.Format(dateLayout),
		NatureID:        e.NatureID,
		NatureName:      e.NatureName,
		Points:          e.Points.InexactFloat64(),
		Status:          string(e.Status),
		Notes:           e.Notes,
		ConsumedBy:      e.ConsumedBy,
		AuditedBy:       e.AuditedBy,
		RejectionReason: e.RejectionReason,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
	if e.AuditedAt != nil {
		dto.AuditedAt = e.AuditedAt.Format(time.RFC3339)
	}
	return dto
}

func toEntryDTOs(entries []ledger.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

func toAllocationDTO(a dispense.Allocation) AllocationDTO {
	return AllocationDTO{
		ID:                 a.ID,
		UserID:             a.UserID,
		UserName:           a.UserName,
		Team:               string(a.Team),
		Date:               a.Date.Format(dateLayout),
		PointsDebited:      a.PointsDebited.InexactFloat64(),
		Mode:               string(a.Mode),
		Status:             string(a.Status),
		Category:           string(a.Category),
		Notes:              a.Notes,
		ManualRegistration: a.ManualRegistration,
		BlockedDay:         a.BlockedDay,
		CPCCriterion:       string(a.CPCCriterion),
		CPCOverallPos:      a.CPCOverallPos,
		CPCTeamPos:         a.CPCTeamPos,
		CreatedAt:          a.CreatedAt.Format(time.RFC3339),
	}
}

func toAllocationDTOs(allocs []dispense.Allocation) []AllocationDTO {
	dtos := make([]AllocationDTO, len(allocs))
	for i, a := range allocs {
		dtos[i] = toAllocationDTO(a)
	}
	return dtos
}

func toExpirationReleaseDTO(r release.ExpirationRelease) ExpirationReleaseDTO {
	return ExpirationReleaseDTO{
		ID:             r.ID,
		IncidentNumber: r.IncidentNumber,
		IncidentDate:   r.IncidentDate.Format(dateLayout),
		Matricula:      r.Matricula,
		OfficerName:    r.OfficerName,
		NatureID:       r.NatureID,
		NatureName:     r.NatureName,
		ValidUntil:     r.ValidUntil.Format(dateLayout),
		Reason:         r.Reason,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
}

func toHolidayOverrideDTO(r release.HolidayOverride) HolidayOverrideDTO {
	return HolidayOverrideDTO{
		ID:        r.ID,
		Date:      r.Date.Format(dateLayout),
		Points:    r.Points.InexactFloat64(),
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

func toBirthdayReleaseDTO(r release.BirthdayRelease) BirthdayReleaseDTO {
	return BirthdayReleaseDTO{
		ID:        r.ID,
		Date:      r.Date.Format(dateLayout),
		Team:      string(r.Team),
		Matricula: r.Matricula,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}
