/*
handlers.go - HTTP API handlers for the patrol roster engine

PURPOSE:
  Exposes the points ledger, dispense allocator, CPC queue, and calendar
  oracle via REST API. Handles HTTP request/response, JSON serialization,
  and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users                   List officers
    POST   /api/users                   Register officer
    GET    /api/users/{id}              Officer details
    PUT    /api/users/{id}              Edit officer
    DELETE /api/users/{id}              Archive officer (soft delete)
    GET    /api/users/{id}/balance      Spendable balance
    GET    /api/users/{id}/entries      Claim history
    GET    /api/users/{id}/dispenses    Allocation history

  Ledger:
    POST   /api/entries                 Submit incident claim
    GET    /api/entries/{id}            Claim details
    POST   /api/entries/{id}/audit      Approve/reject claim
    GET    /api/natures                 Incident category catalogue

  Dispenses:
    POST   /api/dispenses               Request a slot
    POST   /api/dispenses/admin         Admin manual registration
    DELETE /api/dispenses/{id}          Cancel (idempotent)
    GET    /api/days/{date}             Day status
    POST   /api/days/{date}/block       Block day
    POST   /api/days/{date}/unblock     Unblock day
    POST   /api/days/{date}/cancel-all  Cancel every active slot

  CPC:
    GET    /api/cpc/queue?team=ALPHA    Per-team wait list
    GET    /api/cpc/queue               Concatenated wait list

  Admin:
    GET/PUT /api/campaign               Campaign settings
    /api/releases/expirations           Expired-claim re-activation
    /api/releases/holidays              Per-date cost overrides
    /api/releases/birthdays             Birthday registry
    POST   /api/seed                    Load demo data (dev only)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Domain conflicts (duplicate claim, full day, out of turn)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.
  The Auditor/actor fields in request bodies are trusted as sent.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guardia/roster-engine/calendar"
	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/cpc"
	"github.com/guardia/roster-engine/dispense"
	"github.com/guardia/roster-engine/ledger"
	"github.com/guardia/roster-engine/release"
	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Users    *roster.Service
	Ledger   *ledger.Service
	Alloc    *dispense.Allocator
	Queue    *cpc.Queue
	Oracle   *calendar.Oracle
	Settings *config.Settings
	Releases release.Registry
	Natures  ledger.NatureStore

	validate *validator.Validate
}

// NewHandler creates a new handler wired to the domain services.
func NewHandler(users *roster.Service, led *ledger.Service, alloc *dispense.Allocator,
	queue *cpc.Queue, oracle *calendar.Oracle, settings *config.Settings,
	releases release.Registry, natures ledger.NatureStore) *Handler {
	return &Handler{
		Users:    users,
		Ledger:   led,
		Alloc:    alloc,
		Queue:    queue,
		Oracle:   oracle,
		Settings: settings,
		Releases: releases,
		Natures:  natures,
		validate: validator.New(),
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns the full roster.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(users))
}

// GetUser returns a single officer.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.Store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// CreateUser registers an officer.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	birthDate, ok := parseDate(w, req.BirthDate, "birth_date")
	if !ok {
		return
	}

	u, err := h.Users.Register(r.Context(), roster.User{
		Name:         req.Name,
		WarName:      req.WarName,
		Email:        req.Email,
		Matricula:    req.Matricula,
		Rank:         req.Rank,
		Team:         roster.Team(req.Team),
		BirthDate:    birthDate,
		Phone:        req.Phone,
		Role:         roster.Role(req.Role),
		SeniorityPos: req.SeniorityPos,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(u))
}

// UpdateUser edits an officer record.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	birthDate, ok := parseDate(w, req.BirthDate, "birth_date")
	if !ok {
		return
	}

	u, err := h.Users.Update(r.Context(), roster.User{
		ID:           chi.URLParam(r, "id"),
		Name:         req.Name,
		WarName:      req.WarName,
		Email:        req.Email,
		Matricula:    req.Matricula,
		Rank:         req.Rank,
		Team:         roster.Team(req.Team),
		BirthDate:    birthDate,
		Phone:        req.Phone,
		Role:         roster.Role(req.Role),
		SeniorityPos: req.SeniorityPos,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

// ArchiveUser soft-deletes an officer. History rows stay untouched.
func (h *Handler) ArchiveUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Archive(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalance returns the officer's spendable point balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	balance, err := h.Ledger.BalanceFor(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		UserID:  id,
		Balance: balance.InexactFloat64(),
		AsOf:    time.Now().Format(time.RFC3339),
	})
}

// ListUserEntries returns the officer's claim history.
func (h *Handler) ListUserEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Ledger.Store.ListEntriesByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// ListUserDispenses returns the officer's allocation history.
func (h *Handler) ListUserDispenses(w http.ResponseWriter, r *http.Request) {
	allocs, err := h.Alloc.Store.ListAllocationsByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list dispenses", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTOs(allocs))
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// SubmitEntry records a new incident claim.
func (h *Handler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var req SubmitEntryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	incidentDate, ok := parseDate(w, req.IncidentDate, "incident_date")
	if !ok {
		return
	}

	entry, err := h.Ledger.Submit(r.Context(), ledger.Submission{
		UserID:         req.UserID,
		IncidentNumber: req.IncidentNumber,
		IncidentDate:   incidentDate,
		NatureID:       req.NatureID,
		Notes:          req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// GetEntry returns a single claim.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Ledger.Store.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// AuditEntry approves or rejects a pending claim.
func (h *Handler) AuditEntry(w http.ResponseWriter, r *http.Request) {
	var req AuditEntryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := h.Ledger.Audit(r.Context(), chi.URLParam(r, "id"),
		ledger.Decision(req.Decision), req.Reason, req.Auditor)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// ListNatures returns the incident category catalogue.
func (h *Handler) ListNatures(w http.ResponseWriter, r *http.Request) {
	natures, err := h.Natures.ListNatures(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list natures", err)
		return
	}
	dtos := make([]NatureDTO, len(natures))
	for i, n := range natures {
		dtos[i] = NatureDTO{
			ID:     n.ID,
			Name:   n.Name,
			Points: n.Points.InexactFloat64(),
			Active: n.Active,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DISPENSE HANDLERS
// =============================================================================

// RequestDispense claims a slot for an officer, running the full gate chain.
func (h *Handler) RequestDispense(w http.ResponseWriter, r *http.Request) {
	var req RequestDispenseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, ok := parseDate(w, req.Date, "date")
	if !ok {
		return
	}

	alloc, err := h.Alloc.Request(r.Context(), req.UserID, date,
		dispense.Category(req.Category), dispense.Mode(req.Mode))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationDTO(alloc))
}

// AdminGrantDispense registers a slot manually, bypassing the turn gate.
func (h *Handler) AdminGrantDispense(w http.ResponseWriter, r *http.Request) {
	var req AdminGrantRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, ok := parseDate(w, req.Date, "date")
	if !ok {
		return
	}

	alloc, err := h.Alloc.AdminGrant(r.Context(), req.UserID, date,
		dispense.Category(req.Category), dispense.Mode(req.Mode), req.Note)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationDTO(alloc))
}

// CancelDispense cancels an allocation and returns its points. Idempotent.
func (h *Handler) CancelDispense(w http.ResponseWriter, r *http.Request) {
	actor := r.URL.Query().Get("actor")
	if err := h.Alloc.Cancel(r.Context(), chi.URLParam(r, "id"), actor); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetDayStatus summarizes a calendar date.
func (h *Handler) GetDayStatus(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, chi.URLParam(r, "date"), "date")
	if !ok {
		return
	}

	status, err := h.Alloc.StatusForDay(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get day status", err)
		return
	}
	dto := DayStatusDTO{
		Date:        date.Format(dateLayout),
		DayType:     string(h.Oracle.DayTypeFor(date)),
		Blocked:     status.Blocked,
		SlotsTaken:  status.SlotsTaken,
		SlotsTotal:  status.SlotsTotal,
		Allocations: toAllocationDTOs(status.Allocations),
	}
	if status.HasShift {
		dto.OnDutyTeam = string(status.OnDutyTeam)
	}
	writeJSON(w, http.StatusOK, dto)
}

// BlockDay locks a date against new dispenses.
func (h *Handler) BlockDay(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, chi.URLParam(r, "date"), "date")
	if !ok {
		return
	}
	if err := h.Alloc.BlockDay(r.Context(), date); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnblockDay lifts a block.
func (h *Handler) UnblockDay(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, chi.URLParam(r, "date"), "date")
	if !ok {
		return
	}
	if err := h.Alloc.UnblockDay(r.Context(), date); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelAllForDay cancels every active slot on a date.
func (h *Handler) CancelAllForDay(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(w, chi.URLParam(r, "date"), "date")
	if !ok {
		return
	}
	actor := r.URL.Query().Get("actor")
	n, err := h.Alloc.CancelAllForDay(r.Context(), date, actor)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cancelled": n})
}

// =============================================================================
// CPC QUEUE HANDLERS
// =============================================================================

// GetQueue returns the command-leave wait list, per team or concatenated.
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	team := r.URL.Query().Get("team")

	var (
		users []roster.User
		err   error
	)
	if team != "" {
		if !roster.ValidTeam(roster.Team(team)) {
			writeError(w, http.StatusBadRequest, "Unknown team", nil)
			return
		}
		users, err = h.Queue.EligibleFor(ctx, roster.Team(team))
	} else {
		users, err = h.Queue.EligibleAll(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to derive queue", err)
		return
	}

	ranking := h.Settings.Campaign().CPCCriterion == config.CriterionRanking
	dtos := make([]QueueEntryDTO, len(users))
	for i, u := range users {
		dtos[i] = QueueEntryDTO{
			Position:  i + 1,
			UserID:    u.ID,
			WarName:   u.WarName,
			Matricula: u.Matricula,
			Rank:      u.Rank,
			Team:      string(u.Team),
		}
		if ranking {
			if b, err := h.Ledger.BalanceFor(ctx, u.ID); err == nil {
				dtos[i].Balance = b.InexactFloat64()
			}
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// CAMPAIGN SETTINGS HANDLERS
// =============================================================================

// GetCampaign returns the current campaign configuration.
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toCampaignDTO(h.Settings.Campaign()))
}

// UpdateCampaign replaces the campaign configuration.
func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CampaignDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	teams := make([]roster.Team, len(req.CPCTeamsEnabled))
	for i, t := range req.CPCTeamsEnabled {
		teams[i] = roster.Team(t)
	}
	err := h.Settings.Update(config.Campaign{
		MaxDispensesPerDay: req.MaxDispensesPerDay,
		ValidityDays:       req.ValidityDays,
		CPCEnabled:         req.CPCEnabled,
		CPCCriterion:       config.Criterion(req.CPCCriterion),
		CPCPeriodStart:     req.CPCPeriodStart,
		CPCPeriodEnd:       req.CPCPeriodEnd,
		CPCTeamsEnabled:    teams,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid campaign settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignDTO(h.Settings.Campaign()))
}

func toCampaignDTO(c config.Campaign) CampaignDTO {
	teams := make([]string, len(c.CPCTeamsEnabled))
	for i, t := range c.CPCTeamsEnabled {
		teams[i] = string(t)
	}
	return CampaignDTO{
		MaxDispensesPerDay: c.MaxDispensesPerDay,
		ValidityDays:       c.ValidityDays,
		CPCEnabled:         c.CPCEnabled,
		CPCCriterion:       string(c.CPCCriterion),
		CPCPeriodStart:     c.CPCPeriodStart,
		CPCPeriodEnd:       c.CPCPeriodEnd,
		CPCTeamsEnabled:    teams,
	}
}

// =============================================================================
// RELEASE RECORD HANDLERS
// =============================================================================

// ListExpirationReleases returns every re-activation record.
func (h *Handler) ListExpirationReleases(w http.ResponseWriter, r *http.Request) {
	releases, err := h.Releases.ListExpirationReleases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list releases", err)
		return
	}
	dtos := make([]ExpirationReleaseDTO, len(releases))
	for i, rel := range releases {
		dtos[i] = toExpirationReleaseDTO(rel)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpirationRelease records a re-activation and applies it to the
// matching expired claim in one step.
func (h *Handler) CreateExpirationRelease(w http.ResponseWriter, r *http.Request) {
	var req CreateExpirationReleaseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	validUntil, ok := parseDate(w, req.ValidUntil, "valid_until")
	if !ok {
		return
	}
	ctx := r.Context()

	rel := release.ExpirationRelease{
		ID:             uuid.NewString(),
		IncidentNumber: req.IncidentNumber,
		Matricula:      req.Matricula,
		NatureID:       req.NatureID,
		ValidUntil:     validUntil,
		Reason:         req.Reason,
		CreatedAt:      time.Now(),
	}
	entry, err := h.Ledger.ApplyExpirationRelease(ctx, rel)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	rel.IncidentDate = entry.IncidentDate
	rel.NatureName = entry.NatureName
	if u, uerr := h.Users.Store.GetUserByMatricula(ctx, req.Matricula); uerr == nil {
		rel.OfficerName = u.WarName
	}
	if err := h.Releases.InsertExpirationRelease(ctx, rel); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record release", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpirationReleaseDTO(rel))
}

// DeleteExpirationRelease removes a re-activation record.
func (h *Handler) DeleteExpirationRelease(w http.ResponseWriter, r *http.Request) {
	if err := h.Releases.DeleteExpirationRelease(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHolidayOverrides returns every per-date cost override.
func (h *Handler) ListHolidayOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.Releases.ListHolidayOverrides(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list overrides", err)
		return
	}
	dtos := make([]HolidayOverrideDTO, len(overrides))
	for i, o := range overrides {
		dtos[i] = toHolidayOverrideDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHolidayOverride sets the dispense cost for one date.
func (h *Handler) CreateHolidayOverride(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayOverrideRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, ok := parseDate(w, req.Date, "date")
	if !ok {
		return
	}

	o := release.HolidayOverride{
		ID:        uuid.NewString(),
		Date:      date,
		Points:    decimal.NewFromFloat(req.Points),
		Reason:    req.Reason,
		CreatedAt: time.Now(),
	}
	if err := h.Releases.InsertHolidayOverride(r.Context(), o); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create override", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayOverrideDTO(o))
}

// DeleteHolidayOverride removes a cost override.
func (h *Handler) DeleteHolidayOverride(w http.ResponseWriter, r *http.Request) {
	if err := h.Releases.DeleteHolidayOverride(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBirthdayReleases returns the birthday registry.
func (h *Handler) ListBirthdayReleases(w http.ResponseWriter, r *http.Request) {
	releases, err := h.Releases.ListBirthdayReleases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list birthday records", err)
		return
	}
	dtos := make([]BirthdayReleaseDTO, len(releases))
	for i, rel := range releases {
		dtos[i] = toBirthdayReleaseDTO(rel)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBirthdayRelease registers a birthday record.
func (h *Handler) CreateBirthdayRelease(w http.ResponseWriter, r *http.Request) {
	var req CreateBirthdayReleaseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, ok := parseDate(w, req.Date, "date")
	if !ok {
		return
	}

	rel := release.BirthdayRelease{
		ID:        uuid.NewString(),
		Date:      date,
		Team:      roster.Team(req.Team),
		Matricula: req.Matricula,
		Notes:     req.Notes,
		CreatedAt: time.Now(),
	}
	if err := h.Releases.InsertBirthdayRelease(r.Context(), rel); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create birthday record", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBirthdayReleaseDTO(rel))
}

// DeleteBirthdayRelease removes a birthday record.
func (h *Handler) DeleteBirthdayRelease(w http.ResponseWriter, r *http.Request) {
	if err := h.Releases.DeleteBirthdayRelease(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// decodeAndValidate parses the JSON body and runs struct validation,
// writing the error response itself. Returns false when the handler
// should bail out.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func parseDate(w http.ResponseWriter, value, field string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+field+" format (use YYYY-MM-DD)", err)
		return time.Time{}, false
	}
	return t, true
}

// writeDomainError maps domain errors to HTTP statuses: not-found → 404,
// validation → 400, business conflicts → 409, the rest → 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roster.ErrUserNotFound),
		errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrNatureNotFound),
		errors.Is(err, dispense.ErrAllocationNotFound),
		errors.Is(err, release.ErrReleaseNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, roster.ErrInvalidUser),
		errors.Is(err, ledger.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case ledger.IsClientError(err), dispense.IsClientError(err),
		errors.Is(err, roster.ErrDuplicateMatricula):
		writeError(w, http.StatusConflict, "Request conflicts with current state", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
