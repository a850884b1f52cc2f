/*
allocator.go - Allocation operations

GATE ORDER (Request):
  1. Blocked day     -> ErrDayBlocked
  2. Off-duty team   -> ErrOffDuty
  3. Daily capacity  -> ErrDayFull
  4. One slot/day    -> ErrAlreadyScheduled
  5. CPC gates       -> ErrCPCDisabled / ErrTeamNotInCampaign /
                        ErrOutOfCampaignWindow / ErrNotYourTurn
  6. Cost & balance  -> ledger.InsufficientBalanceError

  A request that fails any gate mutates nothing; the ledger is only
  touched after every availability gate has passed.

CONCURRENCY:
  Capacity checks are check-then-act, so every mutating path for one
  calendar date serializes on a per-date mutex.
*/
package dispense

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guardia/roster-engine/calendar"
	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/ledger"
	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// TurnChecker answers whether it is an officer's turn in the CPC queue.
// Implemented by cpc.Queue; the interface keeps this package from
// depending on the queue's derivation internals.
type TurnChecker interface {
	IsTurn(ctx context.Context, userID string) (bool, error)
	// Positions returns the officer's 1-based overall and team queue
	// positions (0 when not in the queue).
	Positions(ctx context.Context, userID string) (overall, team int, err error)
}

// =============================================================================
// ALLOCATOR
// =============================================================================

type Allocator struct {
	Store    AllocationStore
	Users    roster.UserStore
	Ledger   *ledger.Service
	Oracle   *calendar.Oracle
	Settings *config.Settings

	turn TurnChecker

	mu      sync.Mutex
	dateMus map[string]*sync.Mutex
}

func NewAllocator(store AllocationStore, users roster.UserStore, led *ledger.Service, oracle *calendar.Oracle, settings *config.Settings) *Allocator {
	return &Allocator{
		Store:    store,
		Users:    users,
		Ledger:   led,
		Oracle:   oracle,
		Settings: settings,
		dateMus:  make(map[string]*sync.Mutex),
	}
}

// SetTurnChecker wires the CPC queue in after construction (the queue
// reads allocations from this package, so the link cannot be set in the
// constructor).
func (a *Allocator) SetTurnChecker(t TurnChecker) { a.turn = t }

// dateLock returns the mutex serializing allocation mutations for a date.
func (a *Allocator) dateLock(date time.Time) *sync.Mutex {
	key := date.Format("2006-01-02")
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.dateMus[key]
	if !ok {
		m = &sync.Mutex{}
		a.dateMus[key] = m
	}
	return m
}

// =============================================================================
// DAY AVAILABILITY
// =============================================================================

// DayStatus is the availability summary the calendar surface renders.
type DayStatus struct {
	Date        time.Time
	OnDutyTeam  roster.Team
	HasShift    bool
	Blocked     bool
	SlotsTaken  int
	SlotsTotal  int
	Allocations []Allocation // active, non-blocked
}

// StatusForDay summarizes a date's availability.
func (a *Allocator) StatusForDay(ctx context.Context, date time.Time) (DayStatus, error) {
	allocs, err := a.Store.ListAllocationsByDate(ctx, date)
	if err != nil {
		return DayStatus{}, err
	}
	status := DayStatus{
		Date:       date,
		SlotsTotal: a.Settings.Campaign().MaxDispensesPerDay,
	}
	status.OnDutyTeam, status.HasShift = a.Oracle.ShiftForDate(date)
	for _, al := range allocs {
		if !al.Active() {
			continue
		}
		if al.BlockedDay {
			status.Blocked = true
			continue
		}
		status.SlotsTaken++
		status.Allocations = append(status.Allocations, al)
	}
	return status, nil
}

// checkDay runs the availability gates shared by Request and AdminGrant.
// Administrative overrides may schedule an off-duty day; ordinary requests
// never can.
func (a *Allocator) checkDay(ctx context.Context, date time.Time, user roster.User, adminOverride bool) error {
	allocs, err := a.Store.ListAllocationsByDate(ctx, date)
	if err != nil {
		return err
	}

	taken := 0
	for _, al := range allocs {
		if !al.Active() {
			continue
		}
		if al.BlockedDay {
			return &DayUnavailableError{Date: date, Reason: ErrDayBlocked}
		}
		taken++
	}

	if !adminOverride && a.Oracle.IsOffDay(date, user.Team) {
		return &DayUnavailableError{Date: date, Reason: ErrOffDuty}
	}
	if taken >= a.Settings.Campaign().MaxDispensesPerDay {
		return &DayUnavailableError{Date: date, Reason: ErrDayFull}
	}
	for _, al := range allocs {
		if al.Active() && !al.BlockedDay && al.UserID == user.ID {
			return ErrAlreadyScheduled
		}
	}
	return nil
}

// =============================================================================
// REQUEST - Officer-initiated allocation
// =============================================================================

// Request validates and creates an officer's own allocation. Productivity
// requests in debit mode are charged to the ledger FIFO; CPC requests are
// always credit and gated by the campaign and the priority queue.
func (a *Allocator) Request(ctx context.Context, userID string, date time.Time, category Category, mode Mode) (Allocation, error) {
	if category == CategoryOther {
		// OUTROS carries no cost and no queue gate; only AdminGrant
		// may create it.
		return Allocation{}, ErrAdminOnlyCategory
	}

	user, err := a.Users.GetUser(ctx, userID)
	if err != nil {
		return Allocation{}, err
	}

	lock := a.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	if err := a.checkDay(ctx, date, user, false); err != nil {
		return Allocation{}, err
	}

	alloc := Allocation{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		UserName:  user.WarName,
		Team:      user.Team,
		Date:      date,
		Mode:      mode,
		Status:    StatusReserved,
		Category:  category,
		CreatedAt: time.Now().UTC(),
	}

	switch category {
	case CategoryCPC:
		campaign := a.Settings.Campaign()
		if err := a.checkCampaign(campaign, user.Team, date); err != nil {
			return Allocation{}, err
		}
		if a.turn == nil {
			return Allocation{}, ErrNotYourTurn
		}
		myTurn, err := a.turn.IsTurn(ctx, user.ID)
		if err != nil {
			return Allocation{}, err
		}
		if !myTurn {
			return Allocation{}, ErrNotYourTurn
		}
		// CPC slots are free regardless of the requested mode.
		alloc.Mode = ModeCredit
		alloc.PointsDebited = decimal.Zero
		alloc.CPCCriterion = campaign.CPCCriterion
		alloc.CPCOverallPos, alloc.CPCTeamPos, err = a.turn.Positions(ctx, user.ID)
		if err != nil {
			return Allocation{}, err
		}

	case CategoryProductivity:
		if mode == ModeDebit {
			cost, err := a.Oracle.DispenseCost(ctx, date, user.BirthDate)
			if err != nil {
				return Allocation{}, err
			}
			if _, err := a.Ledger.Consume(ctx, user.ID, cost, alloc.ID); err != nil {
				return Allocation{}, err
			}
			alloc.PointsDebited = cost
		}
	}

	if err := a.Store.InsertAllocation(ctx, alloc); err != nil {
		// The ledger was already charged; undo before surfacing.
		if alloc.PointsDebited.IsPositive() {
			_ = a.Ledger.Release(ctx, alloc.ID)
		}
		return Allocation{}, err
	}
	return alloc, nil
}

func (a *Allocator) checkCampaign(campaign config.Campaign, team roster.Team, date time.Time) error {
	if !campaign.CPCEnabled {
		return ErrCPCDisabled
	}
	if !campaign.TeamEnabled(team) {
		return ErrTeamNotInCampaign
	}
	if !campaign.InPeriod(date) {
		return ErrOutOfCampaignWindow
	}
	return nil
}

// =============================================================================
// ADMIN GRANT - Out-of-band allocation
// =============================================================================

// AdminGrant creates an allocation on an officer's behalf. Capacity and
// blocked-day gates still apply, but the CPC turn gate does not: command
// may grant CPC out of queue order. Grants land directly Approved and are
// flagged as manual registrations.
func (a *Allocator) AdminGrant(ctx context.Context, userID string, date time.Time, category Category, mode Mode, note string) (Allocation, error) {
	user, err := a.Users.GetUser(ctx, userID)
	if err != nil {
		return Allocation{}, err
	}

	lock := a.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	if err := a.checkDay(ctx, date, user, true); err != nil {
		return Allocation{}, err
	}

	if category == CategoryCPC {
		// Free by definition, even when the admin asked for debit.
		mode = ModeCredit
	}

	alloc := Allocation{
		ID:                 uuid.NewString(),
		UserID:             user.ID,
		UserName:           user.WarName,
		Team:               user.Team,
		Date:               date,
		Mode:               mode,
		Status:             StatusApproved,
		Category:           category,
		Notes:              note,
		ManualRegistration: true,
		CreatedAt:          time.Now().UTC(),
	}

	if category == CategoryProductivity && mode == ModeDebit {
		cost, err := a.Oracle.DispenseCost(ctx, date, user.BirthDate)
		if err != nil {
			return Allocation{}, err
		}
		if _, err := a.Ledger.Consume(ctx, user.ID, cost, alloc.ID); err != nil {
			return Allocation{}, err
		}
		alloc.PointsDebited = cost
	}

	if err := a.Store.InsertAllocation(ctx, alloc); err != nil {
		if alloc.PointsDebited.IsPositive() {
			_ = a.Ledger.Release(ctx, alloc.ID)
		}
		return Allocation{}, err
	}
	return alloc, nil
}

// =============================================================================
// CANCELLATION
// =============================================================================

// Cancel sets the allocation Cancelled and refunds any consumed ledger
// entries. Idempotent: cancelling an already-cancelled allocation is a
// no-op. Cancelling a CPC allocation frees the slot and removes the
// officer from the campaign's already-chosen set; their queue position is
// whatever the next derivation yields.
func (a *Allocator) Cancel(ctx context.Context, allocationID, actor string) error {
	alloc, err := a.Store.GetAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if alloc.Status == StatusCancelled {
		return nil
	}

	lock := a.dateLock(alloc.Date)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent cancel may have won.
	alloc, err = a.Store.GetAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if alloc.Status == StatusCancelled {
		return nil
	}

	alloc.Status = StatusCancelled
	if err := a.Store.UpdateAllocation(ctx, alloc); err != nil {
		return err
	}
	return a.Ledger.Release(ctx, alloc.ID)
}

// CancelAllForDay cancels every active non-blocked allocation on a date,
// refunding each. Used for emergency schedule changes. Returns the number
// of allocations cancelled.
func (a *Allocator) CancelAllForDay(ctx context.Context, date time.Time, actor string) (int, error) {
	allocs, err := a.Store.ListAllocationsByDate(ctx, date)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, al := range allocs {
		if !al.Active() || al.BlockedDay {
			continue
		}
		if err := a.Cancel(ctx, al.ID, actor); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// =============================================================================
// DAY BLOCKING
// =============================================================================

// BlockDay places the administrative full-day lock. Idempotent: at most
// one active block record exists per date.
func (a *Allocator) BlockDay(ctx context.Context, date time.Time) error {
	lock := a.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	allocs, err := a.Store.ListAllocationsByDate(ctx, date)
	if err != nil {
		return err
	}
	for _, al := range allocs {
		if al.Active() && al.BlockedDay {
			return nil
		}
	}

	block := Allocation{
		ID:         uuid.NewString(),
		UserID:     "SYSTEM",
		UserName:   "ADM",
		Team:       roster.TeamAlpha,
		Date:       date,
		Status:     StatusApproved,
		Category:   CategoryOther,
		BlockedDay: true,
		CreatedAt:  time.Now().UTC(),
	}
	return a.Store.InsertAllocation(ctx, block)
}

// UnblockDay lifts the lock. Idempotent when no block exists.
func (a *Allocator) UnblockDay(ctx context.Context, date time.Time) error {
	lock := a.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	allocs, err := a.Store.ListAllocationsByDate(ctx, date)
	if err != nil {
		return err
	}
	for _, al := range allocs {
		if al.Active() && al.BlockedDay {
			al.Status = StatusCancelled
			if err := a.Store.UpdateAllocation(ctx, al); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// CPC HOLDS - Input for the queue derivation
// =============================================================================

// ActiveCPCHolds returns (userID, date) pairs for every active CPC
// allocation. The queue filters them by the campaign window.
func (a *Allocator) ActiveCPCHolds(ctx context.Context) (map[string][]time.Time, error) {
	allocs, err := a.Store.ListAllocationsByCategory(ctx, CategoryCPC)
	if err != nil {
		return nil, err
	}
	holds := make(map[string][]time.Time)
	for _, al := range allocs {
		if al.Active() {
			holds[al.UserID] = append(holds[al.UserID], al.Date)
		}
	}
	return holds, nil
}
