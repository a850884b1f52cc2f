/*
Package dispense is the day-off allocation engine: it validates and creates
allocations against daily capacity, shift rotation, and the CPC priority
queue, charges the points ledger for debit-mode allocations, and reverses
the charge on cancellation.

PURPOSE:
  A dispense is one officer taking one scheduled day off. Ordinary
  (Productivity) dispenses are paid with ledger points; CPC dispenses are
  free slots granted by command in queue order; administrative records
  block whole days or grant days out of band.

CRITICAL INVARIANTS:
  1. CAPACITY: active non-blocked allocations on a date never exceed the
     configured daily capacity. A violating request fails and mutates
     nothing.
  2. ONE SLOT PER DAY: an officer holds at most one active allocation per
     date.
  3. BLOCKED DAYS occupy no capacity slot but make the date fully
     unavailable for ordinary scheduling.
  4. CANCELLATION is idempotent and refunds every ledger entry the
     allocation consumed, exactly once.

STATE MACHINE:
  Reserved/Approved -> Cancelled (terminal). Creation lands directly in
  Reserved (officer request) or Approved (admin grant); both count as
  active for capacity purposes. Only Cancelled frees the slot.

SEE ALSO:
  - allocator.go: the operations
  - ledger/service.go: Consume/Release called from here
  - cpc/queue.go: the turn gate consulted for CPC requests
*/
package dispense

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// ALLOCATION - One scheduled day off (or an administrative day block)
// =============================================================================

type Status string

const (
	StatusReserved  Status = "RESERVED"
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"
)

type Category string

const (
	CategoryProductivity Category = "PRODUTIVIDADE"
	CategoryCPC          Category = "CPC"
	CategoryOther        Category = "OUTROS"
)

type Mode string

const (
	ModeCredit Mode = "CREDITO" // free: no ledger consumption
	ModeDebit  Mode = "DEBITO"  // paid: FIFO consumption from the ledger
)

type Allocation struct {
	ID            string
	UserID        string
	UserName      string
	Team          roster.Team
	Date          time.Time
	PointsDebited decimal.Decimal
	Mode          Mode
	Status        Status
	Category      Category
	Notes         string

	// ManualRegistration marks admin-created allocations for the audit
	// trail.
	ManualRegistration bool

	// BlockedDay marks the administrative full-day lock. Block records
	// occupy no capacity slot.
	BlockedDay bool

	// CPC campaign metadata, recorded at grant time for transparency.
	CPCCriterion    config.Criterion
	CPCOverallPos   int
	CPCTeamPos      int

	CreatedAt time.Time
}

// Active reports whether the allocation still holds its slot.
func (a Allocation) Active() bool {
	return a.Status != StatusCancelled
}

// CountsAgainstCapacity reports whether the allocation consumes one of the
// date's capacity slots.
func (a Allocation) CountsAgainstCapacity() bool {
	return a.Active() && !a.BlockedDay
}

// =============================================================================
// STORE - Repository interface owned by the allocator
// =============================================================================

// AllocationStore persists allocations as a flat id-keyed collection.
type AllocationStore interface {
	// InsertAllocation adds an allocation. Fails if the id exists.
	InsertAllocation(ctx context.Context, a Allocation) error

	// UpdateAllocation replaces an existing allocation record.
	UpdateAllocation(ctx context.Context, a Allocation) error

	// GetAllocation returns an allocation by id.
	GetAllocation(ctx context.Context, id string) (Allocation, error)

	// ListAllocationsByDate returns every allocation on a calendar date.
	ListAllocationsByDate(ctx context.Context, date time.Time) ([]Allocation, error)

	// ListAllocationsByUser returns every allocation owned by a user.
	ListAllocationsByUser(ctx context.Context, userID string) ([]Allocation, error)

	// ListAllocationsByCategory returns every allocation of one category.
	ListAllocationsByCategory(ctx context.Context, cat Category) ([]Allocation, error)
}
