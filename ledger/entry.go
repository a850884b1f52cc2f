/*
Package ledger is the points ledger: the collection of point-earning
incident records (RAI) per officer, with balance computation, FIFO
consumption and splitting, and expiration handling.

PURPOSE:
  Officers log qualifying incidents that earn points. Points pay for
  scheduled days off. The ledger owns everything between those two facts:
  which entries are available, in what order they are spent, and how an
  entry splits when a cost lands in the middle of it.

CRITICAL INVARIANTS:
  1. AVAILABILITY: an entry can be consumed only while its status is
     Approved or Pending and it is not already linked to an allocation.
  2. CONSERVATION: a successful consume never creates or destroys points.
     Splitting redistributes an entry's value across two entries whose
     points sum to the original.
  3. ATOMICITY: a consume that cannot be fully paid mutates nothing.
  4. CLAIM CAP: one incident number is claimable at most once per officer
     and by at most three officers system-wide.

SPLIT SEMANTICS:
  When the last entry touched by a FIFO walk is worth more than the
  remaining cost, the entry's points shrink to exactly the remainder and
  are consumed; the surplus moves to a brand-new entry stamped with the
  current time. The surplus therefore sorts AFTER untouched older entries
  in later walks. Downstream age-based expiry reads creation timestamps,
  so the fresh stamp is preserved behavior, not an accident to fix here.

SEE ALSO:
  - service.go: operations (Submit, Audit, Consume, Release)
  - dispense/allocator.go: the consumer of Consume/Release
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY - One point-earning incident record (RAI)
// =============================================================================

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

type Entry struct {
	ID             string
	UserID         string
	Matricula      string
	IncidentNumber string // 8 digits, external report number
	IncidentDate   time.Time
	NatureID       string
	NatureName     string
	Points         decimal.Decimal
	Status         Status
	Notes          string

	// ConsumedBy links the entry to the allocation that spent it.
	// Empty means the entry is free.
	ConsumedBy string

	// Audit trail
	AuditedBy       string
	AuditedAt       *time.Time
	RejectionReason string

	CreatedAt time.Time
}

// Available reports whether the entry can participate in a FIFO walk.
func (e Entry) Available() bool {
	return (e.Status == StatusApproved || e.Status == StatusPending) && e.ConsumedBy == ""
}

// =============================================================================
// NATURE - Incident category with its point value
// =============================================================================

type Nature struct {
	ID     string
	Name   string
	Points decimal.Decimal
	Active bool
}

// DefaultNatures is the seed catalogue of qualifying incident categories.
func DefaultNatures() []Nature {
	return []Nature{
		{ID: "1", Name: "Prisão em flagrante – homicídio/latrocínio", Points: decimal.NewFromInt(50), Active: true},
		{ID: "2", Name: "Estatuto do Desarmamento", Points: decimal.NewFromInt(40), Active: true},
		{ID: "3", Name: "Roubo/Furto de celular", Points: decimal.NewFromInt(40), Active: true},
		{ID: "4", Name: "Tráfico de drogas", Points: decimal.NewFromInt(30), Active: true},
		{ID: "5", Name: "Crimes sexuais", Points: decimal.NewFromInt(30), Active: true},
		{ID: "6", Name: "Embriaguez ao volante", Points: decimal.NewFromInt(15), Active: true},
		{ID: "7", Name: "Foragido recapturado", Points: decimal.NewFromInt(10), Active: true},
		{ID: "8", Name: "TCO usuário de drogas", Points: decimal.NewFromInt(2), Active: true},
	}
}

// =============================================================================
// STORE - Repository interface owned by the ledger
// =============================================================================

// EntryStore persists ledger entries as a flat id-keyed collection.
// Implementations must be safe for concurrent use; the service layers its
// own per-user mutual exclusion for check-then-act sequences on top.
type EntryStore interface {
	// InsertEntry adds a new entry. Fails if the id exists.
	InsertEntry(ctx context.Context, e Entry) error

	// UpdateEntry replaces an existing entry record.
	UpdateEntry(ctx context.Context, e Entry) error

	// GetEntry returns an entry by id.
	GetEntry(ctx context.Context, id string) (Entry, error)

	// ListEntriesByUser returns every entry owned by a user, in
	// insertion order.
	ListEntriesByUser(ctx context.Context, userID string) ([]Entry, error)

	// ListEntriesByIncident returns every entry claiming an incident
	// number, across all users.
	ListEntriesByIncident(ctx context.Context, incidentNumber string) ([]Entry, error)

	// ListEntriesConsumedBy returns the entries linked to an allocation.
	ListEntriesConsumedBy(ctx context.Context, allocationID string) ([]Entry, error)
}

// NatureStore persists the incident category catalogue.
type NatureStore interface {
	InsertNature(ctx context.Context, n Nature) error
	UpdateNature(ctx context.Context, n Nature) error
	GetNature(ctx context.Context, id string) (Nature, error)
	ListNatures(ctx context.Context) ([]Nature, error)
}
