/*
service.go - Ledger operations

OPERATIONS:
  Submit      Record a new incident claim (validates format + claim caps;
              claims older than the validity window arrive Expired with
              zero points, kept for audit visibility).
  Audit       Pending -> Approved, or Pending -> Rejected (reason
              required). Rejecting a consumed entry cascade-cancels the
              linked allocation.
  BalanceFor  Sum of points over available entries.
  Consume     All-or-nothing FIFO walk marking entries consumed, splitting
              the last one touched if it overshoots.
  Release     Unlink every entry consumed by an allocation (refund).
  ApplyExpirationRelease
              Re-validate a specific expired incident for a specific
              officer, restoring its category points.

CONCURRENCY:
  Balance checks and FIFO walks are check-then-act sequences, so every
  mutating path for one officer serializes on a per-user mutex. The store
  underneath only needs to be individually thread-safe.
*/
package ledger

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/release"
	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// SERVICE
// =============================================================================

// Canceller cancels an allocation. The dispense allocator implements it;
// the interface breaks the package cycle the audit cascade would create.
type Canceller interface {
	Cancel(ctx context.Context, allocationID, actor string) error
}

type Service struct {
	Store    EntryStore
	Natures  NatureStore
	Users    roster.UserStore
	Settings *config.Settings

	canceller Canceller

	mu      sync.Mutex
	userMus map[string]*sync.Mutex
}

func NewService(store EntryStore, natures NatureStore, users roster.UserStore, settings *config.Settings) *Service {
	return &Service{
		Store:    store,
		Natures:  natures,
		Users:    users,
		Settings: settings,
		userMus:  make(map[string]*sync.Mutex),
	}
}

// SetCanceller wires the allocator in after construction (the allocator
// depends on this service, so the link cannot be set in the constructor).
func (s *Service) SetCanceller(c Canceller) { s.canceller = c }

// userLock returns the mutex serializing ledger mutations for one officer.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.userMus[userID]
	if !ok {
		m = &sync.Mutex{}
		s.userMus[userID] = m
	}
	return m
}

// =============================================================================
// SUBMIT
// =============================================================================

var incidentPattern = regexp.MustCompile(`^\d{8}$`)

// maxClaimants is the system-wide cap on distinct officers claiming the
// same incident number.
const maxClaimants = 3

// Submission is the input to Submit. The matricula is not part of it:
// Submit resolves the officer by id and stamps the entry from the record.
type Submission struct {
	UserID         string
	IncidentNumber string
	IncidentDate   time.Time
	NatureID       string
	Notes          string
}

// Submit records a new incident claim. Claims whose incident date is older
// than the validity window are stored Expired with zero points: the claim
// stays visible for audit, but earns nothing unless an admin later applies
// an expiration release.
func (s *Service) Submit(ctx context.Context, sub Submission) (Entry, error) {
	if !incidentPattern.MatchString(sub.IncidentNumber) {
		return Entry{}, fmt.Errorf("%w: incident number must be exactly 8 digits", ErrValidation)
	}
	if sub.IncidentDate.IsZero() {
		return Entry{}, fmt.Errorf("%w: incident date is required", ErrValidation)
	}
	if sub.IncidentDate.After(time.Now()) {
		return Entry{}, fmt.Errorf("%w: incident date is in the future", ErrValidation)
	}

	user, err := s.Users.GetUser(ctx, sub.UserID)
	if err != nil {
		return Entry{}, err
	}

	nature, err := s.Natures.GetNature(ctx, sub.NatureID)
	if err != nil {
		return Entry{}, err
	}
	if !nature.Active {
		return Entry{}, fmt.Errorf("%w: nature %q is disabled", ErrValidation, nature.Name)
	}

	claims, err := s.Store.ListEntriesByIncident(ctx, sub.IncidentNumber)
	if err != nil {
		return Entry{}, err
	}
	for _, c := range claims {
		if c.UserID == sub.UserID {
			return Entry{}, &DuplicateIncidentError{IncidentNumber: sub.IncidentNumber, UserID: sub.UserID, SameUser: true}
		}
	}
	if len(claims) >= maxClaimants {
		return Entry{}, &DuplicateIncidentError{IncidentNumber: sub.IncidentNumber, GlobalClaims: maxClaimants}
	}

	validity := s.Settings.Campaign().ValidityDays
	age := int(time.Since(sub.IncidentDate).Hours() / 24)
	expired := age > validity

	entry := Entry{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Matricula:      user.Matricula,
		IncidentNumber: sub.IncidentNumber,
		IncidentDate:   sub.IncidentDate,
		NatureID:       nature.ID,
		NatureName:     nature.Name,
		Points:         nature.Points,
		Status:         StatusPending,
		Notes:          sub.Notes,
		CreatedAt:      time.Now().UTC(),
	}
	if expired {
		entry.Status = StatusExpired
		entry.Points = decimal.Zero
	}

	if err := s.Store.InsertEntry(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// =============================================================================
// AUDIT
// =============================================================================

type Decision string

const (
	DecisionApprove Decision = "APPROVED"
	DecisionReject  Decision = "REJECTED"
)

// Audit resolves a pending entry. Rejection requires a reason and, when
// the entry is already linked to an allocation, cascade-cancels it through
// the wired Canceller.
//
// The cascade runs before the owner's lock is taken: Cancel loops back
// into Release, which locks the same officer, and the mutex is not
// reentrant. The entry is re-read under the lock before mutating.
func (s *Service) Audit(ctx context.Context, entryID string, decision Decision, reason, auditor string) (Entry, error) {
	entry, err := s.Store.GetEntry(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status != StatusPending {
		return Entry{}, fmt.Errorf("%w: entry is %s, only pending entries can be audited", ErrInvalidTransition, entry.Status)
	}

	switch decision {
	case DecisionApprove:
	case DecisionReject:
		if reason == "" {
			return Entry{}, fmt.Errorf("%w: rejection requires a reason", ErrValidation)
		}
		if entry.ConsumedBy != "" && s.canceller != nil {
			if err := s.canceller.Cancel(ctx, entry.ConsumedBy, auditor); err != nil {
				return Entry{}, fmt.Errorf("cascade-cancel allocation %s: %w", entry.ConsumedBy, err)
			}
		}
	default:
		return Entry{}, fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
	}

	lock := s.userLock(entry.UserID)
	lock.Lock()
	defer lock.Unlock()

	entry, err = s.Store.GetEntry(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.Status != StatusPending {
		return Entry{}, fmt.Errorf("%w: entry is %s, only pending entries can be audited", ErrInvalidTransition, entry.Status)
	}

	now := time.Now().UTC()
	if decision == DecisionApprove {
		entry.Status = StatusApproved
	} else {
		entry.Status = StatusRejected
		entry.RejectionReason = reason
	}
	entry.AuditedBy = auditor
	entry.AuditedAt = &now
	if err := s.Store.UpdateEntry(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// =============================================================================
// BALANCE & CONSUMPTION
// =============================================================================

// BalanceFor sums points over the officer's available entries.
func (s *Service) BalanceFor(ctx context.Context, userID string) (decimal.Decimal, error) {
	entries, err := s.Store.ListEntriesByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		if e.Available() {
			total = total.Add(e.Points)
		}
	}
	return total, nil
}

// AvailableEntries returns the officer's consumable entries in FIFO order.
func (s *Service) AvailableEntries(ctx context.Context, userID string) ([]Entry, error) {
	entries, err := s.Store.ListEntriesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var available []Entry
	for _, e := range entries {
		if e.Available() {
			available = append(available, e)
		}
	}
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].CreatedAt.Before(available[j].CreatedAt)
	})
	return available, nil
}

// Consume pays amount from the officer's oldest available entries,
// linking every touched entry to allocationID. All-or-nothing: when the
// available total is short, nothing is mutated and an
// InsufficientBalanceError is returned.
//
// The last entry touched splits when it overshoots: its points shrink to
// the exact remainder and are consumed, and the surplus lands in a new
// unconsumed entry stamped now (so it queues behind older untouched
// entries in later walks).
func (s *Service) Consume(ctx context.Context, userID string, amount decimal.Decimal, allocationID string) ([]Entry, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: negative consume amount", ErrValidation)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	available, err := s.AvailableEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, e := range available {
		total = total.Add(e.Points)
	}
	if total.LessThan(amount) {
		return nil, &InsufficientBalanceError{UserID: userID, Available: total, Requested: amount}
	}

	remaining := amount
	var touched []Entry
	for _, e := range available {
		if !remaining.IsPositive() {
			break
		}
		if e.Points.LessThanOrEqual(remaining) {
			e.ConsumedBy = allocationID
			if err := s.Store.UpdateEntry(ctx, e); err != nil {
				return nil, err
			}
			remaining = remaining.Sub(e.Points)
			touched = append(touched, e)
			continue
		}

		// Split: consume exactly the remainder, bank the surplus.
		surplus := e.Points.Sub(remaining)
		e.Points = remaining
		e.ConsumedBy = allocationID
		if err := s.Store.UpdateEntry(ctx, e); err != nil {
			return nil, err
		}
		touched = append(touched, e)

		surplusEntry := e
		surplusEntry.ID = uuid.NewString()
		surplusEntry.Points = surplus
		surplusEntry.ConsumedBy = ""
		surplusEntry.CreatedAt = time.Now().UTC()
		if err := s.Store.InsertEntry(ctx, surplusEntry); err != nil {
			return nil, err
		}
		remaining = decimal.Zero
	}

	return touched, nil
}

// Release unlinks every entry consumed by an allocation, restoring their
// availability. Split entries are not re-merged; the surplus entry created
// at split time remains separate permanently.
//
// The walk runs under the owner's lock so a release cannot interleave
// with a FIFO consume for the same officer. An allocation consumes
// entries of exactly one officer, so the first entry identifies the lock.
func (s *Service) Release(ctx context.Context, allocationID string) error {
	entries, err := s.Store.ListEntriesConsumedBy(ctx, allocationID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	lock := s.userLock(entries[0].UserID)
	lock.Lock()
	defer lock.Unlock()

	entries, err = s.Store.ListEntriesConsumedBy(ctx, allocationID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		e.ConsumedBy = ""
		if err := s.Store.UpdateEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// EXPIRATION RELEASE
// =============================================================================

// ApplyExpirationRelease re-validates the officer's expired claim on an
// incident number: points are restored from the release's category and the
// entry returns to Pending for a fresh audit.
func (s *Service) ApplyExpirationRelease(ctx context.Context, rel release.ExpirationRelease) (Entry, error) {
	user, err := s.Users.GetUserByMatricula(ctx, rel.Matricula)
	if err != nil {
		return Entry{}, err
	}

	claims, err := s.Store.ListEntriesByIncident(ctx, rel.IncidentNumber)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range claims {
		if e.UserID != user.ID || e.Status != StatusExpired {
			continue
		}
		nature, err := s.Natures.GetNature(ctx, e.NatureID)
		if err != nil {
			return Entry{}, err
		}
		e.Points = nature.Points
		e.Status = StatusPending
		if err := s.Store.UpdateEntry(ctx, e); err != nil {
			return Entry{}, err
		}
		return e, nil
	}
	return Entry{}, fmt.Errorf("%w: no expired claim on incident %s for matricula %s",
		ErrEntryNotFound, rel.IncidentNumber, rel.Matricula)
}
