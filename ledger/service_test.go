package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/ledger"
	"github.com/guardia/roster-engine/release"
	"github.com/guardia/roster-engine/roster"
	"github.com/guardia/roster-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) (*ledger.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	settings := config.NewSettings(config.DefaultCampaign())
	svc := ledger.NewService(store, store, store, settings)

	for _, n := range ledger.DefaultNatures() {
		require.NoError(t, store.InsertNature(context.Background(), n))
	}
	return svc, store
}

func newTestUser(t *testing.T, store *memory.Store, matricula string) roster.User {
	t.Helper()
	u := roster.User{
		ID:        "user-" + matricula,
		Name:      "OFFICER " + matricula,
		WarName:   "OFFICER" + matricula,
		Matricula: matricula,
		Rank:      "SD",
		Team:      roster.TeamAlpha,
		Role:      roster.RoleOfficer,
		Status:    roster.UserActive,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.InsertUser(context.Background(), u))
	return u
}

var incidentSeq int

// approvedEntry inserts an approved, unconsumed entry with a controlled
// age so FIFO ordering is deterministic.
func approvedEntry(t *testing.T, store *memory.Store, userID, id string, points int64, age time.Duration) ledger.Entry {
	t.Helper()
	incidentSeq++
	e := ledger.Entry{
		ID:             id,
		UserID:         userID,
		IncidentNumber: fmt.Sprintf("9%07d", incidentSeq),
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "1",
		Points:         decimal.NewFromInt(points),
		Status:         ledger.StatusApproved,
		CreatedAt:      time.Now().Add(-age),
	}
	require.NoError(t, store.InsertEntry(context.Background(), e))
	return e
}

// =============================================================================
// SUBMISSION TESTS
// =============================================================================

func TestSubmit_ValidClaim(t *testing.T) {
	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")

	entry, err := svc.Submit(context.Background(), ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -3),
		NatureID:       "2",
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusPending, entry.Status)
	assert.True(t, decimal.NewFromInt(40).Equal(entry.Points), "points from nature catalogue")
	assert.Equal(t, u.Matricula, entry.Matricula, "matricula stamped from the roster record")
	assert.Empty(t, entry.ConsumedBy)
}

func TestSubmit_UnknownUser(t *testing.T) {
	// GIVEN: No roster record for the submitting id
	// WHEN: A claim is submitted
	// THEN: The lookup failure surfaces and nothing is persisted

	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, ledger.Submission{
		UserID:         "no-such-officer",
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "1",
	})
	assert.ErrorIs(t, err, roster.ErrUserNotFound)

	claims, err := store.ListEntriesByIncident(ctx, "12345678")
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestSubmit_RejectsMalformedIncidentNumber(t *testing.T) {
	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")

	for _, bad := range []string{"1234567", "123456789", "1234567a", ""} {
		_, err := svc.Submit(context.Background(), ledger.Submission{
			UserID:         u.ID,
			IncidentNumber: bad,
			IncidentDate:   time.Now().AddDate(0, 0, -1),
			NatureID:       "1",
		})
		assert.ErrorIs(t, err, ledger.ErrValidation, "incident number %q", bad)
	}
}

func TestSubmit_RejectsFutureIncidentDate(t *testing.T) {
	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")

	_, err := svc.Submit(context.Background(), ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, 2),
		NatureID:       "1",
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestSubmit_DuplicatePerUser(t *testing.T) {
	// GIVEN: An officer already claimed incident 12345678
	// WHEN: The same officer claims it again
	// THEN: Rejected, even though the global cap is not reached

	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	sub := ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "1",
	}
	_, err := svc.Submit(ctx, sub)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, sub)
	assert.ErrorIs(t, err, ledger.ErrDuplicateIncident)

	var dup *ledger.DuplicateIncidentError
	require.ErrorAs(t, err, &dup)
	assert.True(t, dup.SameUser)
}

func TestSubmit_GlobalClaimantCap(t *testing.T) {
	// GIVEN: Three different officers claimed the same incident
	// WHEN: A fourth officer claims it
	// THEN: Rejected by the global cap

	svc, store := newTestService(t)
	ctx := context.Background()

	for i, m := range []string{"11111", "22222", "33333"} {
		u := newTestUser(t, store, m)
		_, err := svc.Submit(ctx, ledger.Submission{
			UserID:         u.ID,
			IncidentNumber: "12345678",
			IncidentDate:   time.Now().AddDate(0, 0, -1),
			NatureID:       "1",
		})
		require.NoError(t, err, "claimant %d", i+1)
	}

	fourth := newTestUser(t, store, "44444")
	_, err := svc.Submit(ctx, ledger.Submission{
		UserID:         fourth.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "1",
	})
	assert.ErrorIs(t, err, ledger.ErrDuplicateIncident)

	var dup *ledger.DuplicateIncidentError
	require.ErrorAs(t, err, &dup)
	assert.False(t, dup.SameUser)
}

func TestSubmit_StaleClaimArrivesExpired(t *testing.T) {
	// GIVEN: An incident older than the 90-day validity window
	// WHEN: Submitted
	// THEN: Stored Expired with zero points; it earns nothing

	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")

	entry, err := svc.Submit(context.Background(), ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -120),
		NatureID:       "1",
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusExpired, entry.Status)
	assert.True(t, entry.Points.IsZero())

	balance, err := svc.BalanceFor(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

// =============================================================================
// AUDIT TESTS
// =============================================================================

func TestAudit_Approve(t *testing.T) {
	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	entry, err := svc.Submit(ctx, ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "1",
	})
	require.NoError(t, err)

	audited, err := svc.Audit(ctx, entry.ID, ledger.DecisionApprove, "", "sgt-admin")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, audited.Status)
	assert.Equal(t, "sgt-admin", audited.AuditedBy)
	require.NotNil(t, audited.AuditedAt)
}

func TestAudit_RejectRequiresReason(t *testing.T) {
	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	entry, err := svc.Submit(ctx, ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "1",
	})
	require.NoError(t, err)

	_, err = svc.Audit(ctx, entry.ID, ledger.DecisionReject, "", "sgt-admin")
	assert.ErrorIs(t, err, ledger.ErrValidation)

	rejected, err := svc.Audit(ctx, entry.ID, ledger.DecisionReject, "duplicate report", "sgt-admin")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRejected, rejected.Status)
	assert.Equal(t, "duplicate report", rejected.RejectionReason)
}

func TestAudit_OnlyPendingEntries(t *testing.T) {
	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	entry, err := svc.Submit(ctx, ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "1",
	})
	require.NoError(t, err)

	_, err = svc.Audit(ctx, entry.ID, ledger.DecisionApprove, "", "sgt-admin")
	require.NoError(t, err)

	_, err = svc.Audit(ctx, entry.ID, ledger.DecisionApprove, "", "sgt-admin")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

// recordingCanceller captures cascade-cancel calls and releases the link
// the way the real allocator does.
type recordingCanceller struct {
	svc       *ledger.Service
	cancelled []string
}

func (c *recordingCanceller) Cancel(ctx context.Context, allocationID, actor string) error {
	c.cancelled = append(c.cancelled, allocationID)
	return c.svc.Release(ctx, allocationID)
}

func TestAudit_RejectConsumedEntryCascadesToAllocation(t *testing.T) {
	// GIVEN: A pending entry already consumed by an allocation
	// WHEN: The auditor rejects it
	// THEN: The allocation is cancelled through the wired Canceller and
	//       the entry ends Rejected with no consumption link

	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	canceller := &recordingCanceller{svc: svc}
	svc.SetCanceller(canceller)

	entry, err := svc.Submit(ctx, ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "8", // 2 points
	})
	require.NoError(t, err)

	// Pending entries are spendable; consume it.
	_, err = svc.Consume(ctx, u.ID, decimal.NewFromInt(2), "alloc-1")
	require.NoError(t, err)

	rejected, err := svc.Audit(ctx, entry.ID, ledger.DecisionReject, "report voided", "sgt-admin")
	require.NoError(t, err)

	assert.Equal(t, []string{"alloc-1"}, canceller.cancelled)
	assert.Equal(t, ledger.StatusRejected, rejected.Status)
	assert.Empty(t, rejected.ConsumedBy)
}

// =============================================================================
// CONSUMPTION TESTS
// =============================================================================

func TestConsume_FIFOWithSplit(t *testing.T) {
	// GIVEN: Entries of 40, 30, 50 points, oldest first
	// WHEN: Consuming 50
	// THEN: The 40 is fully consumed, the 30 splits into 10 consumed +
	//       20 banked, and the 50 is untouched

	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	approvedEntry(t, store, u.ID, "e-40", 40, 3*time.Hour)
	approvedEntry(t, store, u.ID, "e-30", 30, 2*time.Hour)
	approvedEntry(t, store, u.ID, "e-50", 50, time.Hour)

	touched, err := svc.Consume(ctx, u.ID, decimal.NewFromInt(50), "alloc-1")
	require.NoError(t, err)
	require.Len(t, touched, 2)

	first, err := store.GetEntry(ctx, "e-40")
	require.NoError(t, err)
	assert.Equal(t, "alloc-1", first.ConsumedBy)
	assert.True(t, decimal.NewFromInt(40).Equal(first.Points))

	second, err := store.GetEntry(ctx, "e-30")
	require.NoError(t, err)
	assert.Equal(t, "alloc-1", second.ConsumedBy)
	assert.True(t, decimal.NewFromInt(10).Equal(second.Points), "split remainder, got %s", second.Points)

	third, err := store.GetEntry(ctx, "e-50")
	require.NoError(t, err)
	assert.Empty(t, third.ConsumedBy, "newest entry untouched")

	// The 20-point surplus exists as a fresh unconsumed entry.
	entries, err := store.ListEntriesByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	var surplus *ledger.Entry
	for i := range entries {
		if entries[i].ID != "e-40" && entries[i].ID != "e-30" && entries[i].ID != "e-50" {
			surplus = &entries[i]
		}
	}
	require.NotNil(t, surplus)
	assert.True(t, decimal.NewFromInt(20).Equal(surplus.Points))
	assert.Empty(t, surplus.ConsumedBy)
	assert.Equal(t, second.IncidentNumber, surplus.IncidentNumber, "surplus keeps the source claim's incident")
}

func TestConsume_ConservesTotalPoints(t *testing.T) {
	// GIVEN: 120 points across three entries
	// WHEN: Consuming 50
	// THEN: Total points across all rows is still 120

	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	approvedEntry(t, store, u.ID, "e-40", 40, 3*time.Hour)
	approvedEntry(t, store, u.ID, "e-30", 30, 2*time.Hour)
	approvedEntry(t, store, u.ID, "e-50", 50, time.Hour)

	_, err := svc.Consume(ctx, u.ID, decimal.NewFromInt(50), "alloc-1")
	require.NoError(t, err)

	entries, err := store.ListEntriesByUser(ctx, u.ID)
	require.NoError(t, err)
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Points)
	}
	assert.True(t, decimal.NewFromInt(120).Equal(total), "conservation, got %s", total)

	balance, err := svc.BalanceFor(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(70).Equal(balance), "120 - 50 spendable, got %s", balance)
}

func TestConsume_ExactMatchDoesNotSplit(t *testing.T) {
	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	approvedEntry(t, store, u.ID, "e-50", 50, time.Hour)

	touched, err := svc.Consume(ctx, u.ID, decimal.NewFromInt(50), "alloc-1")
	require.NoError(t, err)
	require.Len(t, touched, 1)

	entries, err := store.ListEntriesByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no surplus entry created")
}

func TestConsume_InsufficientBalanceMutatesNothing(t *testing.T) {
	// GIVEN: 30 available points
	// WHEN: Consuming 100
	// THEN: InsufficientBalanceError, and the entry is untouched

	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	approvedEntry(t, store, u.ID, "e-30", 30, time.Hour)

	_, err := svc.Consume(ctx, u.ID, decimal.NewFromInt(100), "alloc-1")
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	var ib *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &ib)
	assert.True(t, decimal.NewFromInt(30).Equal(ib.Available))
	assert.True(t, decimal.NewFromInt(100).Equal(ib.Requested))

	e, err := store.GetEntry(ctx, "e-30")
	require.NoError(t, err)
	assert.Empty(t, e.ConsumedBy)
}

func TestConsume_ZeroAmountTouchesNothing(t *testing.T) {
	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")

	approvedEntry(t, store, u.ID, "e-30", 30, time.Hour)

	touched, err := svc.Consume(context.Background(), u.ID, decimal.Zero, "alloc-1")
	require.NoError(t, err)
	assert.Empty(t, touched)
}

func TestRelease_RestoresAvailability(t *testing.T) {
	// GIVEN: A consumption that split an entry
	// WHEN: The allocation is released
	// THEN: Consumed entries return to the pool; the split stays split

	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	approvedEntry(t, store, u.ID, "e-40", 40, 2*time.Hour)
	approvedEntry(t, store, u.ID, "e-30", 30, time.Hour)

	_, err := svc.Consume(ctx, u.ID, decimal.NewFromInt(50), "alloc-1")
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, "alloc-1"))

	balance, err := svc.BalanceFor(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(70).Equal(balance), "full balance restored, got %s", balance)

	entries, err := store.ListEntriesByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "split entries never re-merge")
}

func TestLedger_ConcurrentConsumeReleaseAudit(t *testing.T) {
	// GIVEN: One officer with a 100-point entry and a pending claim
	// WHEN: Consume/release cycles race against an approval
	// THEN: Conservation holds and every point survives the contention

	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	approvedEntry(t, store, u.ID, "e-100", 100, time.Hour)
	pending, err := svc.Submit(ctx, ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "2", // 40 points
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			allocID := fmt.Sprintf("alloc-%d", i)
			for j := 0; j < 20; j++ {
				if _, err := svc.Consume(ctx, u.ID, decimal.NewFromInt(60), allocID); err != nil {
					continue // another goroutine holds the points
				}
				if err := svc.Release(ctx, allocID); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := svc.Audit(ctx, pending.ID, ledger.DecisionApprove, "", "sgt-admin"); err != nil {
			t.Error(err)
		}
	}()
	wg.Wait()

	balance, err := svc.BalanceFor(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(140).Equal(balance), "no points lost or minted, got %s", balance)
}

// =============================================================================
// EXPIRATION RELEASE TESTS
// =============================================================================

func TestApplyExpirationRelease(t *testing.T) {
	// GIVEN: An expired claim worth nothing
	// WHEN: An admin applies an expiration release
	// THEN: The claim returns to Pending with its nature's points

	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")
	ctx := context.Background()

	entry, err := svc.Submit(ctx, ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "12345678",
		IncidentDate:   time.Now().AddDate(0, 0, -120),
		NatureID:       "2",
	})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusExpired, entry.Status)

	revived, err := svc.ApplyExpirationRelease(ctx, release.ExpirationRelease{
		ID:             "rel-1",
		Matricula:      u.Matricula,
		IncidentNumber: "12345678",
	})
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusPending, revived.Status)
	assert.True(t, decimal.NewFromInt(40).Equal(revived.Points), "nature points restored")
}

func TestApplyExpirationRelease_NoMatchingClaim(t *testing.T) {
	svc, store := newTestService(t)
	u := newTestUser(t, store, "11111")

	_, err := svc.ApplyExpirationRelease(context.Background(), release.ExpirationRelease{
		ID:             "rel-1",
		Matricula:      u.Matricula,
		IncidentNumber: "99999999",
	})
	assert.True(t, errors.Is(err, ledger.ErrEntryNotFound))
}
