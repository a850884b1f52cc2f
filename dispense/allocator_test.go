package dispense_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardia/roster-engine/calendar"
	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/cpc"
	"github.com/guardia/roster-engine/dispense"
	"github.com/guardia/roster-engine/ledger"
	"github.com/guardia/roster-engine/roster"
	"github.com/guardia/roster-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// The default rotation anchors ALPHA on 2026-01-02 with a four-day cycle,
// so ALPHA works Jan 2, 6, 10, 14... and BRAVO Jan 3, 7, 11, 15...
var (
	alphaWeekday = time.Date(2026, time.January, 14, 0, 0, 0, 0, time.UTC) // Wednesday
	alphaWeekend = time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC) // Saturday
	bravoWeekday = time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC) // Thursday
)

type fixture struct {
	store    *memory.Store
	settings *config.Settings
	ledger   *ledger.Service
	alloc    *dispense.Allocator
	queue    *cpc.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	settings := config.NewSettings(config.DefaultCampaign())
	oracle := calendar.NewOracle(config.DefaultParams(), store)
	led := ledger.NewService(store, store, store, settings)
	alloc := dispense.NewAllocator(store, store, led, oracle, settings)
	queue := cpc.NewQueue(store, settings, led, alloc)
	led.SetCanceller(alloc)
	alloc.SetTurnChecker(queue)

	for _, n := range ledger.DefaultNatures() {
		require.NoError(t, store.InsertNature(context.Background(), n))
	}
	return &fixture{store: store, settings: settings, ledger: led, alloc: alloc, queue: queue}
}

var officerSeq int

func (f *fixture) addOfficer(t *testing.T, team roster.Team, rank string, seniorityPos int) roster.User {
	t.Helper()
	officerSeq++
	u := roster.User{
		ID:           fmt.Sprintf("user-%03d", officerSeq),
		Name:         fmt.Sprintf("OFFICER %03d", officerSeq),
		WarName:      fmt.Sprintf("OFF%03d", officerSeq),
		Matricula:    fmt.Sprintf("%05d", 10000+officerSeq),
		Rank:         rank,
		Team:         team,
		BirthDate:    time.Date(1990, time.March, 3, 0, 0, 0, 0, time.UTC),
		Role:         roster.RoleOfficer,
		Status:       roster.UserActive,
		SeniorityPos: seniorityPos,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, f.store.InsertUser(context.Background(), u))
	return u
}

var grantSeq int

func (f *fixture) grantPoints(t *testing.T, userID string, points int64) {
	t.Helper()
	grantSeq++
	e := ledger.Entry{
		ID:             fmt.Sprintf("grant-%03d", grantSeq),
		UserID:         userID,
		IncidentNumber: fmt.Sprintf("8%07d", grantSeq),
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "1",
		Points:         decimal.NewFromInt(points),
		Status:         ledger.StatusApproved,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, f.store.InsertEntry(context.Background(), e))
}

func (f *fixture) enableCPC(t *testing.T, criterion config.Criterion, teams ...roster.Team) {
	t.Helper()
	require.NoError(t, f.settings.Update(config.Campaign{
		MaxDispensesPerDay: 2,
		ValidityDays:       90,
		CPCEnabled:         true,
		CPCCriterion:       criterion,
		CPCPeriodStart:     "2026-01",
		CPCPeriodEnd:       "2026-12",
		CPCTeamsEnabled:    teams,
	}))
}

// =============================================================================
// DAY AVAILABILITY GATES
// =============================================================================

func TestRequest_CreditOnWorkDay(t *testing.T) {
	f := newFixture(t)
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	alloc, err := f.alloc.Request(context.Background(), u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	require.NoError(t, err)

	assert.Equal(t, dispense.StatusReserved, alloc.Status)
	assert.True(t, alloc.PointsDebited.IsZero(), "credit mode never charges the ledger")
	assert.Equal(t, u.WarName, alloc.UserName)
}

func TestRequest_CapacityExhausted(t *testing.T) {
	// GIVEN: Two of two daily slots already taken
	// WHEN: A third officer requests the same date
	// THEN: ErrDayFull, and nothing is created

	f := newFixture(t)
	ctx := context.Background()
	first := f.addOfficer(t, roster.TeamAlpha, "SD", 10)
	second := f.addOfficer(t, roster.TeamAlpha, "SD", 11)
	third := f.addOfficer(t, roster.TeamAlpha, "SD", 12)

	_, err := f.alloc.Request(ctx, first.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	require.NoError(t, err)
	_, err = f.alloc.Request(ctx, second.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	require.NoError(t, err)

	_, err = f.alloc.Request(ctx, third.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	assert.ErrorIs(t, err, dispense.ErrDayFull)
	assert.ErrorIs(t, err, dispense.ErrDayUnavailable)

	status, err := f.alloc.StatusForDay(ctx, alphaWeekday)
	require.NoError(t, err)
	assert.Equal(t, 2, status.SlotsTaken)
}

func TestRequest_BlockedDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	require.NoError(t, f.alloc.BlockDay(ctx, alphaWeekday))

	_, err := f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	assert.ErrorIs(t, err, dispense.ErrDayBlocked)

	var dayErr *dispense.DayUnavailableError
	require.ErrorAs(t, err, &dayErr)
	assert.True(t, calendar.SameDay(alphaWeekday, dayErr.Date))
}

func TestRequest_OffDutyTeam(t *testing.T) {
	// An ALPHA officer cannot self-schedule a BRAVO work day.
	f := newFixture(t)
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	_, err := f.alloc.Request(context.Background(), u.ID, bravoWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	assert.ErrorIs(t, err, dispense.ErrOffDuty)
}

func TestRequest_OneSlotPerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	_, err := f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	require.NoError(t, err)

	_, err = f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	assert.ErrorIs(t, err, dispense.ErrAlreadyScheduled)
}

func TestRequest_OtherCategoryIsAdminOnly(t *testing.T) {
	// GIVEN: An on-duty officer on an open day
	// WHEN: They self-request an OUTROS slot
	// THEN: Refused; the category only enters through AdminGrant

	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	_, err := f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryOther, dispense.ModeCredit)
	assert.ErrorIs(t, err, dispense.ErrAdminOnlyCategory)

	allocs, err := f.store.ListAllocationsByDate(ctx, alphaWeekday)
	require.NoError(t, err)
	assert.Empty(t, allocs)

	_, err = f.alloc.AdminGrant(ctx, u.ID, alphaWeekday, dispense.CategoryOther, dispense.ModeCredit, "court summons")
	assert.NoError(t, err)
}

// =============================================================================
// DEBIT MODE - Ledger charging
// =============================================================================

func TestRequest_DebitChargesWeekdayCost(t *testing.T) {
	// GIVEN: An officer holding 150 points
	// WHEN: They take a weekday dispense in debit mode
	// THEN: 100 points are consumed, 50 remain

	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)
	f.grantPoints(t, u.ID, 150)

	alloc, err := f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeDebit)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(alloc.PointsDebited), "weekday cost, got %s", alloc.PointsDebited)

	balance, err := f.ledger.BalanceFor(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(balance), "got %s", balance)
}

func TestRequest_DebitChargesWeekendCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)
	f.grantPoints(t, u.ID, 140)

	alloc, err := f.alloc.Request(ctx, u.ID, alphaWeekend, dispense.CategoryProductivity, dispense.ModeDebit)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(140).Equal(alloc.PointsDebited))
}

func TestRequest_DebitInsufficientBalance(t *testing.T) {
	// A failed charge must leave no allocation behind.
	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)
	f.grantPoints(t, u.ID, 30)

	_, err := f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeDebit)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	status, err := f.alloc.StatusForDay(ctx, alphaWeekday)
	require.NoError(t, err)
	assert.Zero(t, status.SlotsTaken)

	balance, err := f.ledger.BalanceFor(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30).Equal(balance), "balance untouched")
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_RefundsDebit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)
	f.grantPoints(t, u.ID, 100)

	alloc, err := f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeDebit)
	require.NoError(t, err)

	balance, err := f.ledger.BalanceFor(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, balance.IsZero())

	require.NoError(t, f.alloc.Cancel(ctx, alloc.ID, "sgt-admin"))

	balance, err = f.ledger.BalanceFor(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(balance), "refund restores the full charge")

	cancelled, err := f.store.GetAllocation(ctx, alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, dispense.StatusCancelled, cancelled.Status)
}

func TestCancel_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	alloc, err := f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	require.NoError(t, err)

	require.NoError(t, f.alloc.Cancel(ctx, alloc.ID, "sgt-admin"))
	require.NoError(t, f.alloc.Cancel(ctx, alloc.ID, "sgt-admin"))
}

func TestCancel_UnknownAllocation(t *testing.T) {
	f := newFixture(t)
	err := f.alloc.Cancel(context.Background(), "nope", "sgt-admin")
	assert.ErrorIs(t, err, dispense.ErrAllocationNotFound)
}

func TestCancelAllForDay_SkipsBlockRecords(t *testing.T) {
	// GIVEN: Two allocations and an administrative block on a date
	// WHEN: Cancelling the whole day
	// THEN: Both allocations are cancelled and refunded; the block stays

	f := newFixture(t)
	ctx := context.Background()
	first := f.addOfficer(t, roster.TeamAlpha, "SD", 10)
	second := f.addOfficer(t, roster.TeamAlpha, "SD", 11)
	f.grantPoints(t, first.ID, 100)

	_, err := f.alloc.Request(ctx, first.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeDebit)
	require.NoError(t, err)
	_, err = f.alloc.Request(ctx, second.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	require.NoError(t, err)
	require.NoError(t, f.alloc.BlockDay(ctx, alphaWeekday))

	count, err := f.alloc.CancelAllForDay(ctx, alphaWeekday, "sgt-admin")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	balance, err := f.ledger.BalanceFor(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(balance))

	status, err := f.alloc.StatusForDay(ctx, alphaWeekday)
	require.NoError(t, err)
	assert.True(t, status.Blocked, "block record survives the sweep")
	assert.Zero(t, status.SlotsTaken)
}

// =============================================================================
// DAY BLOCKING
// =============================================================================

func TestBlockDay_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.alloc.BlockDay(ctx, alphaWeekday))
	require.NoError(t, f.alloc.BlockDay(ctx, alphaWeekday))

	allocs, err := f.store.ListAllocationsByDate(ctx, alphaWeekday)
	require.NoError(t, err)
	assert.Len(t, allocs, 1, "at most one active block record per date")
}

func TestUnblockDay_RestoresAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	require.NoError(t, f.alloc.BlockDay(ctx, alphaWeekday))
	require.NoError(t, f.alloc.UnblockDay(ctx, alphaWeekday))

	_, err := f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeCredit)
	assert.NoError(t, err)
}

// =============================================================================
// CPC GATES
// =============================================================================

func TestRequestCPC_DisabledCampaign(t *testing.T) {
	f := newFixture(t)
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	_, err := f.alloc.Request(context.Background(), u.ID, alphaWeekday, dispense.CategoryCPC, dispense.ModeCredit)
	assert.ErrorIs(t, err, dispense.ErrCPCDisabled)
	assert.ErrorIs(t, err, dispense.ErrQueueViolation)
}

func TestRequestCPC_TeamOutOfScope(t *testing.T) {
	f := newFixture(t)
	f.enableCPC(t, config.CriterionAlmanaque, roster.TeamBravo)
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	_, err := f.alloc.Request(context.Background(), u.ID, alphaWeekday, dispense.CategoryCPC, dispense.ModeCredit)
	assert.ErrorIs(t, err, dispense.ErrTeamNotInCampaign)
}

func TestRequestCPC_OutsideCampaignWindow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.settings.Update(config.Campaign{
		MaxDispensesPerDay: 2,
		ValidityDays:       90,
		CPCEnabled:         true,
		CPCCriterion:       config.CriterionAlmanaque,
		CPCPeriodStart:     "2026-03",
		CPCPeriodEnd:       "2026-06",
	}))
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	_, err := f.alloc.Request(context.Background(), u.ID, alphaWeekday, dispense.CategoryCPC, dispense.ModeCredit)
	assert.ErrorIs(t, err, dispense.ErrOutOfCampaignWindow)
}

func TestRequestCPC_HeadOfQueueSucceeds(t *testing.T) {
	// GIVEN: A sergeant ahead of a soldier in the ALPHA almanaque queue
	// WHEN: The sergeant takes a CPC slot
	// THEN: Free of charge, with queue positions recorded

	f := newFixture(t)
	f.enableCPC(t, config.CriterionAlmanaque)
	ctx := context.Background()
	sgt := f.addOfficer(t, roster.TeamAlpha, "1º SGT", 5)
	f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	alloc, err := f.alloc.Request(ctx, sgt.ID, alphaWeekday, dispense.CategoryCPC, dispense.ModeDebit)
	require.NoError(t, err)

	assert.Equal(t, dispense.ModeCredit, alloc.Mode, "CPC is always credit")
	assert.True(t, alloc.PointsDebited.IsZero())
	assert.Equal(t, config.CriterionAlmanaque, alloc.CPCCriterion)
	assert.Equal(t, 1, alloc.CPCOverallPos)
	assert.Equal(t, 1, alloc.CPCTeamPos)
}

func TestRequestCPC_OutOfTurn(t *testing.T) {
	f := newFixture(t)
	f.enableCPC(t, config.CriterionAlmanaque)
	f.addOfficer(t, roster.TeamAlpha, "1º SGT", 5)
	sd := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	_, err := f.alloc.Request(context.Background(), sd.ID, alphaWeekday, dispense.CategoryCPC, dispense.ModeCredit)
	assert.ErrorIs(t, err, dispense.ErrNotYourTurn)
}

func TestRequestCPC_TurnAdvancesAfterChoice(t *testing.T) {
	// Once the head takes a slot inside the window, the next officer is up.
	f := newFixture(t)
	f.enableCPC(t, config.CriterionAlmanaque)
	ctx := context.Background()
	sgt := f.addOfficer(t, roster.TeamAlpha, "1º SGT", 5)
	sd := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	_, err := f.alloc.Request(ctx, sgt.ID, alphaWeekday, dispense.CategoryCPC, dispense.ModeCredit)
	require.NoError(t, err)

	next := time.Date(2026, time.January, 22, 0, 0, 0, 0, time.UTC) // next ALPHA weekday
	_, err = f.alloc.Request(ctx, sd.ID, next, dispense.CategoryCPC, dispense.ModeCredit)
	assert.NoError(t, err)
}

func TestRequestCPC_CancelReturnsTheTurn(t *testing.T) {
	// Cancelling a CPC choice removes the officer from the chosen set, so
	// the queue re-derives with them back at the head.
	f := newFixture(t)
	f.enableCPC(t, config.CriterionAlmanaque)
	ctx := context.Background()
	sgt := f.addOfficer(t, roster.TeamAlpha, "1º SGT", 5)
	f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	alloc, err := f.alloc.Request(ctx, sgt.ID, alphaWeekday, dispense.CategoryCPC, dispense.ModeCredit)
	require.NoError(t, err)
	require.NoError(t, f.alloc.Cancel(ctx, alloc.ID, "sgt-admin"))

	myTurn, err := f.queue.IsTurn(ctx, sgt.ID)
	require.NoError(t, err)
	assert.True(t, myTurn)
}

// =============================================================================
// ADMIN GRANT
// =============================================================================

func TestAdminGrant_OverridesOffDuty(t *testing.T) {
	f := newFixture(t)
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	alloc, err := f.alloc.AdminGrant(context.Background(), u.ID, bravoWeekday, dispense.CategoryOther, dispense.ModeCredit, "medical leave swap")
	require.NoError(t, err)

	assert.Equal(t, dispense.StatusApproved, alloc.Status, "grants land approved")
	assert.True(t, alloc.ManualRegistration)
	assert.Equal(t, "medical leave swap", alloc.Notes)
}

func TestAdminGrant_CPCSkipsTurnGate(t *testing.T) {
	// Command may grant CPC out of queue order; it is still free.
	f := newFixture(t)
	f.enableCPC(t, config.CriterionAlmanaque)
	f.addOfficer(t, roster.TeamAlpha, "1º SGT", 5)
	sd := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	alloc, err := f.alloc.AdminGrant(context.Background(), sd.ID, alphaWeekday, dispense.CategoryCPC, dispense.ModeDebit, "")
	require.NoError(t, err)
	assert.Equal(t, dispense.ModeCredit, alloc.Mode)
	assert.True(t, alloc.PointsDebited.IsZero())
}

func TestAdminGrant_StillRespectsBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	require.NoError(t, f.alloc.BlockDay(ctx, alphaWeekday))

	_, err := f.alloc.AdminGrant(ctx, u.ID, alphaWeekday, dispense.CategoryOther, dispense.ModeCredit, "")
	assert.ErrorIs(t, err, dispense.ErrDayBlocked)
}

func TestAdminGrant_StillRespectsCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.addOfficer(t, roster.TeamAlpha, "SD", 10)
	second := f.addOfficer(t, roster.TeamAlpha, "SD", 11)
	third := f.addOfficer(t, roster.TeamAlpha, "SD", 12)

	_, err := f.alloc.AdminGrant(ctx, first.ID, alphaWeekday, dispense.CategoryOther, dispense.ModeCredit, "")
	require.NoError(t, err)
	_, err = f.alloc.AdminGrant(ctx, second.ID, alphaWeekday, dispense.CategoryOther, dispense.ModeCredit, "")
	require.NoError(t, err)

	_, err = f.alloc.AdminGrant(ctx, third.ID, alphaWeekday, dispense.CategoryOther, dispense.ModeCredit, "")
	assert.ErrorIs(t, err, dispense.ErrDayFull)
}

// =============================================================================
// AUDIT-REJECT CASCADE - Full stack
// =============================================================================

func TestAuditReject_CascadesThroughAllocator(t *testing.T) {
	// GIVEN: A dispense paid with points from a still-pending claim
	// WHEN: The auditor rejects that claim
	// THEN: The allocation is cancelled and the slot freed

	f := newFixture(t)
	ctx := context.Background()
	u := f.addOfficer(t, roster.TeamAlpha, "SD", 10)

	entry, err := f.ledger.Submit(ctx, ledger.Submission{
		UserID:         u.ID,
		IncidentNumber: "77777777",
		IncidentDate:   time.Now().AddDate(0, 0, -1),
		NatureID:       "1", // 50 points
	})
	require.NoError(t, err)
	f.grantPoints(t, u.ID, 50) // top up to the weekday cost

	alloc, err := f.alloc.Request(ctx, u.ID, alphaWeekday, dispense.CategoryProductivity, dispense.ModeDebit)
	require.NoError(t, err)

	_, err = f.ledger.Audit(ctx, entry.ID, ledger.DecisionReject, "report voided", "sgt-admin")
	require.NoError(t, err)

	cancelled, err := f.store.GetAllocation(ctx, alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, dispense.StatusCancelled, cancelled.Status)

	status, err := f.alloc.StatusForDay(ctx, alphaWeekday)
	require.NoError(t, err)
	assert.Zero(t, status.SlotsTaken)
}
