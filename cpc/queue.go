/*
Package cpc derives the command-leave priority queue: the ordered wait
list of officers eligible for a free, command-authorized dispense slot in
the current campaign.

PURPOSE:
  The queue is never stored. It is recomputed on demand from three inputs:
  the roster (officers of the enabled teams), the campaign configuration
  (criterion and window), and the set of officers already holding an
  active CPC allocation dated inside the window. The officer at index 0 of
  their team's sorted list is authorized to choose; everyone else waits.

ORDERING CRITERIA:
  ALMANAQUE  rank weight descending, then seniority position ascending.
  RANKING    current point balance descending, almanaque tie-break.

SCOPE:
  Queues are always per team. The "all teams" admin view concatenates the
  per-team queues; it is presentation, not a unified queue.

SEE ALSO:
  - dispense/allocator.go: consults IsTurn before granting CPC
  - roster/types.go: SeniorityLess
*/
package cpc

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/roster"
)

// =============================================================================
// INPUT INTERFACES
// =============================================================================

// BalanceSource yields an officer's current point balance. Implemented by
// the ledger service.
type BalanceSource interface {
	BalanceFor(ctx context.Context, userID string) (decimal.Decimal, error)
}

// HoldSource yields the dates of every active CPC allocation per officer.
// Implemented by the dispense allocator.
type HoldSource interface {
	ActiveCPCHolds(ctx context.Context) (map[string][]time.Time, error)
}

// =============================================================================
// QUEUE
// =============================================================================

type Queue struct {
	Users    roster.UserStore
	Settings *config.Settings
	Balances BalanceSource
	Holds    HoldSource
}

func NewQueue(users roster.UserStore, settings *config.Settings, balances BalanceSource, holds HoldSource) *Queue {
	return &Queue{Users: users, Settings: settings, Balances: balances, Holds: holds}
}

// EligibleFor returns the ordered wait list for one team: its officers,
// minus anyone already holding an active CPC allocation dated inside the
// campaign window, sorted by the configured criterion.
func (q *Queue) EligibleFor(ctx context.Context, team roster.Team) ([]roster.User, error) {
	campaign := q.Settings.Campaign()
	if !campaign.CPCEnabled || !campaign.TeamEnabled(team) {
		return nil, nil
	}
	eligible, err := q.eligible(ctx, campaign)
	if err != nil {
		return nil, err
	}
	var teamQueue []roster.User
	for _, u := range eligible {
		if u.Team == team {
			teamQueue = append(teamQueue, u)
		}
	}
	return q.sorted(ctx, campaign, teamQueue)
}

// EligibleAll returns the concatenated per-team queues for the admin view,
// following the campaign's team order.
func (q *Queue) EligibleAll(ctx context.Context) ([]roster.User, error) {
	campaign := q.Settings.Campaign()
	if !campaign.CPCEnabled {
		return nil, nil
	}
	var all []roster.User
	for _, team := range campaign.EnabledTeams() {
		teamQueue, err := q.EligibleFor(ctx, team)
		if err != nil {
			return nil, err
		}
		all = append(all, teamQueue...)
	}
	return all, nil
}

// IsTurn reports whether the officer heads their team's queue.
func (q *Queue) IsTurn(ctx context.Context, userID string) (bool, error) {
	user, err := q.Users.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	teamQueue, err := q.EligibleFor(ctx, user.Team)
	if err != nil {
		return false, err
	}
	return len(teamQueue) > 0 && teamQueue[0].ID == userID, nil
}

// Positions returns the officer's 1-based position in the campaign-wide
// eligible ordering and in their team's queue, 0 when absent. Recorded on
// CPC allocations as audit metadata.
func (q *Queue) Positions(ctx context.Context, userID string) (overall, team int, err error) {
	user, err := q.Users.GetUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	campaign := q.Settings.Campaign()
	eligible, err := q.eligible(ctx, campaign)
	if err != nil {
		return 0, 0, err
	}
	sortedAll, err := q.sorted(ctx, campaign, eligible)
	if err != nil {
		return 0, 0, err
	}
	teamPos := 0
	for i, u := range sortedAll {
		if u.Team == user.Team {
			teamPos++
		}
		if u.ID == userID {
			return i + 1, teamPos, nil
		}
	}
	return 0, 0, nil
}

// =============================================================================
// DERIVATION HELPERS
// =============================================================================

// eligible returns in-scope officers not yet holding a campaign CPC slot.
func (q *Queue) eligible(ctx context.Context, campaign config.Campaign) ([]roster.User, error) {
	users, err := q.Users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	chosen, err := q.alreadyChosen(ctx, campaign)
	if err != nil {
		return nil, err
	}

	var eligible []roster.User
	for _, u := range users {
		if u.Role != roster.RoleOfficer || u.Status != roster.UserActive {
			continue
		}
		if !campaign.TeamEnabled(u.Team) {
			continue
		}
		if chosen[u.ID] {
			continue
		}
		eligible = append(eligible, u)
	}
	return eligible, nil
}

// alreadyChosen is the set of officers with an active CPC allocation dated
// inside the current campaign window. A cancelled allocation drops its
// officer from this set, so they re-enter the queue for future requests.
func (q *Queue) alreadyChosen(ctx context.Context, campaign config.Campaign) (map[string]bool, error) {
	holds, err := q.Holds.ActiveCPCHolds(ctx)
	if err != nil {
		return nil, err
	}
	chosen := make(map[string]bool)
	for userID, dates := range holds {
		for _, d := range dates {
			if campaign.InPeriod(d) {
				chosen[userID] = true
				break
			}
		}
	}
	return chosen, nil
}

// sorted orders officers by the campaign criterion. RANKING fetches every
// balance once, then sorts with the almanaque ordering as tie-break.
func (q *Queue) sorted(ctx context.Context, campaign config.Campaign, users []roster.User) ([]roster.User, error) {
	out := append([]roster.User(nil), users...)

	if campaign.CPCCriterion != config.CriterionRanking {
		sort.SliceStable(out, func(i, j int) bool {
			return roster.SeniorityLess(out[i], out[j])
		})
		return out, nil
	}

	balances := make(map[string]decimal.Decimal, len(out))
	for _, u := range out {
		b, err := q.Balances.BalanceFor(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		balances[u.ID] = b
	}
	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := balances[out[i].ID], balances[out[j].ID]
		if !bi.Equal(bj) {
			return bi.GreaterThan(bj)
		}
		return roster.SeniorityLess(out[i], out[j])
	})
	return out, nil
}
