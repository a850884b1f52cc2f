/*
Package memory provides the in-memory store (for testing/dev).

PURPOSE:
  One Store implements every repository interface the domain packages own:
  roster.UserStore, ledger.EntryStore, ledger.NatureStore,
  dispense.AllocationStore and release.Registry. Records live in id-keyed
  maps with a parallel insertion-order list, so List* methods return rows
  in the order they were written, matching the sqlite store's ordering.

CONCURRENCY:
  A single RWMutex guards all collections. The domain services layer their
  own per-user / per-date mutual exclusion on top for check-then-act
  sequences; the store only guarantees that individual calls are atomic.
*/
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/guardia/roster-engine/calendar"
	"github.com/guardia/roster-engine/dispense"
	"github.com/guardia/roster-engine/ledger"
	"github.com/guardia/roster-engine/release"
	"github.com/guardia/roster-engine/roster"
)

type Store struct {
	mu sync.RWMutex

	users     map[string]roster.User
	userOrder []string

	entries    map[string]ledger.Entry
	entryOrder []string

	natures     map[string]ledger.Nature
	natureOrder []string

	allocations map[string]dispense.Allocation
	allocOrder  []string

	expirationReleases []release.ExpirationRelease
	holidayOverrides   []release.HolidayOverride
	birthdayReleases   []release.BirthdayRelease
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]roster.User),
		entries:     make(map[string]ledger.Entry),
		natures:     make(map[string]ledger.Nature),
		allocations: make(map[string]dispense.Allocation),
	}
}

// =============================================================================
// USERS - roster.UserStore
// =============================================================================

func (s *Store) InsertUser(_ context.Context, u roster.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return roster.ErrDuplicateMatricula
	}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

func (s *Store) UpdateUser(_ context.Context, u roster.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return roster.ErrUserNotFound
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return roster.User{}, roster.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUserByMatricula(_ context.Context, matricula string) (roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.userOrder {
		if s.users[id].Matricula == matricula {
			return s.users[id], nil
		}
	}
	return roster.User{}, roster.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]roster.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		result = append(result, s.users[id])
	}
	return result, nil
}

// =============================================================================
// LEDGER ENTRIES - ledger.EntryStore
// =============================================================================

func (s *Store) InsertEntry(_ context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return ledger.ErrValidation
	}
	s.entries[e.ID] = e
	s.entryOrder = append(s.entryOrder, e.ID)
	return nil
}

func (s *Store) UpdateEntry(_ context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; !ok {
		return ledger.ErrEntryNotFound
	}
	s.entries[e.ID] = e
	return nil
}

func (s *Store) GetEntry(_ context.Context, id string) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return ledger.Entry{}, ledger.ErrEntryNotFound
	}
	return e, nil
}

func (s *Store) ListEntriesByUser(_ context.Context, userID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ledger.Entry
	for _, id := range s.entryOrder {
		if s.entries[id].UserID == userID {
			result = append(result, s.entries[id])
		}
	}
	return result, nil
}

func (s *Store) ListEntriesByIncident(_ context.Context, incidentNumber string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ledger.Entry
	for _, id := range s.entryOrder {
		if s.entries[id].IncidentNumber == incidentNumber {
			result = append(result, s.entries[id])
		}
	}
	return result, nil
}

func (s *Store) ListEntriesConsumedBy(_ context.Context, allocationID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ledger.Entry
	for _, id := range s.entryOrder {
		if s.entries[id].ConsumedBy == allocationID {
			result = append(result, s.entries[id])
		}
	}
	return result, nil
}

// =============================================================================
// NATURES - ledger.NatureStore
// =============================================================================

func (s *Store) InsertNature(_ context.Context, n ledger.Nature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.natures[n.ID]; ok {
		return ledger.ErrValidation
	}
	s.natures[n.ID] = n
	s.natureOrder = append(s.natureOrder, n.ID)
	return nil
}

func (s *Store) UpdateNature(_ context.Context, n ledger.Nature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.natures[n.ID]; !ok {
		return ledger.ErrNatureNotFound
	}
	s.natures[n.ID] = n
	return nil
}

func (s *Store) GetNature(_ context.Context, id string) (ledger.Nature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.natures[id]
	if !ok {
		return ledger.Nature{}, ledger.ErrNatureNotFound
	}
	return n, nil
}

func (s *Store) ListNatures(_ context.Context) ([]ledger.Nature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]ledger.Nature, 0, len(s.natureOrder))
	for _, id := range s.natureOrder {
		result = append(result, s.natures[id])
	}
	return result, nil
}

// =============================================================================
// ALLOCATIONS - dispense.AllocationStore
// =============================================================================

func (s *Store) InsertAllocation(_ context.Context, a dispense.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.allocations[a.ID]; ok {
		return fmt.Errorf("allocation %s already exists", a.ID)
	}
	s.allocations[a.ID] = a
	s.allocOrder = append(s.allocOrder, a.ID)
	return nil
}

func (s *Store) UpdateAllocation(_ context.Context, a dispense.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.allocations[a.ID]; !ok {
		return dispense.ErrAllocationNotFound
	}
	s.allocations[a.ID] = a
	return nil
}

func (s *Store) GetAllocation(_ context.Context, id string) (dispense.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.allocations[id]
	if !ok {
		return dispense.Allocation{}, dispense.ErrAllocationNotFound
	}
	return a, nil
}

func (s *Store) ListAllocationsByDate(_ context.Context, date time.Time) ([]dispense.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []dispense.Allocation
	for _, id := range s.allocOrder {
		if calendar.SameDay(s.allocations[id].Date, date) {
			result = append(result, s.allocations[id])
		}
	}
	return result, nil
}

func (s *Store) ListAllocationsByUser(_ context.Context, userID string) ([]dispense.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []dispense.Allocation
	for _, id := range s.allocOrder {
		if s.allocations[id].UserID == userID {
			result = append(result, s.allocations[id])
		}
	}
	return result, nil
}

func (s *Store) ListAllocationsByCategory(_ context.Context, cat dispense.Category) ([]dispense.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []dispense.Allocation
	for _, id := range s.allocOrder {
		if s.allocations[id].Category == cat {
			result = append(result, s.allocations[id])
		}
	}
	return result, nil
}

// =============================================================================
// RELEASE RECORDS - release.Registry
// =============================================================================

func (s *Store) InsertExpirationRelease(_ context.Context, r release.ExpirationRelease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expirationReleases = append(s.expirationReleases, r)
	return nil
}

func (s *Store) ListExpirationReleases(_ context.Context) ([]release.ExpirationRelease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]release.ExpirationRelease, len(s.expirationReleases))
	copy(result, s.expirationReleases)
	return result, nil
}

func (s *Store) DeleteExpirationRelease(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.expirationReleases {
		if r.ID == id {
			s.expirationReleases = append(s.expirationReleases[:i], s.expirationReleases[i+1:]...)
			return nil
		}
	}
	return release.ErrReleaseNotFound
}

func (s *Store) InsertHolidayOverride(_ context.Context, r release.HolidayOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidayOverrides = append(s.holidayOverrides, r)
	return nil
}

func (s *Store) HolidayOverrideFor(_ context.Context, date time.Time) (release.HolidayOverride, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.holidayOverrides {
		if calendar.SameDay(r.Date, date) {
			return r, true, nil
		}
	}
	return release.HolidayOverride{}, false, nil
}

func (s *Store) ListHolidayOverrides(_ context.Context) ([]release.HolidayOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]release.HolidayOverride, len(s.holidayOverrides))
	copy(result, s.holidayOverrides)
	return result, nil
}

func (s *Store) DeleteHolidayOverride(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.holidayOverrides {
		if r.ID == id {
			s.holidayOverrides = append(s.holidayOverrides[:i], s.holidayOverrides[i+1:]...)
			return nil
		}
	}
	return release.ErrReleaseNotFound
}

func (s *Store) InsertBirthdayRelease(_ context.Context, r release.BirthdayRelease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.birthdayReleases = append(s.birthdayReleases, r)
	return nil
}

func (s *Store) ListBirthdayReleases(_ context.Context) ([]release.BirthdayRelease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]release.BirthdayRelease, len(s.birthdayReleases))
	copy(result, s.birthdayReleases)
	return result, nil
}

func (s *Store) DeleteBirthdayRelease(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.birthdayReleases {
		if r.ID == id {
			s.birthdayReleases = append(s.birthdayReleases[:i], s.birthdayReleases[i+1:]...)
			return nil
		}
	}
	return release.ErrReleaseNotFound
}
