/*
Package roster holds the personnel model: officers, teams, ranks, and the
seniority ordering ("almanaque") used by the CPC priority queue.

PURPOSE:
  Everything about WHO is in the unit lives here. The rest of the engine
  treats roster data as read-mostly input: the calendar maps dates to teams,
  the ledger keys entries by user id, and the CPC queue sorts officers by
  the rank/seniority ordering defined in this package.

KEY CONCEPTS:
  - Team: one of four fixed patrol teams on a 4-day rotation
  - Rank: total-ordered via a fixed weight table (higher = senior)
  - SeniorityPos: the officer's position in the unit almanaque; lower
    number means higher priority, used as tie-break after rank

DESIGN PRINCIPLES:
  1. No hard deletes: users referenced by ledger or allocation records are
     archived (Status BLOCKED), never removed, so audit history survives.
  2. Rank strings are normalized on the way in; legacy spellings
     ("1° SGT", "SUBTEN") collapse to the canonical form.

SEE ALSO:
  - cpc/queue.go: consumes the seniority ordering
  - ledger/entry.go: entries reference roster user ids
*/
package roster

import (
	"strings"
	"time"
)

// =============================================================================
// TEAMS - Fixed 4-team rotation
// =============================================================================

type Team string

const (
	TeamAlpha   Team = "ALPHA"
	TeamBravo   Team = "BRAVO"
	TeamCharlie Team = "CHARLIE"
	TeamDelta   Team = "DELTA"
)

// AllTeams returns the rotation order. The order is fixed per deployment:
// the shift oracle maps (days since reference) mod 4 through this slice.
func AllTeams() []Team {
	return []Team{TeamAlpha, TeamBravo, TeamCharlie, TeamDelta}
}

// ValidTeam reports whether t names one of the four patrol teams.
func ValidTeam(t Team) bool {
	switch t {
	case TeamAlpha, TeamBravo, TeamCharlie, TeamDelta:
		return true
	}
	return false
}

// =============================================================================
// RANKS - Total order via weight table
// =============================================================================

// rankWeights gives every rank a comparable weight. Higher weight = more
// senior. Officers first, then enlisted ranks in almanaque priority order.
var rankWeights = map[string]int{
	"CEL":     120,
	"TEN CEL": 110,
	"MAJ":     100,
	"CAP":     90,
	"1º TEN":  80,
	"2º TEN":  70,
	"SUB TEN": 60,
	"1º SGT":  50,
	"2º SGT":  40,
	"3º SGT":  30,
	"CB":      20,
	"SD":      10,
}

// RankWeight returns the seniority weight for a rank, 0 if unknown.
func RankWeight(rank string) int {
	return rankWeights[NormalizeRank(rank)]
}

// KnownRank reports whether the rank appears in the weight table.
func KnownRank(rank string) bool {
	_, ok := rankWeights[NormalizeRank(rank)]
	return ok
}

// NormalizeRank collapses legacy spellings to the canonical form
// ("1° SGT" and "1ºSGT" both become "1º SGT").
func NormalizeRank(rank string) string {
	raw := strings.ToUpper(strings.TrimSpace(rank))
	aliases := map[string]string{
		"1° SGT":  "1º SGT",
		"2° SGT":  "2º SGT",
		"3° SGT":  "3º SGT",
		"1ºSGT":   "1º SGT",
		"2ºSGT":   "2º SGT",
		"3ºSGT":   "3º SGT",
		"1° TEN":  "1º TEN",
		"2° TEN":  "2º TEN",
		"1ºTEN":   "1º TEN",
		"2ºTEN":   "2º TEN",
		"SUBTEN":  "SUB TEN",
		"SUB-TEN": "SUB TEN",
		"SUBTEN.": "SUB TEN",
	}
	if canonical, ok := aliases[raw]; ok {
		return canonical
	}
	return raw
}

// =============================================================================
// USER - Officer identity and attributes
// =============================================================================

type Role string

const (
	RoleOfficer Role = "OFFICER"
	RoleAdmin   Role = "ADM"
	RoleTI      Role = "TI"
)

type UserStatus string

const (
	UserActive  UserStatus = "ACTIVE"
	UserBlocked UserStatus = "BLOCKED"
)

type User struct {
	ID           string
	Name         string
	WarName      string
	Email        string
	Matricula    string // 5-digit service number, unique
	Rank         string
	Team         Team
	BirthDate    time.Time
	Phone        string
	Role         Role
	Status       UserStatus
	SeniorityPos int // almanaque position; lower = higher priority
	CreatedAt    time.Time
}

// IsAdmin reports whether the user may perform administrative operations.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleTI
}

// SeniorityLess orders two officers by the almanaque criterion:
// rank weight descending, then almanaque position ascending.
func SeniorityLess(a, b User) bool {
	wa, wb := RankWeight(a.Rank), RankWeight(b.Rank)
	if wa != wb {
		return wa > wb
	}
	return a.SeniorityPos < b.SeniorityPos
}
