/*
seed.go - Demo data loader for testing and demonstrations

PURPOSE:

	Populates the store with a small realistic roster and a handful of
	incident claims so the ledger, dispense flow, and CPC queue can be
	exercised right after startup. Idempotent: skips rows whose matricula
	or incident number already exists.

DEMO ROSTER:

	JOÃO SILVA      SD      ALPHA    11111  pos 10
	MARIA OLIVEIRA  CB      BRAVO    22222  pos 5
	CARLOS LIMA     3º SGT  CHARLIE  33333  pos 3

USAGE VIA API:

	POST /api/seed

NOTE:

	Only use in development/demo environments.
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/guardia/roster-engine/ledger"
	"github.com/guardia/roster-engine/roster"
)

type seedUser struct {
	user   roster.User
	claims []seedClaim
}

type seedClaim struct {
	incidentNumber string
	daysAgo        int
	natureID       string
}

func demoRoster() []seedUser {
	return []seedUser{
		{
			user: roster.User{
				Name:         "JOÃO SILVA",
				WarName:      "SILVA",
				Email:        "joao.silva@example.com",
				Matricula:    "11111",
				Rank:         "SD",
				Team:         roster.TeamAlpha,
				BirthDate:    time.Date(1992, 5, 15, 0, 0, 0, 0, time.UTC),
				Role:         roster.RoleOfficer,
				SeniorityPos: 10,
			},
			claims: []seedClaim{
				{incidentNumber: "10000001", daysAgo: 10, natureID: "1"},
				{incidentNumber: "10000002", daysAgo: 25, natureID: "2"},
			},
		},
		{
			user: roster.User{
				Name:         "MARIA OLIVEIRA",
				WarName:      "OLIVEIRA",
				Email:        "maria.oliveira@example.com",
				Matricula:    "22222",
				Rank:         "CB",
				Team:         roster.TeamBravo,
				BirthDate:    time.Date(1988, 9, 3, 0, 0, 0, 0, time.UTC),
				Role:         roster.RoleOfficer,
				SeniorityPos: 5,
			},
			claims: []seedClaim{
				{incidentNumber: "10000003", daysAgo: 5, natureID: "3"},
			},
		},
		{
			user: roster.User{
				Name:         "CARLOS LIMA",
				WarName:      "LIMA",
				Email:        "carlos.lima@example.com",
				Matricula:    "33333",
				Rank:         "3º SGT",
				Team:         roster.TeamCharlie,
				BirthDate:    time.Date(1980, 1, 20, 0, 0, 0, 0, time.UTC),
				Role:         roster.RoleOfficer,
				SeniorityPos: 3,
			},
			claims: []seedClaim{
				{incidentNumber: "10000004", daysAgo: 40, natureID: "4"},
			},
		},
	}
}

// LoadSeedData populates the store with the demo roster and claims.
// POST /api/seed
func (h *Handler) LoadSeedData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	created, err := h.loadSeed(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load seed data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"users_created": created})
}

func (h *Handler) loadSeed(ctx context.Context) (int, error) {
	created := 0
	for _, su := range demoRoster() {
		u, err := h.Users.Register(ctx, su.user)
		if errors.Is(err, roster.ErrDuplicateMatricula) {
			u, err = h.Users.Store.GetUserByMatricula(ctx, su.user.Matricula)
			if err != nil {
				return created, err
			}
		} else if err != nil {
			return created, err
		} else {
			created++
		}

		for _, c := range su.claims {
			_, err := h.Ledger.Submit(ctx, ledger.Submission{
				UserID:         u.ID,
				IncidentNumber: c.incidentNumber,
				IncidentDate:   time.Now().AddDate(0, 0, -c.daysAgo),
				NatureID:       c.natureID,
			})
			if err != nil && !errors.Is(err, ledger.ErrDuplicateIncident) {
				return created, err
			}
		}
	}
	return created, nil
}
