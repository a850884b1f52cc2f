/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence interface the domain packages own
  (roster.UserStore, ledger.EntryStore, ledger.NatureStore,
  dispense.AllocationStore, release.Registry) using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

KEY TABLES:
  users:                Officer roster (soft-deleted via status)
  entries:              Point-earning claims, one row per ledger entry
  natures:              Incident category catalogue
  allocations:          Dispense slots, cancellations kept as rows
  expiration_releases:  Admin re-activation records for expired claims
  holiday_overrides:    Per-date cost overrides
  birthday_releases:    Birthday registry records

INDEXES:
  - idx_entries_user:        balance calculation (hot path)
  - idx_entries_incident:    duplicate-claim checks across all users
  - idx_entries_consumed_by: release on allocation cancel
  - idx_allocations_date:    capacity checks per calendar day
  - idx_overrides_date:      cost override lookup, unique per date

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/roster.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/guardia/roster-engine/config"
	"github.com/guardia/roster-engine/dispense"
	"github.com/guardia/roster-engine/ledger"
	"github.com/guardia/roster-engine/release"
	"github.com/guardia/roster-engine/roster"
)

const dateOnly = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Officer roster (soft-deleted via status, never removed)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		war_name TEXT NOT NULL,
		email TEXT,
		matricula TEXT NOT NULL UNIQUE,
		rank TEXT NOT NULL,
		team TEXT NOT NULL,
		birth_date TEXT NOT NULL,
		phone TEXT,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		seniority_pos INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_team ON users(team);

	-- Point-earning claims
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		matricula TEXT NOT NULL,
		incident_number TEXT NOT NULL,
		incident_date TEXT NOT NULL,
		nature_id TEXT NOT NULL,
		nature_name TEXT NOT NULL,
		points TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		consumed_by TEXT,
		audited_by TEXT,
		audited_at TEXT,
		rejection_reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_user
		ON entries(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_entries_incident
		ON entries(incident_number);
	CREATE INDEX IF NOT EXISTS idx_entries_consumed_by
		ON entries(consumed_by) WHERE consumed_by != '';

	-- Incident category catalogue
	CREATE TABLE IF NOT EXISTS natures (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		points TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- Dispense slots (cancellations kept as rows for the audit trail)
	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		team TEXT NOT NULL,
		date TEXT NOT NULL,
		points_debited TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		category TEXT NOT NULL,
		notes TEXT,
		manual_registration BOOLEAN NOT NULL DEFAULT FALSE,
		blocked_day BOOLEAN NOT NULL DEFAULT FALSE,
		cpc_criterion TEXT,
		cpc_overall_pos INTEGER NOT NULL DEFAULT 0,
		cpc_team_pos INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_allocations_date
		ON allocations(date);
	CREATE INDEX IF NOT EXISTS idx_allocations_user
		ON allocations(user_id);
	CREATE INDEX IF NOT EXISTS idx_allocations_category
		ON allocations(category);

	-- Admin re-activation records for expired claims
	CREATE TABLE IF NOT EXISTS expiration_releases (
		id TEXT PRIMARY KEY,
		incident_number TEXT NOT NULL,
		incident_date TEXT NOT NULL,
		matricula TEXT NOT NULL,
		officer_name TEXT,
		nature_id TEXT NOT NULL,
		nature_name TEXT,
		valid_until TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	-- Per-date dispense cost overrides
	CREATE TABLE IF NOT EXISTS holiday_overrides (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		points TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_overrides_date
		ON holiday_overrides(date);

	-- Birthday registry
	CREATE TABLE IF NOT EXISTS birthday_releases (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		team TEXT NOT NULL,
		matricula TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS (roster.UserStore interface)
// =============================================================================

func (s *Store) InsertUser(ctx context.Context, u roster.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users
		(id, name, war_name, email, matricula, rank, team, birth_date, phone,
		 role, status, seniority_pos, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Name, u.WarName, u.Email, u.Matricula, u.Rank, string(u.Team),
		u.BirthDate.Format(dateOnly), u.Phone, string(u.Role), string(u.Status),
		u.SeniorityPos, u.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return roster.ErrDuplicateMatricula
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u roster.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE users SET name = ?, war_name = ?, email = ?, matricula = ?,
		rank = ?, team = ?, birth_date = ?, phone = ?, role = ?, status = ?,
		seniority_pos = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		u.Name, u.WarName, u.Email, u.Matricula, u.Rank, string(u.Team),
		u.BirthDate.Format(dateOnly), u.Phone, string(u.Role), string(u.Status),
		u.SeniorityPos, u.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return roster.ErrDuplicateMatricula
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return notFoundIfZero(res, roster.ErrUserNotFound)
}

func (s *Store) GetUser(ctx context.Context, id string) (roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryUser(ctx, "WHERE id = ?", id)
}

func (s *Store) GetUserByMatricula(ctx context.Context, matricula string) (roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryUser(ctx, "WHERE matricula = ?", matricula)
}

func (s *Store) ListUsers(ctx context.Context) ([]roster.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, userSelect+" ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []roster.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const userSelect = `
	SELECT id, name, war_name, email, matricula, rank, team, birth_date,
	       phone, role, status, seniority_pos, created_at
	FROM users
`

func (s *Store) queryUser(ctx context.Context, where string, arg any) (roster.User, error) {
	rows, err := s.db.QueryContext(ctx, userSelect+where, arg)
	if err != nil {
		return roster.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return roster.User{}, err
		}
		return roster.User{}, roster.ErrUserNotFound
	}
	return scanUser(rows)
}

func scanUser(rows *sql.Rows) (roster.User, error) {
	var (
		u                    roster.User
		email, phone         sql.NullString
		team, role, status   string
		birthDate, createdAt string
	)
	err := rows.Scan(
		&u.ID, &u.Name, &u.WarName, &email, &u.Matricula, &u.Rank, &team,
		&birthDate, &phone, &role, &status, &u.SeniorityPos, &createdAt,
	)
	if err != nil {
		return u, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Email = email.String
	u.Phone = phone.String
	u.Team = roster.Team(team)
	u.Role = roster.Role(role)
	u.Status = roster.UserStatus(status)
	u.BirthDate, _ = time.Parse(dateOnly, birthDate)
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return u, nil
}

// =============================================================================
// LEDGER ENTRIES (ledger.EntryStore interface)
// =============================================================================

func (s *Store) InsertEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO entries
		(id, user_id, matricula, incident_number, incident_date, nature_id,
		 nature_name, points, status, notes, consumed_by, audited_by,
		 audited_at, rejection_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Matricula, e.IncidentNumber,
		e.IncidentDate.Format(dateOnly), e.NatureID, e.NatureName,
		e.Points.String(), string(e.Status), e.Notes, e.ConsumedBy,
		e.AuditedBy, nullTime(e.AuditedAt), e.RejectionReason,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (s *Store) UpdateEntry(ctx context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE entries SET points = ?, status = ?, notes = ?, consumed_by = ?,
		audited_by = ?, audited_at = ?, rejection_reason = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		e.Points.String(), string(e.Status), e.Notes, e.ConsumedBy,
		e.AuditedBy, nullTime(e.AuditedAt), e.RejectionReason, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return notFoundIfZero(res, ledger.ErrEntryNotFound)
}

func (s *Store) GetEntry(ctx context.Context, id string) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.queryEntries(ctx, entrySelect+" WHERE id = ?", id)
	if err != nil {
		return ledger.Entry{}, err
	}
	if len(entries) == 0 {
		return ledger.Entry{}, ledger.ErrEntryNotFound
	}
	return entries[0], nil
}

func (s *Store) ListEntriesByUser(ctx context.Context, userID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEntries(ctx,
		entrySelect+" WHERE user_id = ? ORDER BY created_at ASC, id ASC", userID)
}

func (s *Store) ListEntriesByIncident(ctx context.Context, incidentNumber string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEntries(ctx,
		entrySelect+" WHERE incident_number = ? ORDER BY created_at ASC, id ASC", incidentNumber)
}

func (s *Store) ListEntriesConsumedBy(ctx context.Context, allocationID string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEntries(ctx,
		entrySelect+" WHERE consumed_by = ? ORDER BY created_at ASC, id ASC", allocationID)
}

const entrySelect = `
	SELECT id, user_id, matricula, incident_number, incident_date, nature_id,
	       nature_name, points, status, notes, consumed_by, audited_by,
	       audited_at, rejection_reason, created_at
	FROM entries
`

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e                       ledger.Entry
		incidentDate, createdAt string
		points, status          string
		notes, consumedBy       sql.NullString
		auditedBy, auditedAt    sql.NullString
		rejectionReason         sql.NullString
	)
	err := rows.Scan(
		&e.ID, &e.UserID, &e.Matricula, &e.IncidentNumber, &incidentDate,
		&e.NatureID, &e.NatureName, &points, &status, &notes, &consumedBy,
		&auditedBy, &auditedAt, &rejectionReason, &createdAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}
	e.IncidentDate, _ = time.Parse(dateOnly, incidentDate)
	e.Points, _ = decimal.NewFromString(points)
	e.Status = ledger.Status(status)
	e.Notes = notes.String
	e.ConsumedBy = consumedBy.String
	e.AuditedBy = auditedBy.String
	if auditedAt.Valid && auditedAt.String != "" {
		t, _ := time.Parse(time.RFC3339Nano, auditedAt.String)
		e.AuditedAt = &t
	}
	e.RejectionReason = rejectionReason.String
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return e, nil
}

// =============================================================================
// NATURES (ledger.NatureStore interface)
// =============================================================================

func (s *Store) InsertNature(ctx context.Context, n ledger.Nature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO natures (id, name, points, active) VALUES (?, ?, ?, ?)",
		n.ID, n.Name, n.Points.String(), n.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to insert nature: %w", err)
	}
	return nil
}

func (s *Store) UpdateNature(ctx context.Context, n ledger.Nature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE natures SET name = ?, points = ?, active = ? WHERE id = ?",
		n.Name, n.Points.String(), n.Active, n.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update nature: %w", err)
	}
	return notFoundIfZero(res, ledger.ErrNatureNotFound)
}

func (s *Store) GetNature(ctx context.Context, id string) (ledger.Nature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		n      ledger.Nature
		points string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, points, active FROM natures WHERE id = ?", id,
	).Scan(&n.ID, &n.Name, &points, &n.Active)
	if err == sql.ErrNoRows {
		return ledger.Nature{}, ledger.ErrNatureNotFound
	}
	if err != nil {
		return ledger.Nature{}, fmt.Errorf("failed to query nature: %w", err)
	}
	n.Points, _ = decimal.NewFromString(points)
	return n, nil
}

func (s *Store) ListNatures(ctx context.Context) ([]ledger.Nature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, points, active FROM natures ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query natures: %w", err)
	}
	defer rows.Close()

	var natures []ledger.Nature
	for rows.Next() {
		var (
			n      ledger.Nature
			points string
		)
		if err := rows.Scan(&n.ID, &n.Name, &points, &n.Active); err != nil {
			return nil, fmt.Errorf("failed to scan nature: %w", err)
		}
		n.Points, _ = decimal.NewFromString(points)
		natures = append(natures, n)
	}
	return natures, rows.Err()
}

// =============================================================================
// ALLOCATIONS (dispense.AllocationStore interface)
// =============================================================================

func (s *Store) InsertAllocation(ctx context.Context, a dispense.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO allocations
		(id, user_id, user_name, team, date, points_debited, mode, status,
		 category, notes, manual_registration, blocked_day, cpc_criterion,
		 cpc_overall_pos, cpc_team_pos, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.UserName, string(a.Team), a.Date.Format(dateOnly),
		a.PointsDebited.String(), string(a.Mode), string(a.Status),
		string(a.Category), a.Notes, a.ManualRegistration, a.BlockedDay,
		string(a.CPCCriterion), a.CPCOverallPos, a.CPCTeamPos,
		a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert allocation: %w", err)
	}
	return nil
}

func (s *Store) UpdateAllocation(ctx context.Context, a dispense.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE allocations SET status = ?, notes = ?, points_debited = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		string(a.Status), a.Notes, a.PointsDebited.String(), a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update allocation: %w", err)
	}
	return notFoundIfZero(res, dispense.ErrAllocationNotFound)
}

func (s *Store) GetAllocation(ctx context.Context, id string) (dispense.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allocs, err := s.queryAllocations(ctx, allocationSelect+" WHERE id = ?", id)
	if err != nil {
		return dispense.Allocation{}, err
	}
	if len(allocs) == 0 {
		return dispense.Allocation{}, dispense.ErrAllocationNotFound
	}
	return allocs[0], nil
}

func (s *Store) ListAllocationsByDate(ctx context.Context, date time.Time) ([]dispense.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAllocations(ctx,
		allocationSelect+" WHERE date = ? ORDER BY created_at ASC, id ASC",
		date.Format(dateOnly))
}

func (s *Store) ListAllocationsByUser(ctx context.Context, userID string) ([]dispense.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAllocations(ctx,
		allocationSelect+" WHERE user_id = ? ORDER BY created_at ASC, id ASC", userID)
}

func (s *Store) ListAllocationsByCategory(ctx context.Context, cat dispense.Category) ([]dispense.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAllocations(ctx,
		allocationSelect+" WHERE category = ? ORDER BY created_at ASC, id ASC", string(cat))
}

const allocationSelect = `
	SELECT id, user_id, user_name, team, date, points_debited, mode, status,
	       category, notes, manual_registration, blocked_day, cpc_criterion,
	       cpc_overall_pos, cpc_team_pos, created_at
	FROM allocations
`

func (s *Store) queryAllocations(ctx context.Context, query string, args ...any) ([]dispense.Allocation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var allocs []dispense.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

func scanAllocation(rows *sql.Rows) (dispense.Allocation, error) {
	var (
		a                      dispense.Allocation
		team, date, points     string
		mode, status, category string
		notes, criterion       sql.NullString
		createdAt              string
	)
	err := rows.Scan(
		&a.ID, &a.UserID, &a.UserName, &team, &date, &points, &mode, &status,
		&category, &notes, &a.ManualRegistration, &a.BlockedDay, &criterion,
		&a.CPCOverallPos, &a.CPCTeamPos, &createdAt,
	)
	if err != nil {
		return a, fmt.Errorf("failed to scan allocation: %w", err)
	}
	a.Team = roster.Team(team)
	a.Date, _ = time.Parse(dateOnly, date)
	a.PointsDebited, _ = decimal.NewFromString(points)
	a.Mode = dispense.Mode(mode)
	a.Status = dispense.Status(status)
	a.Category = dispense.Category(category)
	a.Notes = notes.String
	a.CPCCriterion = config.Criterion(criterion.String)
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return a, nil
}

// =============================================================================
// RELEASE RECORDS (release.Registry interface)
// =============================================================================

func (s *Store) InsertExpirationRelease(ctx context.Context, r release.ExpirationRelease) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO expiration_releases
		(id, incident_number, incident_date, matricula, officer_name,
		 nature_id, nature_name, valid_until, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.IncidentNumber, r.IncidentDate.Format(dateOnly), r.Matricula,
		r.OfficerName, r.NatureID, r.NatureName,
		r.ValidUntil.Format(dateOnly), r.Reason,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert expiration release: %w", err)
	}
	return nil
}

func (s *Store) ListExpirationReleases(ctx context.Context) ([]release.ExpirationRelease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, incident_number, incident_date, matricula, officer_name,
		       nature_id, nature_name, valid_until, reason, created_at
		FROM expiration_releases ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiration releases: %w", err)
	}
	defer rows.Close()

	var releases []release.ExpirationRelease
	for rows.Next() {
		var (
			r                               release.ExpirationRelease
			incidentDate, validUntil        string
			officerName, natureName, reason sql.NullString
			createdAt                       string
		)
		err := rows.Scan(
			&r.ID, &r.IncidentNumber, &incidentDate, &r.Matricula,
			&officerName, &r.NatureID, &natureName, &validUntil, &reason,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expiration release: %w", err)
		}
		r.IncidentDate, _ = time.Parse(dateOnly, incidentDate)
		r.OfficerName = officerName.String
		r.NatureName = natureName.String
		r.ValidUntil, _ = time.Parse(dateOnly, validUntil)
		r.Reason = reason.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		releases = append(releases, r)
	}
	return releases, rows.Err()
}

func (s *Store) DeleteExpirationRelease(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM expiration_releases WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expiration release: %w", err)
	}
	return notFoundIfZero(res, release.ErrReleaseNotFound)
}

func (s *Store) InsertHolidayOverride(ctx context.Context, r release.HolidayOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO holiday_overrides (id, date, points, reason, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Date.Format(dateOnly), r.Points.String(), r.Reason,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert holiday override: %w", err)
	}
	return nil
}

func (s *Store) HolidayOverrideFor(ctx context.Context, date time.Time) (release.HolidayOverride, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r           release.HolidayOverride
		day, points string
		reason      sql.NullString
		createdAt   string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, date, points, reason, created_at FROM holiday_overrides WHERE date = ?",
		date.Format(dateOnly),
	).Scan(&r.ID, &day, &points, &reason, &createdAt)
	if err == sql.ErrNoRows {
		return release.HolidayOverride{}, false, nil
	}
	if err != nil {
		return release.HolidayOverride{}, false, fmt.Errorf("failed to query holiday override: %w", err)
	}
	r.Date, _ = time.Parse(dateOnly, day)
	r.Points, _ = decimal.NewFromString(points)
	r.Reason = reason.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return r, true, nil
}

func (s *Store) ListHolidayOverrides(ctx context.Context) ([]release.HolidayOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, date, points, reason, created_at FROM holiday_overrides ORDER BY date ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query holiday overrides: %w", err)
	}
	defer rows.Close()

	var overrides []release.HolidayOverride
	for rows.Next() {
		var (
			r           release.HolidayOverride
			day, points string
			reason      sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&r.ID, &day, &points, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan holiday override: %w", err)
		}
		r.Date, _ = time.Parse(dateOnly, day)
		r.Points, _ = decimal.NewFromString(points)
		r.Reason = reason.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		overrides = append(overrides, r)
	}
	return overrides, rows.Err()
}

func (s *Store) DeleteHolidayOverride(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holiday_overrides WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday override: %w", err)
	}
	return notFoundIfZero(res, release.ErrReleaseNotFound)
}

func (s *Store) InsertBirthdayRelease(ctx context.Context, r release.BirthdayRelease) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO birthday_releases (id, date, team, matricula, notes, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID, r.Date.Format(dateOnly), string(r.Team), r.Matricula, r.Notes,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert birthday release: %w", err)
	}
	return nil
}

func (s *Store) ListBirthdayReleases(ctx context.Context) ([]release.BirthdayRelease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, date, team, matricula, notes, created_at FROM birthday_releases ORDER BY date ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query birthday releases: %w", err)
	}
	defer rows.Close()

	var releases []release.BirthdayRelease
	for rows.Next() {
		var (
			r         release.BirthdayRelease
			day, team string
			notes     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&r.ID, &day, &team, &r.Matricula, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan birthday release: %w", err)
		}
		r.Date, _ = time.Parse(dateOnly, day)
		r.Team = roster.Team(team)
		r.Notes = notes.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		releases = append(releases, r)
	}
	return releases, rows.Err()
}

func (s *Store) DeleteBirthdayRelease(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM birthday_releases WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete birthday release: %w", err)
	}
	return notFoundIfZero(res, release.ErrReleaseNotFound)
}

// Helper functions

func notFoundIfZero(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
