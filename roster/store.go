package roster

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// USER STORE - Repository interface owned by the roster package
// =============================================================================

// UserStore persists the officer roster. Implementations must be safe for
// concurrent use.
type UserStore interface {
	// InsertUser adds a user. Fails if the id already exists.
	InsertUser(ctx context.Context, u User) error

	// UpdateUser replaces an existing user record.
	UpdateUser(ctx context.Context, u User) error

	// GetUser returns the user by id.
	GetUser(ctx context.Context, id string) (User, error)

	// GetUserByMatricula returns the user holding a service number.
	GetUserByMatricula(ctx context.Context, matricula string) (User, error)

	// ListUsers returns every user in insertion order.
	ListUsers(ctx context.Context) ([]User, error)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateMatricula is returned when registering a service number
	// already held by another user.
	ErrDuplicateMatricula = errors.New("matricula already registered")

	// ErrInvalidUser is returned when registration input fails validation.
	ErrInvalidUser = errors.New("invalid user")
)

// =============================================================================
// SERVICE - Registration and admin edits
// =============================================================================

var matriculaPattern = regexp.MustCompile(`^\d{5}$`)

// Service validates and applies roster mutations.
type Service struct {
	Store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{Store: store}
}

// Register creates a new officer. The rank is normalized, the service
// number must be unique 5 digits, and the seniority position defaults to
// the end of the current roster when unset.
func (s *Service) Register(ctx context.Context, u User) (User, error) {
	if u.Name == "" || u.WarName == "" {
		return User{}, fmt.Errorf("%w: name and war name are required", ErrInvalidUser)
	}
	if !matriculaPattern.MatchString(u.Matricula) {
		return User{}, fmt.Errorf("%w: matricula must be exactly 5 digits", ErrInvalidUser)
	}
	u.Rank = NormalizeRank(u.Rank)
	if !KnownRank(u.Rank) {
		return User{}, fmt.Errorf("%w: unknown rank %q", ErrInvalidUser, u.Rank)
	}
	if !ValidTeam(u.Team) {
		return User{}, fmt.Errorf("%w: unknown team %q", ErrInvalidUser, u.Team)
	}
	if u.BirthDate.IsZero() {
		return User{}, fmt.Errorf("%w: birth date is required", ErrInvalidUser)
	}

	if _, err := s.Store.GetUserByMatricula(ctx, u.Matricula); err == nil {
		return User{}, ErrDuplicateMatricula
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleOfficer
	}
	u.Status = UserActive
	u.CreatedAt = time.Now().UTC()
	if u.SeniorityPos == 0 {
		all, err := s.Store.ListUsers(ctx)
		if err != nil {
			return User{}, err
		}
		u.SeniorityPos = len(all) + 1
	}

	if err := s.Store.InsertUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Update applies an admin edit. Matricula uniqueness is re-checked and the
// rank re-normalized.
func (s *Service) Update(ctx context.Context, u User) (User, error) {
	existing, err := s.Store.GetUser(ctx, u.ID)
	if err != nil {
		return User{}, err
	}
	if !matriculaPattern.MatchString(u.Matricula) {
		return User{}, fmt.Errorf("%w: matricula must be exactly 5 digits", ErrInvalidUser)
	}
	if other, err := s.Store.GetUserByMatricula(ctx, u.Matricula); err == nil && other.ID != u.ID {
		return User{}, ErrDuplicateMatricula
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	u.Rank = NormalizeRank(u.Rank)
	if !KnownRank(u.Rank) {
		return User{}, fmt.Errorf("%w: unknown rank %q", ErrInvalidUser, u.Rank)
	}
	u.CreatedAt = existing.CreatedAt
	if err := s.Store.UpdateUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Archive soft-deletes a user. Ledger entries and allocations referencing
// the user remain untouched.
func (s *Service) Archive(ctx context.Context, id string) error {
	u, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	u.Status = UserBlocked
	return s.Store.UpdateUser(ctx, u)
}
