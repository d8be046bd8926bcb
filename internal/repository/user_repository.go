package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/profile-service/internal/domain"
)

var (
	// ErrUserNotFound is returned when no document matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned by Save when another user owns the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUserExists is returned by Provision when the external id is already known.
	ErrUserExists = errors.New("user already exists")
)

// UserFilter narrows List and Count. The zero value matches every user.
type UserFilter struct {
	State domain.UserState
}

// RemoveResult reports the outcome of Remove.
type RemoveResult struct {
	ID      string `json:"id"`
	Deleted int64  `json:"deleted"`
}

// UserRepository defines document store access for user profiles.
//
// Users are never created through this interface; see UserProvisioner.
// Lookups by id or external id return ErrUserNotFound when nothing matches,
// including ids that are malformed for the underlying store.
type UserRepository interface {
	List(ctx context.Context, filter UserFilter, skip, take int64) ([]domain.User, error)
	Count(ctx context.Context, filter UserFilter) (int64, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetCohortsByID(ctx context.Context, id string) ([]string, error)
	AddCohort(ctx context.Context, id, cohortID string) ([]string, error)
	RemoveCohort(ctx context.Context, id, cohortID string) ([]string, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
	Remove(ctx context.Context, user *domain.User) (*RemoveResult, error)
	// GetMessages returns the user document together with its pending messages
	// and clears them, so each message is delivered once.
	GetMessages(ctx context.Context, id string) (*domain.User, error)
	Ping(ctx context.Context) error
}

// UserProvisioner creates users on behalf of the identity provider.
type UserProvisioner interface {
	Provision(ctx context.Context, user *domain.User) error
}
