package store

import (
	"context"
	"errors"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Permissions() Permissions

	ApplyMigrations() error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser removes a user account.
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Permissions interface {
	// ListRolePermissionSets returns every role with its inherits list and
	// permission rules, suitable for building a permission snapshot.
	ListRolePermissionSets(ctx context.Context) ([]domain.RolePermissionSet, error)

	// GetRolePermissionSet returns a single role definition.
	GetRolePermissionSet(ctx context.Context, role string) (domain.RolePermissionSet, error)

	// UpsertRolePermissionSet replaces a role definition, its inherits list
	// and its rules in one shot.
	UpsertRolePermissionSet(ctx context.Context, set domain.RolePermissionSet) error

	// DeleteRole removes a role and its rules.
	DeleteRole(ctx context.Context, role string) error
}
