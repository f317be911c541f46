// Package permission holds the role permission model: where role definitions
// come from (static files or the database), how they are resolved through
// role inheritance, and how permission rules are matched against requests.
package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
)

// Store provides read access to role permission definitions. Implementations
// must be safe for concurrent use; lookups are on the hot path of every
// authorization check.
type Store interface {
	// RoleSet returns the definition for a single role. The second return is
	// false when the role is unknown.
	RoleSet(role string) (domain.RolePermissionSet, bool)

	// Roles returns the names of every known role.
	Roles() []string
}

// Refresher is implemented by stores that can reload their definitions from
// the backing source on demand.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Status describes where a store's current snapshot came from, for the admin
// diagnostics endpoint.
type Status struct {
	Source   string    // "file" or "database"
	Roles    int       // role definitions in the active snapshot
	LoadedAt time.Time // when the active snapshot was built
}

// StatusReporter is implemented by stores that can describe their active
// snapshot.
type StatusReporter interface {
	Status() Status
}

// snapshot is an immutable view of all role definitions. It is built once per
// load and shared between goroutines without locking.
type snapshot struct {
	roles map[string]domain.RolePermissionSet
}

func newSnapshot(sets []domain.RolePermissionSet) (*snapshot, error) {
	roles := make(map[string]domain.RolePermissionSet, len(sets))
	for _, set := range sets {
		if set.Role == "" {
			return nil, fmt.Errorf("permission: role definition with empty name")
		}
		if _, dup := roles[set.Role]; dup {
			return nil, fmt.Errorf("permission: duplicate role definition %q", set.Role)
		}
		roles[set.Role] = set
	}

	snap := &snapshot{roles: roles}
	if err := snap.validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// validate rejects inheritance cycles and links to undefined roles. Running
// it at snapshot build time means resolution never needs cycle guards beyond
// a visited set.
func (s *snapshot) validate() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(s.roles))

	var walk func(role string) error
	walk = func(role string) error {
		switch state[role] {
		case visiting:
			return fmt.Errorf("permission: inheritance cycle through role %q", role)
		case done:
			return nil
		}
		state[role] = visiting
		for _, parent := range s.roles[role].Inherits {
			if _, ok := s.roles[parent]; !ok {
				return fmt.Errorf("permission: role %q inherits undefined role %q", role, parent)
			}
			if err := walk(parent); err != nil {
				return err
			}
		}
		state[role] = done
		return nil
	}

	for role := range s.roles {
		if err := walk(role); err != nil {
			return err
		}
	}
	return nil
}

func (s *snapshot) RoleSet(role string) (domain.RolePermissionSet, bool) {
	set, ok := s.roles[role]
	return set, ok
}

func (s *snapshot) Roles() []string {
	names := make([]string, 0, len(s.roles))
	for name := range s.roles {
		names = append(names, name)
	}
	return names
}
