package permission

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-io/gatehouse/pkg/slogx"
)

// DefaultRefreshInterval is how often the database-backed store reloads role
// definitions when no interval is configured.
const DefaultRefreshInterval = 10 * time.Minute

// RefreshableStore serves role definitions loaded from the database and
// reloads them periodically or on demand. Reads go through an atomic snapshot
// pointer, so lookups never contend with a refresh in progress. A failed
// refresh keeps the previous snapshot in place.
type RefreshableStore struct {
	permissions store.Permissions
	timeout     time.Duration
	snap        atomic.Pointer[snapshot]
	loadedAt    atomic.Pointer[time.Time]
}

// NewRefreshableStore performs the initial load synchronously. A failure here
// is fatal to startup, a gateway with no permission set must not come up.
func NewRefreshableStore(ctx context.Context, permissions store.Permissions, timeout time.Duration) (*RefreshableStore, error) {
	s := &RefreshableStore{
		permissions: permissions,
		timeout:     timeout,
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("permission: initial load: %w", err)
	}
	return s, nil
}

// Refresh reloads role definitions from the database and swaps in a new
// snapshot. On error the current snapshot stays active.
func (s *RefreshableStore) Refresh(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sets, err := s.permissions.ListRolePermissionSets(ctx)
	if err != nil {
		return err
	}
	snap, err := newSnapshot(sets)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	s.snap.Store(snap)
	s.loadedAt.Store(&now)
	return nil
}

// Run refreshes the store every interval until ctx is cancelled. Errors are
// logged and the next tick tries again.
func (s *RefreshableStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	log := slogx.FromContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				log.Error("permission refresh failed, keeping previous snapshot", "error", err)
				continue
			}
			log.Debug("permission snapshot refreshed", "roles", len(s.Roles()))
		}
	}
}

func (s *RefreshableStore) RoleSet(role string) (domain.RolePermissionSet, bool) {
	return s.snap.Load().RoleSet(role)
}

func (s *RefreshableStore) Roles() []string {
	return s.snap.Load().Roles()
}

// Status reports the active snapshot for the admin diagnostics endpoint.
func (s *RefreshableStore) Status() Status {
	return Status{
		Source:   "database",
		Roles:    len(s.Roles()),
		LoadedAt: *s.loadedAt.Load(),
	}
}
