package permission

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
)

// StaticStore serves role definitions loaded once from JSON files. The
// snapshot never changes after construction, so lookups are lock-free.
type StaticStore struct {
	snap     *snapshot
	loadedAt time.Time
}

// NewStaticStore reads every *.json file in dir, one role definition per
// file, and builds a validated snapshot. Any unreadable file, malformed
// definition, undefined inherited role or inheritance cycle is a hard error
// so the service refuses to start with a broken permission set.
func NewStaticStore(dir string) (*StaticStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("permission: read dir %s: %w", dir, err)
	}

	var sets []domain.RolePermissionSet
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		set, err := loadRoleFile(path)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("permission: no role definitions found in %s", dir)
	}

	snap, err := newSnapshot(sets)
	if err != nil {
		return nil, err
	}
	return &StaticStore{snap: snap, loadedAt: time.Now().UTC()}, nil
}

func loadRoleFile(path string) (domain.RolePermissionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RolePermissionSet{}, fmt.Errorf("permission: read %s: %w", path, err)
	}

	var set domain.RolePermissionSet
	if err := json.Unmarshal(data, &set); err != nil {
		return domain.RolePermissionSet{}, fmt.Errorf("permission: parse %s: %w", path, err)
	}
	if set.Role == "" {
		return domain.RolePermissionSet{}, fmt.Errorf("permission: %s: missing role name", path)
	}
	return set, nil
}

func (s *StaticStore) RoleSet(role string) (domain.RolePermissionSet, bool) {
	return s.snap.RoleSet(role)
}

func (s *StaticStore) Roles() []string {
	return s.snap.Roles()
}

// Status reports the loaded snapshot for the admin diagnostics endpoint.
func (s *StaticStore) Status() Status {
	return Status{
		Source:   "file",
		Roles:    len(s.snap.Roles()),
		LoadedAt: s.loadedAt,
	}
}
