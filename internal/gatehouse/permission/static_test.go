package permission_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/permission"
	"github.com/stretchr/testify/require"
)

func writeRoleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestStaticStoreLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "anonymous.json", `{
		"role": "ANONYMOUS",
		"description": "Public access",
		"permissions": [
			{"service": "*", "method": "GET", "path": "/health"}
		]
	}`)
	writeRoleFile(t, dir, "user.json", `{
		"role": "USER",
		"inherits": ["ANONYMOUS"],
		"permissions": [
			{"service": "*", "method": "GET", "path": "/api/**"}
		]
	}`)
	// Non-JSON files are ignored.
	writeRoleFile(t, dir, "README.md", "not a role")

	store, err := permission.NewStaticStore(dir)
	require.NoError(t, err)

	set, ok := store.RoleSet("USER")
	require.True(t, ok)
	require.Equal(t, []string{"ANONYMOUS"}, set.Inherits)
	require.Len(t, set.Rules, 1)
	require.ElementsMatch(t, []string{"ANONYMOUS", "USER"}, store.Roles())

	r := permission.NewResolver(store)
	require.True(t, r.IsAllowed("USER", "any-service", "GET", "/health"))

	st := store.Status()
	require.Equal(t, "file", st.Source)
	require.Equal(t, 2, st.Roles)
	require.False(t, st.LoadedAt.IsZero())
}

func TestStaticStoreRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "broken.json", `{"role": "USER", "permissions": [`)

	_, err := permission.NewStaticStore(dir)
	require.Error(t, err)
}

func TestStaticStoreRejectsMissingRoleName(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "noname.json", `{"permissions": []}`)

	_, err := permission.NewStaticStore(dir)
	require.Error(t, err)
}

func TestStaticStoreRejectsUndefinedInherit(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "user.json", `{"role": "USER", "inherits": ["MISSING"], "permissions": []}`)

	_, err := permission.NewStaticStore(dir)
	require.ErrorContains(t, err, "undefined role")
}

func TestStaticStoreRejectsInheritanceCycle(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "a.json", `{"role": "A", "inherits": ["B"], "permissions": []}`)
	writeRoleFile(t, dir, "b.json", `{"role": "B", "inherits": ["A"], "permissions": []}`)

	_, err := permission.NewStaticStore(dir)
	require.ErrorContains(t, err, "cycle")
}

func TestStaticStoreRejectsEmptyDirectory(t *testing.T) {
	_, err := permission.NewStaticStore(t.TempDir())
	require.Error(t, err)
}

func TestStaticStoreRejectsDuplicateRole(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "a.json", `{"role": "USER", "permissions": []}`)
	writeRoleFile(t, dir, "b.json", `{"role": "USER", "permissions": []}`)

	_, err := permission.NewStaticStore(dir)
	require.ErrorContains(t, err, "duplicate")
}
