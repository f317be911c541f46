package service_test

import (
	"context"
	"testing"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newBootstrapService(t *testing.T) *service.BootstrapService {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	return &service.BootstrapService{Store: s}
}

func TestEnsureAdminCreatesAccountOnEmptyDatabase(t *testing.T) {
	svc := newBootstrapService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "root", "first secret"))

	user, err := svc.Store.Users().GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, domain.RoleSystemAdmin, user.Role)
	require.NotEmpty(t, user.PasswordHash)
	require.NotEqual(t, "first secret", user.PasswordHash)
}

func TestEnsureAdminSkipsPopulatedDatabase(t *testing.T) {
	svc := newBootstrapService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "root", "first secret"))
	require.NoError(t, svc.EnsureAdmin(ctx, "other", "second secret"))

	_, err := svc.Store.Users().GetUserByUsername(ctx, "other")
	require.Error(t, err, "bootstrap must not add accounts to a populated database")
}

func TestEnsureAdminSkipsWithoutPassword(t *testing.T) {
	svc := newBootstrapService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "root", ""))

	empty, err := svc.Store.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
}
