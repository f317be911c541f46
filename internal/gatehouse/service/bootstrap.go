package service

import (
	"context"
	"fmt"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-io/gatehouse/pkg/cryptox"
	"github.com/gatehouse-io/gatehouse/pkg/idx"
	"github.com/gatehouse-io/gatehouse/pkg/slogx"
)

// BootstrapService creates the initial administrator account on a fresh
// database so a new deployment can be logged into at all.
type BootstrapService struct {
	Store store.Store
}

// EnsureAdmin creates a SYSTEM_ADMIN account with the given credentials when
// the users table is empty. On a populated database it does nothing, so it is
// safe to call on every startup. An empty password skips bootstrap entirely.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, username, password string) error {
	log := slogx.FromContext(ctx)

	if password == "" {
		return nil
	}

	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: check users: %w", err)
	}
	if !empty {
		return nil
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("bootstrap: hash admin password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		DisplayName:  "Administrator",
		PasswordHash: hash,
		Role:         domain.RoleSystemAdmin,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return fmt.Errorf("bootstrap: create admin user: %w", err)
	}

	log.Info("created initial admin account", "username", username, "user_id", user.ID)
	return nil
}
