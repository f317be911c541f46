package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/session"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-io/gatehouse/pkg/cryptox"
	"github.com/gatehouse-io/gatehouse/pkg/slogx"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so the two cases are indistinguishable to a caller.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrInvalidRequest = errors.New("invalid_request")
)

// AuthService owns session lifecycle: login issues a session token, logout
// revokes it, validate resolves it back to an identity.
type AuthService struct {
	Store    store.Store
	Sessions *session.Cache
}

// LoginResult is what a successful login returns to the handler.
type LoginResult struct {
	Token    string
	Identity domain.Identity
}

// Login verifies the credentials and creates a session in the shared store.
// The returned token is opaque, it carries no claims and means nothing
// outside the session store.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	log := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrInvalidRequest
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn time comparably to a real verification so username
			// probing cannot be timed.
			_ = cryptox.VerifyPassword(password, fakeHash)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Info("login rejected", "username", username)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return LoginResult{}, err
	}

	now := time.Now().UTC()
	id := domain.Identity{
		SubjectID:   user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        user.Role,
		IssuedAt:    now,
		LastSeenAt:  now,
	}

	if err := s.Sessions.Put(ctx, token, id); err != nil {
		return LoginResult{}, err
	}

	log.Info("login succeeded", "username", username, "role", user.Role)
	return LoginResult{Token: token, Identity: id}, nil
}

// Logout revokes the session. Revoking an unknown token succeeds, logout is
// idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.Sessions.Invalidate(ctx, token)
}

// Validate resolves a token to its identity. Returns session.ErrNotFound for
// unknown or expired tokens.
func (s *AuthService) Validate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, session.ErrNotFound
	}
	return s.Sessions.Resolve(ctx, token)
}

// fakeHash is a real argon2 hash used to equalise the cost of login attempts
// against unknown usernames.
var fakeHash = func() string {
	h, err := cryptox.HashPassword("gatehouse-timing-pad")
	if err != nil {
		panic(err)
	}
	return h
}()
