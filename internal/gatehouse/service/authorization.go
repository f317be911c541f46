package service

import (
	"context"
	"errors"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/permission"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/session"
	"github.com/gatehouse-io/gatehouse/pkg/slogx"
)

// AuthorizationService decides whether a request may pass the gateway. The
// decision is tri-state: unauthenticated, forbidden, or allowed.
type AuthorizationService struct {
	Sessions *session.Cache
	Resolver *permission.Resolver
}

// Check resolves the session token (may be empty) and evaluates the role's
// permissions for the request. A missing or dead session falls back to the
// ANONYMOUS role, so public endpoints stay reachable without logging in.
//
// A session store failure is treated exactly like an absent session: the
// caller gets an anonymous decision, never a grant. Denying on outage keeps
// the gateway fail-closed without giving a probe a way to tell outage from
// expiry.
func (s *AuthorizationService) Check(ctx context.Context, token, serviceName, method, path string) domain.AuthDecision {
	log := slogx.FromContext(ctx)

	if serviceName == "" {
		serviceName = domain.UnknownService
	}

	if token == "" {
		return s.anonymous(serviceName, method, path)
	}

	id, err := s.Sessions.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			log.Error("session store unreachable, treating session as absent", "error", err)
		}
		return s.anonymous(serviceName, method, path)
	}

	if s.Resolver.IsAllowed(id.Role, serviceName, method, path) {
		return domain.AuthDecision{Status: domain.StatusAllowed, User: &id}
	}

	log.Info("request forbidden",
		"username", id.Username,
		"role", id.Role,
		"service", serviceName,
		"method", method,
		"path", path,
	)
	return domain.AuthDecision{Status: domain.StatusForbidden, User: &id}
}

func (s *AuthorizationService) anonymous(serviceName, method, path string) domain.AuthDecision {
	if s.Resolver.IsAllowed(domain.RoleAnonymous, serviceName, method, path) {
		return domain.AuthDecision{Status: domain.StatusAllowed}
	}
	return domain.AuthDecision{Status: domain.StatusUnauthenticated}
}
