package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/permission"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/session"
	"github.com/gatehouse-io/gatehouse/pkg/authsdk"
	"github.com/gatehouse-io/gatehouse/pkg/httpx"
	"github.com/gatehouse-io/gatehouse/pkg/slogx"
)

// requireAdmin authenticates the request and rejects non-admin sessions. On
// success it returns the identity and a context whose logger is tagged with
// the acting subject; on failure the error response has already been written.
func requireAdmin(w http.ResponseWriter, r *http.Request, auth *service.AuthService) (domain.Identity, context.Context, bool) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	id, err := auth.Validate(ctx, sessionToken(r))
	if err != nil {
		// A store failure reads as "no session", fail closed.
		if !errors.Is(err, session.ErrNotFound) {
			log.Error("admin auth failed, treating session as absent", "error", err)
		}
		authsdk.ErrUnauthenticated.WriteError(w)
		return domain.Identity{}, ctx, false
	}
	if id.Role != domain.RoleAdmin && id.Role != domain.RoleSystemAdmin {
		authsdk.ErrForbidden.WriteError(w)
		return domain.Identity{}, ctx, false
	}

	return id, slogx.WithSubject(ctx, id.SubjectID), true
}

// PermissionRefreshHandler serves POST /api/admin/permissions/refresh. Admin
// sessions only. With a static file store the endpoint reports that nothing
// is refreshable.
type PermissionRefreshHandler struct {
	AuthService     *service.AuthService
	PermissionStore permission.Store
}

func (h *PermissionRefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ctx, ok := requireAdmin(w, r, h.AuthService)
	if !ok {
		return
	}
	log := slogx.FromContext(ctx)

	refresher, ok := h.PermissionStore.(permission.Refresher)
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
			Refreshed: false,
			Roles:     len(h.PermissionStore.Roles()),
		})
		return
	}

	if err := refresher.Refresh(ctx); err != nil {
		log.Error("permission refresh failed", "error", err)
		authsdk.ErrUpstreamUnavailable.WriteError(w)
		return
	}

	log.Info("permission snapshot refreshed", "by", id.Username)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		Refreshed: true,
		Roles:     len(h.PermissionStore.Roles()),
	})
}

// PermissionStatusHandler serves GET /api/admin/permissions/status. Admin
// sessions only. Reports where the active permission snapshot came from and
// when it was loaded.
type PermissionStatusHandler struct {
	AuthService     *service.AuthService
	PermissionStore permission.Store
}

func (h *PermissionStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := requireAdmin(w, r, h.AuthService); !ok {
		return
	}

	st := permission.Status{Roles: len(h.PermissionStore.Roles())}
	if reporter, ok := h.PermissionStore.(permission.StatusReporter); ok {
		st = reporter.Status()
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.PermissionStatusResponse{
		Source:   st.Source,
		Roles:    st.Roles,
		LoadedAt: st.LoadedAt,
	})
}
