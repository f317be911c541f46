package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/session"
	"github.com/gatehouse-io/gatehouse/pkg/authsdk"
	"github.com/gatehouse-io/gatehouse/pkg/httpx"
	"github.com/gatehouse-io/gatehouse/pkg/slogx"
)

// LoginHandler serves POST /api/auth/login. Accepts application/json.
type LoginHandler struct {
	AuthService *service.AuthService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		authsdk.ErrInvalidContentType.WriteError(w)
		return
	}

	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.AuthService.Login(ctx, req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidRequest):
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
		return
	default:
		log.Error("login failed", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	setSessionCookie(w, res.Token, session.DefaultTTL)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		SessionID: res.Token,
		Username:  res.Identity.Username,
		Role:      res.Identity.Role,
	})
}

// LogoutHandler serves POST /api/auth/logout.
type LogoutHandler struct {
	AuthService *service.AuthService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.AuthService.Logout(ctx, sessionToken(r)); err != nil {
		log.Error("logout failed", "error", err)
		authsdk.ErrUpstreamUnavailable.WriteError(w)
		return
	}

	clearSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

// ValidateHandler serves GET /api/auth/validate. The body is a bare JSON
// boolean. A session store failure reads as false, an unreachable store must
// never vouch for a token.
type ValidateHandler struct {
	AuthService *service.AuthService
}

func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	_, err := h.AuthService.Validate(ctx, sessionToken(r))
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		log.Error("validate failed, reporting session invalid", "error", err)
	}
	httpx.WriteJSON(w, http.StatusOK, err == nil)
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsdk.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
