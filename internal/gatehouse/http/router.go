package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/permission"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-io/gatehouse/pkg/authsdk"
	"github.com/gatehouse-io/gatehouse/pkg/httpx"
	"github.com/gatehouse-io/gatehouse/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store                store.Store
	sessionPinger        Pinger
	AuthService          *service.AuthService
	AuthorizationService *service.AuthorizationService
	PermissionStore      permission.Store
}

// Pinger is implemented by dependencies the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(
	buildVersion string,
	st store.Store,
	sessionPinger Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		store:         st,
		sessionPinger: sessionPinger,
		logger:        logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	loginHandler := &LoginHandler{AuthService: r.AuthService}

	// POST /login - strict rate limit (authentication attempts)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	logoutHandler := &LogoutHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	validateHandler := &ValidateHandler{AuthService: r.AuthService}
	r.Mux.Handle("GET /api/auth/validate",
		httpx.Chain(validateHandler,
			httpx.RateLimitBySession(httpx.LenientLimit, authsdk.SessionCookieName, authsdk.SessionHeader),
		),
	)

	// GET /check - the gateway hot path, public-tier limit
	checkHandler := &CheckHandler{AuthorizationService: r.AuthorizationService}
	r.Mux.Handle("GET /api/auth/check",
		httpx.Chain(checkHandler,
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	refreshHandler := &PermissionRefreshHandler{
		AuthService:     r.AuthService,
		PermissionStore: r.PermissionStore,
	}
	r.Mux.Handle("POST /api/admin/permissions/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	statusHandler := &PermissionStatusHandler{
		AuthService:     r.AuthService,
		PermissionStore: r.PermissionStore,
	}
	r.Mux.Handle("GET /api/admin/permissions/status",
		httpx.Chain(statusHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.sessionPinger))
}

// sessionToken pulls the opaque session token off a request, cookie first,
// then the X-Session-ID header.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(authsdk.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(authsdk.SessionHeader)
}
