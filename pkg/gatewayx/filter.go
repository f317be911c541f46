package gatewayx

import (
	"context"
	"net/http"
	"strings"

	"github.com/gatehouse-io/gatehouse/pkg/authsdk"
	"github.com/gatehouse-io/gatehouse/pkg/httpx"
	"github.com/gatehouse-io/gatehouse/pkg/slogx"
)

// AuthChecker asks the authorization service whether a request may proceed.
// *authsdk.SDKClient satisfies this.
type AuthChecker interface {
	CheckForService(ctx context.Context, token, serviceName, httpMethod, requestPath string) (authsdk.CheckResponse, error)
}

// Filter is the gateway authorization middleware. Every request is resolved
// to a target service, checked against the authorization service, and either
// forwarded with identity headers attached or rejected with 401/403. When
// the checker itself cannot be reached the filter fails closed with 503.
type Filter struct {
	Checker   AuthChecker
	Extractor *PathExtractor

	// AllowList holds path patterns that bypass authorization entirely,
	// exact paths or prefixes ending in "/**".
	AllowList []string
}

func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := slogx.FromContext(ctx)

		// Never trust identity headers from the outside.
		stripIdentityHeaders(r)

		if f.allowed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		serviceName, forwardPath := f.Extractor.Extract(r.URL.Path)
		token := requestToken(r)

		res, err := f.Checker.CheckForService(ctx, token, serviceName, r.Method, forwardPath)
		if err != nil {
			log.Error("authorization check unreachable", "error", err)
			authsdk.ErrUpstreamUnavailable.WriteError(w)
			return
		}

		if !res.IsAuthorized {
			if res.Status == http.StatusForbidden {
				authsdk.ErrForbidden.WriteError(w)
				return
			}
			authsdk.ErrUnauthenticated.WriteError(w)
			return
		}

		if res.User != nil {
			r.Header.Set(authsdk.HeaderUserID, res.User.SubjectID)
			r.Header.Set(authsdk.HeaderUsername, res.User.Username)
			r.Header.Set(authsdk.HeaderUserRole, res.User.Role)
			if res.User.Email != "" {
				r.Header.Set(authsdk.HeaderUserMail, res.User.Email)
			}
		}

		next.ServeHTTP(w, r)
	})
}

// Handler wraps Middleware so the filter composes with httpx.Chain.
func (f *Filter) Handler() httpx.Middleware {
	return f.Middleware
}

func (f *Filter) allowed(path string) bool {
	for _, pattern := range f.AllowList {
		if allowMatches(pattern, path) {
			return true
		}
	}
	return false
}

func allowMatches(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == pattern
}

// requestToken pulls the session token off a request, cookie first, then the
// X-Session-ID header.
func requestToken(r *http.Request) string {
	if c, err := r.Cookie(authsdk.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(authsdk.SessionHeader)
}

func stripIdentityHeaders(r *http.Request) {
	r.Header.Del(authsdk.HeaderUserID)
	r.Header.Del(authsdk.HeaderUsername)
	r.Header.Del(authsdk.HeaderUserRole)
	r.Header.Del(authsdk.HeaderUserMail)
}
