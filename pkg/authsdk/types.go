package authsdk

import "time"

// Session token transport. The gateway accepts the token from the cookie
// first and falls back to the header.
const (
	SessionCookieName = "GATEHOUSE-SESSION"
	SessionHeader     = "X-Session-ID"

	// ServiceHeader names the downstream service a checked request targets.
	ServiceHeader = "X-Service-ID"
)

// Identity headers injected by the gateway for downstream services.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUsername = "X-Username"
	HeaderUserRole = "X-User-Role"
	HeaderUserMail = "X-User-Email"
)

// ErrorResponse is the standard error body: an error code plus a
// human-readable description.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login. The session token is also
// set as a cookie.
type LoginResponse struct {
	SessionID string `json:"sessionId"`
	Username  string `json:"username"`
	Role      string `json:"role"`
}

// UserInfo mirrors the identity the gateway attaches to authorized requests.
type UserInfo struct {
	SubjectID   string    `json:"subjectId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role"`
	IssuedAt    time.Time `json:"issuedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// CheckResponse is returned by GET /api/auth/check. Status carries the
// effective status code for the checked request: 200 allowed, 401
// unauthenticated, 403 forbidden. The response itself is always 200.
type CheckResponse struct {
	IsAuthorized bool      `json:"isAuthorized"`
	Status       int       `json:"status"`
	User         *UserInfo `json:"user,omitempty"`
}

// RefreshResponse is returned by POST /api/admin/permissions/refresh.
type RefreshResponse struct {
	Refreshed bool `json:"refreshed"`
	Roles     int  `json:"roles"`
}

// PermissionStatusResponse is returned by GET /api/admin/permissions/status.
type PermissionStatusResponse struct {
	Source   string    `json:"source"` // "file" or "database"
	Roles    int       `json:"roles"`
	LoadedAt time.Time `json:"loadedAt"`
}

// HealthChecks reports per-dependency status in readiness responses.
type HealthChecks struct {
	Database     string `json:"database"`
	SessionStore string `json:"session_store"`
}

// HealthResponse is the body of /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
