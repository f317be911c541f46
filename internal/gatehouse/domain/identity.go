package domain

import "time"

// Identity is the authenticated principal attached to a session. It is the
// value cached locally and stored in the shared session store, so it carries
// JSON tags for the wire representation.
type Identity struct {
	SubjectID   string    `json:"subjectId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Role        string    `json:"role"`
	IssuedAt    time.Time `json:"issuedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// AuthStatus is the tri-state outcome of an authorization decision.
type AuthStatus string

const (
	// StatusUnauthenticated means no valid session backed the request.
	StatusUnauthenticated AuthStatus = "UNAUTHENTICATED"
	// StatusForbidden means the session was valid but the role lacks permission.
	StatusForbidden AuthStatus = "FORBIDDEN"
	// StatusAllowed means the request may proceed.
	StatusAllowed AuthStatus = "ALLOWED"
)

// HTTPStatus maps the decision to the status code the gateway responds with:
// 200 for allowed, 401 for unauthenticated, 403 for forbidden.
func (s AuthStatus) HTTPStatus() int {
	switch s {
	case StatusAllowed:
		return 200
	case StatusForbidden:
		return 403
	default:
		return 401
	}
}

// AuthDecision is the full result of an authorization check. User is nil
// unless Status is StatusAllowed or StatusForbidden.
type AuthDecision struct {
	Status AuthStatus `json:"status"`
	User   *Identity  `json:"user,omitempty"`
}

func (d AuthDecision) IsAuthorized() bool {
	return d.Status == StatusAllowed
}
