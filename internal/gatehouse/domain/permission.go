package domain

// PermissionRule grants a role access to an HTTP method and path pattern on a
// service. Method and Path support wildcards: "*" matches any method or a
// single path segment, a trailing "**" matches the rest of the path.
type PermissionRule struct {
	Service     string `json:"service"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

// RolePermissionSet is the full grant definition for one role, including the
// roles it inherits from. This is the unit loaded from permission files and
// database rows.
type RolePermissionSet struct {
	Role        string           `json:"role"`
	Description string           `json:"description,omitempty"`
	Inherits    []string         `json:"inherits,omitempty"`
	Rules       []PermissionRule `json:"permissions"`
}

// Built-in roles seeded by migrations. Custom roles may be added alongside
// these at runtime.
const (
	RoleAnonymous   = "ANONYMOUS"
	RoleUser        = "USER"
	RoleAdmin       = "ADMIN"
	RoleSystemAdmin = "SYSTEM_ADMIN"
)

// UnknownService is the sentinel used when a gateway request does not map to
// any known downstream service.
const UnknownService = "unknown-service"
