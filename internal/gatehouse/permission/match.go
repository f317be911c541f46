package permission

import (
	"strings"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/domain"
)

// RuleMatches reports whether a permission rule covers the given request.
// Service and method compare exactly with "*" as a wildcard; method matching
// is case-insensitive. Path patterns match per segment: "*" covers exactly
// one segment, a trailing "**" covers the rest of the path including nothing.
func RuleMatches(rule domain.PermissionRule, service, method, path string) bool {
	if rule.Service != "*" && rule.Service != service {
		return false
	}
	if rule.Method != "*" && !strings.EqualFold(rule.Method, method) {
		return false
	}
	return pathMatches(rule.Path, path)
}

func pathMatches(pattern, path string) bool {
	pat := splitSegments(pattern)
	got := splitSegments(path)

	for i, seg := range pat {
		if seg == "**" {
			// Only meaningful as the last pattern segment.
			return i == len(pat)-1
		}
		if i >= len(got) {
			return false
		}
		if seg != "*" && seg != got[i] {
			return false
		}
	}
	return len(pat) == len(got)
}

func splitSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
