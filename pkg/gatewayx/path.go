// Package gatewayx provides the building blocks an edge gateway needs to
// front the gatehouse authorization service: extracting the target service
// from a request path and a filter middleware that enforces decisions.
package gatewayx

import "strings"

// UnknownService is reported when a request path does not map to any known
// downstream service.
const UnknownService = "unknown-service"

// PathExtractor splits a gateway request path into the target service and
// the path forwarded to it. The first segment names the service when it is
// in the known set or carries the "-service" suffix; otherwise the whole
// path belongs to no particular service.
type PathExtractor struct {
	known map[string]struct{}
}

func NewPathExtractor(knownServices []string) *PathExtractor {
	known := make(map[string]struct{}, len(knownServices))
	for _, name := range knownServices {
		if name = strings.TrimSpace(name); name != "" {
			known[name] = struct{}{}
		}
	}
	return &PathExtractor{known: known}
}

// Extract returns the service name and the service-relative path for a
// request URI. The forwarded path always starts with "/", an empty or
// root input yields ("unknown-service", "/").
func (e *PathExtractor) Extract(requestPath string) (service, path string) {
	// Strip query and fragment if a full URI slipped in.
	if i := strings.IndexAny(requestPath, "?#"); i >= 0 {
		requestPath = requestPath[:i]
	}

	trimmed := strings.Trim(requestPath, "/")
	if trimmed == "" {
		return UnknownService, "/"
	}

	first, rest, _ := strings.Cut(trimmed, "/")
	if !e.isService(first) {
		return UnknownService, "/" + trimmed
	}

	if rest == "" {
		return first, "/"
	}
	return first, "/" + rest
}

func (e *PathExtractor) isService(segment string) bool {
	if _, ok := e.known[segment]; ok {
		return true
	}
	return strings.HasSuffix(segment, "-service")
}
