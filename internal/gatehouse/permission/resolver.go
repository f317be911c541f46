package permission

// Resolver answers permission questions against a Store, following role
// inheritance. A role is allowed whatever its own rules allow plus everything
// any transitively inherited role allows.
type Resolver struct {
	Store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{Store: store}
}

// IsAllowed reports whether the role may perform method on path for the given
// service. Unknown roles have no permissions.
func (r *Resolver) IsAllowed(role, service, method, path string) bool {
	visited := make(map[string]bool)
	return r.allowed(role, service, method, path, visited)
}

func (r *Resolver) allowed(role, service, method, path string, visited map[string]bool) bool {
	if visited[role] {
		return false
	}
	visited[role] = true

	set, ok := r.Store.RoleSet(role)
	if !ok {
		return false
	}
	for _, rule := range set.Rules {
		if RuleMatches(rule, service, method, path) {
			return true
		}
	}
	for _, parent := range set.Inherits {
		if r.allowed(parent, service, method, path, visited) {
			return true
		}
	}
	return false
}

// EffectiveRoles returns the role itself plus every role it transitively
// inherits, in walk order. Useful for diagnostics.
func (r *Resolver) EffectiveRoles(role string) []string {
	visited := make(map[string]bool)
	var out []string

	var walk func(name string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true

		set, ok := r.Store.RoleSet(name)
		if !ok {
			return
		}
		out = append(out, name)
		for _, parent := range set.Inherits {
			walk(parent)
		}
	}
	walk(role)
	return out
}
