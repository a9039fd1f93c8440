package router

import "strings"

// Group registers routes under a shared path prefix. The prefix is stored
// normalized: no trailing slash, a leading slash when non-empty, and the
// empty string for the root group.
type Group struct {
	router *Router
	prefix string
}

// Group creates a route group with the given prefix.
func (r *Router) Group(prefix string) *Group {
	return &Group{router: r, prefix: normalizePrefix(prefix)}
}

// normalizePrefix reduces a prefix to its canonical form.
func normalizePrefix(prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

// Prefix returns the group's normalized prefix.
func (g *Group) Prefix() string {
	return g.prefix
}

// Combine joins the group prefix with a route pattern. An empty pattern or
// "/" addresses the group's own root: "/" for the root group, otherwise the
// prefix itself.
func (g *Group) Combine(pattern string) string {
	if pattern == "" || pattern == "/" {
		if g.prefix == "" {
			return "/"
		}
		return g.prefix
	}
	if !strings.HasPrefix(pattern, "/") {
		pattern = "/" + pattern
	}
	return g.prefix + pattern
}

// Get registers a GET route under the group prefix and returns the group
// for chaining.
func (g *Group) Get(pattern string, handler Handler) *Group {
	g.router.Get(g.Combine(pattern), handler)
	return g
}

// Post registers a POST route under the group prefix and returns the group
// for chaining.
func (g *Group) Post(pattern string, handler Handler) *Group {
	g.router.Post(g.Combine(pattern), handler)
	return g
}

// Put registers a PUT route under the group prefix and returns the group
// for chaining.
func (g *Group) Put(pattern string, handler Handler) *Group {
	g.router.Put(g.Combine(pattern), handler)
	return g
}

// Delete registers a DELETE route under the group prefix and returns the
// group for chaining.
func (g *Group) Delete(pattern string, handler Handler) *Group {
	g.router.Delete(g.Combine(pattern), handler)
	return g
}
