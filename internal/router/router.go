package router

import (
	"strings"

	"github.com/vyrodovalexey/embhttp/internal/observability"
)

// Router is the ordered route table. Registration happens during setup,
// before serving starts; dispatch afterwards is read-only, so no locking is
// needed (the server never mutates the table while serving).
type Router struct {
	routes  []*Route
	metrics *observability.Metrics
}

// New creates an empty router.
func New() *Router {
	return &Router{}
}

// WithMetrics attaches dispatch-outcome metrics and returns the router.
func (r *Router) WithMetrics(m *observability.Metrics) *Router {
	r.metrics = m
	return r
}

// Add registers a route for the given method and template. The method is
// normalized to upper case; the template is compiled immediately so a
// malformed pattern is reported here, never at request time.
func (r *Router) Add(method, template string, handler Handler) error {
	pattern, err := Compile(template)
	if err != nil {
		return err
	}

	r.routes = append(r.routes, &Route{
		method:  strings.ToUpper(method),
		pattern: pattern,
		handler: handler,
	})
	return nil
}

// MustAdd is like Add but panics on a malformed template. A bad route
// template is a fatal configuration error and aborts startup.
func (r *Router) MustAdd(method, template string, handler Handler) *Router {
	if err := r.Add(method, template, handler); err != nil {
		panic(err)
	}
	return r
}

// Get registers a GET route and returns the router for chaining.
func (r *Router) Get(template string, handler Handler) *Router {
	return r.MustAdd("GET", template, handler)
}

// Post registers a POST route and returns the router for chaining.
func (r *Router) Post(template string, handler Handler) *Router {
	return r.MustAdd("POST", template, handler)
}

// Put registers a PUT route and returns the router for chaining.
func (r *Router) Put(template string, handler Handler) *Router {
	return r.MustAdd("PUT", template, handler)
}

// Delete registers a DELETE route and returns the router for chaining.
func (r *Router) Delete(template string, handler Handler) *Router {
	return r.MustAdd("DELETE", template, handler)
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []*Route {
	routes := make([]*Route, len(r.routes))
	copy(routes, r.routes)
	return routes
}

// ResultKind classifies the outcome of a dispatch.
type ResultKind int

// Dispatch outcomes.
const (
	// Matched selects exactly one route and carries its parameters.
	Matched ResultKind = iota

	// NotFound means no registered pattern matches the path.
	NotFound

	// MethodNotAllowed means the path matched at least one route but
	// none with the requested method.
	MethodNotAllowed
)

// Result is the outcome of one dispatch. For Matched, Route and Params are
// set; for MethodNotAllowed, Allow carries the distinct methods of the
// matching routes in registration order.
type Result struct {
	Kind   ResultKind
	Route  *Route
	Params Params
	Allow  []string
}

// Dispatch selects the route for a method and raw request path. Candidates
// are the routes whose pattern matches the normalized path, in registration
// order; the first candidate with a matching method wins.
func (r *Router) Dispatch(method, path string) Result {
	method = strings.ToUpper(method)
	path = NormalizePath(path)

	var candidates []*Route
	for _, route := range r.routes {
		if route.pattern.Matches(path) {
			candidates = append(candidates, route)
		}
	}

	if len(candidates) == 0 {
		r.metrics.RecordDispatch(method, observability.OutcomeNotFound)
		return Result{Kind: NotFound}
	}

	for _, route := range candidates {
		if route.method != method {
			continue
		}
		_, params := route.pattern.Match(path)
		r.metrics.RecordDispatch(method, observability.OutcomeMatched)
		return Result{Kind: Matched, Route: route, Params: params}
	}

	r.metrics.RecordDispatch(method, observability.OutcomeMethodNotAllowed)
	return Result{Kind: MethodNotAllowed, Allow: allowedMethods(candidates)}
}

// allowedMethods returns the distinct methods of the candidate routes in
// first-seen order.
func allowedMethods(candidates []*Route) []string {
	seen := make(map[string]bool, len(candidates))
	allow := make([]string, 0, len(candidates))
	for _, route := range candidates {
		if seen[route.method] {
			continue
		}
		seen[route.method] = true
		allow = append(allow, route.method)
	}
	return allow
}

// NormalizePath strips a single trailing slash so /foo/ and /foo address
// the same route. The root path is exempt.
func NormalizePath(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}
