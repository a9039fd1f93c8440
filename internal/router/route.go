package router

import (
	"github.com/vyrodovalexey/embhttp/internal/httpio"
)

// Handler responds to one matched request. Implementations receive the
// parsed request, a response sink, and the extracted path parameters.
type Handler interface {
	Handle(req *httpio.Request, rw *httpio.ResponseWriter, params Params)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(req *httpio.Request, rw *httpio.ResponseWriter, params Params)

// Handle calls f(req, rw, params).
func (f HandlerFunc) Handle(req *httpio.Request, rw *httpio.ResponseWriter, params Params) {
	f(req, rw, params)
}

// Route pairs an HTTP method with a compiled pattern and a handler. Routes
// are immutable once constructed.
type Route struct {
	method  string
	pattern *Pattern
	handler Handler
}

// Method returns the route's upper-cased HTTP method.
func (r *Route) Method() string {
	return r.method
}

// Pattern returns the route's compiled pattern.
func (r *Route) Pattern() *Pattern {
	return r.pattern
}

// Handler returns the route's handler.
func (r *Route) Handler() Handler {
	return r.handler
}
