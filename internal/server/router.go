package server

import (
	"net/http"
	"slices"
	"strings"
)

// BasicRouter routes requests for the loopback callback server.
//
// Routes registered through [BasicRouter.Handle] use method patterns ("GET /oauth/google") on an
// [http.ServeMux], so a request with the wrong method gets 405 and an Allow header from the mux.
type BasicRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware to the chain applied to routes registered afterwards.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handle registers handler for method and path.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(strings.ToUpper(method)+" "+path, r.Apply(handler))
}

// Handler registers handler under every pattern returned by [Handler.Routes].
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler].
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler in the middleware chain; the first middleware passed to Use is outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(r.chain) {
		handler = mw(handler)
	}
	return handler
}
