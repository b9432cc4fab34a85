package mvc

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandlerFunc handles a routed request. The returned data is written in the
// success envelope; a returned error goes through error resolution.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) (any, error)

// Controller registers routes on the dispatcher. Controllers are found as
// beans of the dispatcher context.
type Controller interface {
	RegisterRoutes(r *Routes)
}

// Routes is the registration surface handed to controllers.
type Routes struct {
	router chi.Router
	d      *Dispatcher
}

// Get registers a GET route.
func (rt *Routes) Get(pattern string, h HandlerFunc) {
	rt.Handle(http.MethodGet, pattern, h)
}

// Post registers a POST route.
func (rt *Routes) Post(pattern string, h HandlerFunc) {
	rt.Handle(http.MethodPost, pattern, h)
}

// Put registers a PUT route.
func (rt *Routes) Put(pattern string, h HandlerFunc) {
	rt.Handle(http.MethodPut, pattern, h)
}

// Delete registers a DELETE route.
func (rt *Routes) Delete(pattern string, h HandlerFunc) {
	rt.Handle(http.MethodDelete, pattern, h)
}

// Handle registers a route for method.
func (rt *Routes) Handle(method, pattern string, h HandlerFunc) {
	rt.router.Method(method, pattern, rt.d.adapt(h))
}

// Route mounts a group of routes under pattern.
func (rt *Routes) Route(pattern string, fn func(r *Routes)) {
	rt.router.Route(pattern, func(sub chi.Router) {
		fn(&Routes{router: sub, d: rt.d})
	})
}

// Use adds middleware to the group. It must be called before any route of
// the group is registered.
func (rt *Routes) Use(mw ...func(http.Handler) http.Handler) {
	rt.router.Use(mw...)
}
