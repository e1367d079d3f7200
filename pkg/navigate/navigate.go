// Package navigate defines the client routes and the error-surface navigation contract.
package navigate

import (
	"net/url"
	"sync"

	"github.com/lepinkainen/seodash/pkg/apperror"
)

// Client routes
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	ErrorPath     = "/error"
)

// Navigator moves the user to another surface
type Navigator interface {
	Navigate(route string)
}

// Func adapts a function to Navigator
type Func func(route string)

// Navigate implements Navigator
func (f Func) Navigate(route string) {
	f(route)
}

// ErrorRoute builds the error surface route for a classified failure
func ErrorRoute(category apperror.Category, message string) string {
	q := url.Values{}
	q.Set("type", category.String())
	q.Set("message", message)
	return ErrorPath + "?" + q.Encode()
}

// ParseErrorRoute extracts the category and message from an error surface route
func ParseErrorRoute(route string) (apperror.Category, string, bool) {
	u, err := url.Parse(route)
	if err != nil || u.Path != ErrorPath {
		return apperror.CategoryUnknown, "", false
	}

	q := u.Query()
	return apperror.ParseCategory(q.Get("type")), q.Get("message"), true
}

// Recorder is a Navigator that remembers every route it was sent to
type Recorder struct {
	mu     sync.Mutex
	routes []string
}

// Navigate implements Navigator
func (r *Recorder) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Routes returns a copy of the recorded routes
func (r *Recorder) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

// Last returns the most recent route, or "" when nothing was recorded
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}
