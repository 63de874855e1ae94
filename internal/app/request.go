package app

import (
	"context"
	"net/http"

	"github.com/zineproject/zine/internal/appctx"
	"github.com/zineproject/zine/internal/session"
)

// Request is the per-request envelope the dispatcher binds into the
// request context. Handlers and listeners reach it through
// RequestFromContext instead of a process global.
type Request struct {
	// HTTP is the incoming request.
	HTTP *http.Request
	// Session holds the decoded session when LoggedIn is true.
	Session session.Session
	// LoggedIn reports whether the request carries a valid session.
	LoggedIn bool
}

// Admin reports whether the request belongs to a logged-in admin.
func (r *Request) Admin() bool {
	return r.LoggedIn && r.Session.Admin
}

// newEnvelope decodes the session cookie into a request envelope. An
// absent, expired, or tampered cookie yields an anonymous envelope.
func (a *Application) newEnvelope(r *http.Request) *Request {
	env := &Request{HTTP: r}
	if sess, ok := a.sessions.Read(r); ok {
		env.Session = sess
		env.LoggedIn = true
	}
	return env
}

// FromContext returns the application bound to the context.
func FromContext(ctx context.Context) (*Application, bool) {
	bound, ok := appctx.ApplicationFromContext(ctx)
	if !ok {
		return nil, false
	}
	a, ok := bound.(*Application)
	return a, ok
}

// RequestFromContext returns the request envelope bound to the context.
func RequestFromContext(ctx context.Context) (*Request, bool) {
	bound, ok := appctx.RequestFromContext(ctx)
	if !ok {
		return nil, false
	}
	env, ok := bound.(*Request)
	return env, ok
}
