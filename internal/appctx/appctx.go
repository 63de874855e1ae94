// Package appctx carries the application and in-flight request bindings
// through the request-handling call chain.
//
// Bindings travel on context.Context instead of goroutine-local state:
// the dispatcher binds once at request entry and every lookup takes the
// context explicitly. A process-wide current-application slot exists only
// for outermost entry points that cannot accept a context parameter.
package appctx

import (
	"context"
	"sync"

	"github.com/zineproject/zine/internal/platform/errors"
)

// Application is the binding target. The concrete type lives in the app
// package; appctx only needs identity.
type Application interface {
	InstancePath() string
}

// applicationContextKey is the context key for the bound application.
type applicationContextKey struct{}

// requestContextKey is the context key for the bound request envelope.
type requestContextKey struct{}

// BindApplication binds an application to the context. At most one
// application may be bound: binding a different application over an
// existing binding is a programming error and fails with a
// context-binding error. Rebinding the same application is a no-op.
func BindApplication(ctx context.Context, app Application) (context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if app == nil {
		return ctx, errors.New(errors.CodeContextBinding, "cannot bind a nil application")
	}
	if bound, ok := ctx.Value(applicationContextKey{}).(Application); ok {
		if bound == app {
			return ctx, nil
		}
		return ctx, errors.WithMetadata(errors.CodeContextBinding,
			"context already bound to another application", map[string]string{
				"bound":    bound.InstancePath(),
				"rejected": app.InstancePath(),
			})
	}
	return context.WithValue(ctx, applicationContextKey{}, app), nil
}

// ApplicationFromContext returns the bound application, if any.
func ApplicationFromContext(ctx context.Context) (Application, bool) {
	if ctx == nil {
		return nil, false
	}
	app, ok := ctx.Value(applicationContextKey{}).(Application)
	return app, ok
}

// BindRequest binds the in-flight request envelope. Rebinding replaces
// the previous envelope, never stacks.
func BindRequest(ctx context.Context, req any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestContextKey{}, req)
}

// RequestFromContext returns the bound request envelope. Outside the
// dispatch window it reports (nil, false); callers treat that as the
// explicit "no request" result, not a failure.
func RequestFromContext(ctx context.Context) (any, bool) {
	if ctx == nil {
		return nil, false
	}
	req := ctx.Value(requestContextKey{})
	if req == nil {
		return nil, false
	}
	return req, true
}

// current is the process-wide application slot for outermost entry
// points (template callbacks, signal handlers) that cannot receive a
// context. Everything else passes context explicitly.
var current struct {
	mu  sync.RWMutex
	app Application
}

// SetCurrent publishes the process-wide current application.
func SetCurrent(app Application) {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.app = app
}

// Current returns the process-wide current application, if one is set.
func Current() (Application, bool) {
	current.mu.RLock()
	defer current.mu.RUnlock()
	return current.app, current.app != nil
}

// ClearCurrent drops the process-wide current application.
func ClearCurrent() {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.app = nil
}
