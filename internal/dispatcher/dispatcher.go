// Package dispatcher serves one blog instance over HTTP, owning the
// application object bound to it.
//
// The application is built lazily on the first request and rebuilt when
// the configuration file changes on disk. A rebuild swaps a fresh object
// into the slot; requests already running keep the old object and drain
// against its state. An instance with no committed configuration is
// routed to the setup assistant instead.
package dispatcher

import (
	"log"
	"net/http"
	"sync"

	"github.com/zineproject/zine/internal/app"
	"github.com/zineproject/zine/internal/appctx"
	"github.com/zineproject/zine/internal/instance"
	"github.com/zineproject/zine/internal/platform/errors"
	"github.com/zineproject/zine/internal/websetup"
)

// Options configures a dispatcher.
type Options struct {
	// App is passed through to application construction.
	App app.Options
	// Logger receives slot events (builds, reloads, failures). Defaults
	// to the standard logger.
	Logger *log.Logger
}

// Dispatcher owns the application slot for one instance.
type Dispatcher struct {
	inst   *instance.Instance
	opts   app.Options
	logger *log.Logger
	setup  *websetup.Assistant

	mu      sync.Mutex
	current *app.Application
	retired []*app.Application
	closed  bool
}

// New returns a dispatcher for an instance. No application is built
// until the first request arrives.
func New(inst *instance.Instance, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		inst:   inst,
		opts:   opts.App,
		logger: logger,
		setup:  websetup.New(inst, logger),
	}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a, err := d.acquire()
	if err != nil {
		if errors.IsCode(err, errors.CodeNotInitialized) {
			d.setup.ServeHTTP(w, r)
			return
		}
		d.logger.Printf("error application unavailable instance=%s error=%q", d.inst.Root(), err)
		http.Error(w, "The blog cannot be served right now.", http.StatusInternalServerError)
		return
	}
	a.ServeHTTP(w, r)
}

// acquire returns the application for the next request, building or
// replacing it as needed. The mutex is the setup lock: only one
// goroutine at a time runs application construction, everyone else
// waits for the finished object.
func (d *Dispatcher) acquire() (*app.Application, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New(errors.CodeInternal, "dispatcher is closed")
	}
	if d.current != nil && d.current.WantsReload() {
		d.logger.Printf("info configuration changed on disk, rebuilding instance=%s", d.inst.Root())
		d.retire(d.current)
		d.current = nil
	}
	if d.current == nil {
		a, err := app.New(d.inst, d.opts)
		if err != nil {
			return nil, err
		}
		d.current = a
		appctx.SetCurrent(a)
	}
	return d.current, nil
}

// retire parks a replaced application. In-flight requests still hold it,
// so it is closed with the dispatcher rather than immediately.
func (d *Dispatcher) retire(a *app.Application) {
	d.retired = append(d.retired, a)
}

// App returns the currently held application, building it if the slot
// is empty. Runners use it to fail fast on broken instances before
// accepting traffic; they treat a not-initialized error as "serve the
// setup assistant", not as fatal.
func (d *Dispatcher) App() (*app.Application, error) {
	return d.acquire()
}

// Instance returns the instance this dispatcher serves.
func (d *Dispatcher) Instance() *instance.Instance {
	return d.inst
}

// Close releases the held application and every retired one. The
// dispatcher rejects requests afterwards.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	appctx.ClearCurrent()

	var firstErr error
	if d.current != nil {
		d.retired = append(d.retired, d.current)
		d.current = nil
	}
	for _, a := range d.retired {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.retired = nil
	return firstErr
}
