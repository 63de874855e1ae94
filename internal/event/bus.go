// Package event implements the publish/subscribe registry plugins use to
// hook engine extension points.
//
// Subscriptions are only accepted while the owning application is in its
// setup stage; the application seals the bus when setup finishes. After
// sealing the subscriber table is read-only, so emitting takes no locks.
// Within one event name listeners run in strict subscription order; across
// names no ordering is guaranteed.
package event

import (
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/zineproject/zine/internal/platform/errors"
)

// Event is a typed event payload. Each event name has exactly one payload
// type; listeners receive the payload value and type-assert it.
type Event interface {
	EventName() string
}

// Listener handles one event occurrence. The return value is collected by
// Emit; listeners without a result return nil.
type Listener func(Event) any

// Bus is the per-application event registry.
type Bus struct {
	mu        sync.Mutex
	sealed    atomic.Bool
	listeners map[string][]Listener
}

// NewBus returns an empty, unsealed bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[string][]Listener)}
}

// Subscribe registers a listener for the named event. It fails once the
// bus is sealed: subscriptions are part of the setup stage.
func (b *Bus) Subscribe(name string, fn Listener) error {
	if name == "" {
		return fmt.Errorf("event name is required")
	}
	if fn == nil {
		return fmt.Errorf("listener is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed.Load() {
		return errors.New(errors.CodeSetupWindow,
			fmt.Sprintf("cannot subscribe to %q after the setup stage", name))
	}
	b.listeners[name] = append(b.listeners[name], fn)
	return nil
}

// Seal closes the subscription window. Idempotent.
func (b *Bus) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed.Store(true)
}

// Sealed reports whether the subscription window is closed.
func (b *Bus) Sealed() bool {
	return b.sealed.Load()
}

// Emit invokes every listener subscribed to the event's name in
// subscription order and returns their results, one per listener.
func (b *Bus) Emit(ev Event) []any {
	listeners := b.snapshot(ev.EventName())
	if len(listeners) == 0 {
		return nil
	}
	results := make([]any, 0, len(listeners))
	for _, fn := range listeners {
		results = append(results, fn(ev))
	}
	return results
}

// Listeners returns a lazy sequence over the listeners for the named
// event in subscription order. The sequence is finite and restartable:
// ranging over it again starts from the first listener.
func (b *Bus) Listeners(name string) iter.Seq[Listener] {
	return func(yield func(Listener) bool) {
		for _, fn := range b.snapshot(name) {
			if !yield(fn) {
				return
			}
		}
	}
}

// snapshot returns the listener slice for a name. Once sealed the table
// is immutable and read directly; before sealing reads hold the lock.
func (b *Bus) snapshot(name string) []Listener {
	if b.sealed.Load() {
		return b.listeners[name]
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listeners[name]
}
