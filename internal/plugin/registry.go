package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh plugin value for one application instance.
// Factories must not share mutable state between the values they build.
type Factory func() Plugin

// Plugin is one compiled-in extension. Setup runs exactly once per
// application instance, during that instance's setup stage. There is no
// teardown callback: dropping the application releases plugin state, so
// plugins must not install process-global patches.
type Plugin interface {
	Setup(host Host) error
}

var registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// Register adds a factory to the process-wide plugin table. It is meant
// to be called from package init of plugin implementations and panics on
// a duplicate or invalid name, like database/sql driver registration.
func Register(name string, factory Factory) {
	if !ValidName(name) {
		panic(fmt.Sprintf("plugin: invalid plugin name %q", name))
	}
	if factory == nil {
		panic(fmt.Sprintf("plugin: nil factory for %q", name))
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.factories == nil {
		registry.factories = make(map[string]Factory)
	}
	if _, dup := registry.factories[name]; dup {
		panic(fmt.Sprintf("plugin: factory %q registered twice", name))
	}
	registry.factories[name] = factory
}

// Lookup resolves a factory by name.
func Lookup(name string) (Factory, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	factory, ok := registry.factories[name]
	return factory, ok
}

// RegisteredNames lists every registered factory name, sorted.
func RegisteredNames() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
