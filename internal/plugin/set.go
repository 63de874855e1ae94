package plugin

import (
	"fmt"

	"github.com/zineproject/zine/internal/platform/errors"
)

// State is the lifecycle state of one plugin registration.
type State string

const (
	// StateDisabled: discovered but not listed in the plugins config.
	StateDisabled State = "disabled"
	// StateActive: loaded and set up successfully.
	StateActive State = "active"
	// StateFailed: load or setup failed; the error is recorded.
	StateFailed State = "failed"
)

// Registration tracks one discovered plugin for one application
// instance: its descriptor, enablement, lifecycle state, and error.
type Registration struct {
	Descriptor Descriptor
	Enabled    bool
	State      State
	Err        error

	impl Plugin
}

// Set is the per-instance plugin collection. Discovery order is kept,
// setup runs in that order, and each plugin's failure is isolated when
// the plugin guard is on.
type Set struct {
	guard   bool
	regs    []*Registration
	byName  map[string]*Registration
	missing []string
	ran     bool
}

// NewSet pairs discovered descriptors with the enabled-plugins list.
// Enabled names without a descriptor are recorded as missing for the
// caller to report.
func NewSet(descriptors []Descriptor, enabled []string, guard bool) *Set {
	enabledSet := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		enabledSet[name] = true
	}
	s := &Set{
		guard:  guard,
		byName: make(map[string]*Registration, len(descriptors)),
	}
	for _, desc := range descriptors {
		reg := &Registration{
			Descriptor: desc,
			Enabled:    enabledSet[desc.Name],
			State:      StateDisabled,
		}
		s.regs = append(s.regs, reg)
		s.byName[desc.Name] = reg
		delete(enabledSet, desc.Name)
	}
	for name := range enabledSet {
		s.missing = append(s.missing, name)
	}
	return s
}

// SetupAll loads and sets up every enabled plugin, exactly once per
// plugin, in discovery order. With the plugin guard on, a load or setup
// failure marks that registration failed and the rest proceed; with the
// guard off the first failure aborts and is returned.
//
// SetupAll is the setup stage: calling it a second time on the same set
// is a programming error and panics.
func (s *Set) SetupAll(host Host) error {
	if s.ran {
		panic("plugin: setup stage already ran for this set")
	}
	s.ran = true

	for _, reg := range s.regs {
		if !reg.Enabled {
			continue
		}
		factory, ok := Lookup(reg.Descriptor.Name)
		if !ok {
			err := errors.WithMetadata(errors.CodePluginImport,
				fmt.Sprintf("plugin %q has no registered entry point", reg.Descriptor.Name),
				map[string]string{"plugin": reg.Descriptor.Name})
			if !s.guard {
				return err
			}
			reg.State, reg.Err = StateFailed, err
			continue
		}
		reg.impl = factory()
		if err := s.runSetup(reg, host); err != nil {
			if !s.guard {
				return err
			}
			reg.State, reg.Err = StateFailed, err
			continue
		}
		reg.State = StateActive
	}
	return nil
}

// runSetup invokes one plugin's setup with panics converted to errors so
// a misbehaving plugin cannot take the setup stage down.
func (s *Set) runSetup(reg *Registration, host Host) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.WithMetadata(errors.CodePluginSetup,
				fmt.Sprintf("plugin %q panicked during setup: %v", reg.Descriptor.Name, recovered),
				map[string]string{"plugin": reg.Descriptor.Name})
		}
	}()
	if setupErr := reg.impl.Setup(host); setupErr != nil {
		return errors.Wrap(errors.CodePluginSetup,
			fmt.Sprintf("plugin %q setup failed", reg.Descriptor.Name), setupErr)
	}
	return nil
}

// Registrations returns every registration in discovery order.
func (s *Set) Registrations() []*Registration {
	out := make([]*Registration, len(s.regs))
	copy(out, s.regs)
	return out
}

// Get returns the registration for a plugin name.
func (s *Set) Get(name string) (*Registration, bool) {
	reg, ok := s.byName[name]
	return reg, ok
}

// Missing lists enabled plugin names that no search path provided.
func (s *Set) Missing() []string {
	return s.missing
}

// ActiveNames lists plugins that completed setup, in discovery order.
func (s *Set) ActiveNames() []string {
	var names []string
	for _, reg := range s.regs {
		if reg.State == StateActive {
			names = append(names, reg.Descriptor.Name)
		}
	}
	return names
}
