package plugin

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/event"
	"github.com/zineproject/zine/internal/parsers"
	apperrors "github.com/zineproject/zine/internal/platform/errors"
	"github.com/zineproject/zine/internal/theme"
)

// stubHost records registration calls without an application behind it.
type stubHost struct {
	events []string
	vars   []string
	routes []string
}

func (h *stubHost) ConnectEvent(name string, fn event.Listener) error {
	h.events = append(h.events, name)
	return nil
}

func (h *stubHost) AddConfigVar(v config.Var) error {
	h.vars = append(h.vars, v.Name)
	return nil
}

func (h *stubHost) AddTheme(t *theme.Theme) error { return nil }

func (h *stubHost) AddParser(p parsers.Parser) error { return nil }

func (h *stubHost) AddRoute(pattern string, handler http.Handler) error {
	h.routes = append(h.routes, pattern)
	return nil
}

func (h *stubHost) AddServiceEndpoint(name string, handler http.Handler) error { return nil }

func (h *stubHost) Config() *config.Config { return nil }

func (h *stubHost) InstancePath() string { return "/srv/blog" }

var (
	setupCalls     []string
	builtInstances []*recordingPlugin
)

type recordingPlugin struct {
	name string
}

func (p *recordingPlugin) Setup(host Host) error {
	setupCalls = append(setupCalls, p.name)
	return host.ConnectEvent(p.name+"-ready", func(event.Event) any { return nil })
}

type failingPlugin struct{}

func (failingPlugin) Setup(Host) error { return fmt.Errorf("no database for you") }

type panickingPlugin struct{}

func (panickingPlugin) Setup(Host) error { panic("table flipped") }

func init() {
	Register("order_first", func() Plugin { return &recordingPlugin{name: "order_first"} })
	Register("order_second", func() Plugin { return &recordingPlugin{name: "order_second"} })
	Register("always_fails", func() Plugin { return failingPlugin{} })
	Register("always_panics", func() Plugin { return panickingPlugin{} })
	Register("counts_instances", func() Plugin {
		p := &recordingPlugin{name: "counts_instances"}
		builtInstances = append(builtInstances, p)
		return p
	})
}

func testDescriptors(names ...string) []Descriptor {
	descriptors := make([]Descriptor, 0, len(names))
	for _, name := range names {
		descriptors = append(descriptors, Descriptor{Name: name, Origin: "builtin"})
	}
	return descriptors
}

func TestSetupAllRunsEnabledInOrder(t *testing.T) {
	setupCalls = nil
	set := NewSet(
		testDescriptors("order_first", "ghost_plugin", "order_second"),
		[]string{"order_second", "order_first"},
		true,
	)
	host := &stubHost{}
	if err := set.SetupAll(host); err != nil {
		t.Fatalf("SetupAll error: %v", err)
	}

	want := []string{"order_first", "order_second"}
	if len(setupCalls) != len(want) || setupCalls[0] != want[0] || setupCalls[1] != want[1] {
		t.Errorf("setup order = %v, want %v", setupCalls, want)
	}
	if got := set.ActiveNames(); len(got) != 2 || got[0] != "order_first" || got[1] != "order_second" {
		t.Errorf("ActiveNames = %v", got)
	}

	// the disabled plugin was never touched
	reg, ok := set.Get("ghost_plugin")
	if !ok {
		t.Fatalf("ghost_plugin registration missing")
	}
	if reg.State != StateDisabled || reg.Err != nil {
		t.Errorf("ghost_plugin state = %v err = %v, want untouched", reg.State, reg.Err)
	}

	// plugins registered their listeners through the host
	if len(host.events) != 2 {
		t.Errorf("host events = %v, want one per plugin", host.events)
	}
}

func TestSetupGuardIsolatesFailure(t *testing.T) {
	setupCalls = nil
	set := NewSet(
		testDescriptors("always_fails", "order_first"),
		[]string{"always_fails", "order_first"},
		true,
	)
	if err := set.SetupAll(&stubHost{}); err != nil {
		t.Fatalf("SetupAll with guard returned error: %v", err)
	}

	failed, _ := set.Get("always_fails")
	if failed.State != StateFailed {
		t.Errorf("always_fails state = %v, want failed", failed.State)
	}
	if code := apperrors.CodeOf(failed.Err); code != apperrors.CodePluginSetup {
		t.Errorf("always_fails error code = %v, want %v", code, apperrors.CodePluginSetup)
	}

	survivor, _ := set.Get("order_first")
	if survivor.State != StateActive {
		t.Errorf("order_first state = %v, want active despite earlier failure", survivor.State)
	}
}

func TestSetupWithoutGuardAborts(t *testing.T) {
	setupCalls = nil
	set := NewSet(
		testDescriptors("always_fails", "order_first"),
		[]string{"always_fails", "order_first"},
		false,
	)
	err := set.SetupAll(&stubHost{})
	if err == nil {
		t.Fatalf("SetupAll without guard swallowed the failure")
	}
	if code := apperrors.CodeOf(err); code != apperrors.CodePluginSetup {
		t.Errorf("error code = %v, want %v", code, apperrors.CodePluginSetup)
	}
	for _, name := range setupCalls {
		if name == "order_first" {
			t.Errorf("order_first ran after an aborting failure")
		}
	}
}

func TestSetupPanicIsolated(t *testing.T) {
	set := NewSet(testDescriptors("always_panics"), []string{"always_panics"}, true)
	if err := set.SetupAll(&stubHost{}); err != nil {
		t.Fatalf("SetupAll error: %v", err)
	}
	reg, _ := set.Get("always_panics")
	if reg.State != StateFailed {
		t.Fatalf("always_panics state = %v, want failed", reg.State)
	}
	if code := apperrors.CodeOf(reg.Err); code != apperrors.CodePluginSetup {
		t.Errorf("error code = %v, want %v", code, apperrors.CodePluginSetup)
	}
	if !strings.Contains(reg.Err.Error(), "panicked") {
		t.Errorf("error %q does not mention the panic", reg.Err)
	}
}

func TestSetupMissingFactory(t *testing.T) {
	set := NewSet(testDescriptors("ghost_plugin"), []string{"ghost_plugin"}, true)
	if err := set.SetupAll(&stubHost{}); err != nil {
		t.Fatalf("SetupAll error: %v", err)
	}
	reg, _ := set.Get("ghost_plugin")
	if reg.State != StateFailed {
		t.Fatalf("ghost_plugin state = %v, want failed", reg.State)
	}
	if code := apperrors.CodeOf(reg.Err); code != apperrors.CodePluginImport {
		t.Errorf("error code = %v, want %v", code, apperrors.CodePluginImport)
	}

	strict := NewSet(testDescriptors("ghost_plugin"), []string{"ghost_plugin"}, false)
	if err := strict.SetupAll(&stubHost{}); apperrors.CodeOf(err) != apperrors.CodePluginImport {
		t.Errorf("strict SetupAll error = %v, want import failure", err)
	}
}

func TestMissingEnabledPlugins(t *testing.T) {
	set := NewSet(testDescriptors("order_first"), []string{"order_first", "not_discovered"}, true)
	missing := set.Missing()
	if len(missing) != 1 || missing[0] != "not_discovered" {
		t.Errorf("Missing = %v, want [not_discovered]", missing)
	}
}

func TestSetupAllSecondCallPanics(t *testing.T) {
	set := NewSet(testDescriptors("order_first"), []string{"order_first"}, true)
	if err := set.SetupAll(&stubHost{}); err != nil {
		t.Fatalf("SetupAll error: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("second SetupAll did not panic")
		}
	}()
	_ = set.SetupAll(&stubHost{})
}

func TestFactoriesBuildFreshInstances(t *testing.T) {
	builtInstances = nil
	for range 2 {
		set := NewSet(testDescriptors("counts_instances"), []string{"counts_instances"}, true)
		if err := set.SetupAll(&stubHost{}); err != nil {
			t.Fatalf("SetupAll error: %v", err)
		}
	}
	if len(builtInstances) != 2 {
		t.Fatalf("factory built %d instances, want 2", len(builtInstances))
	}
	if builtInstances[0] == builtInstances[1] {
		t.Errorf("both sets share one plugin instance")
	}
}

func TestRegisteredNamesSorted(t *testing.T) {
	names := RegisteredNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("RegisteredNames not sorted: %v", names)
		}
	}
	var found bool
	for _, name := range names {
		if name == "order_first" {
			found = true
		}
	}
	if !found {
		t.Errorf("RegisteredNames missing order_first: %v", names)
	}
}
