package app

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/event"
	"github.com/zineproject/zine/internal/instance"
	"github.com/zineproject/zine/internal/platform/errors"
	"github.com/zineproject/zine/internal/platform/httpx"
	"github.com/zineproject/zine/internal/plugin"
	"github.com/zineproject/zine/internal/storage"
	"github.com/zineproject/zine/internal/theme"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// probeSink collects event names recorded by the probe plugin. Tests
// that read it must not run in parallel with each other.
var probeSink struct {
	mu    sync.Mutex
	lines *[]string
}

func captureProbeEvents(t *testing.T) *[]string {
	t.Helper()
	lines := &[]string{}
	probeSink.mu.Lock()
	probeSink.lines = lines
	probeSink.mu.Unlock()
	t.Cleanup(func() {
		probeSink.mu.Lock()
		probeSink.lines = nil
		probeSink.mu.Unlock()
	})
	return lines
}

func recordProbeEvent(name string) {
	probeSink.mu.Lock()
	defer probeSink.mu.Unlock()
	if probeSink.lines != nil {
		*probeSink.lines = append(*probeSink.lines, name)
	}
}

func init() {
	plugin.Register("probe", func() plugin.Plugin { return probePlugin{} })
	plugin.Register("faulty", func() plugin.Plugin { return faultyPlugin{} })
}

// probePlugin exercises every host registration surface from a plugin's
// point of view.
type probePlugin struct{}

func (probePlugin) Setup(host plugin.Host) error {
	for _, name := range []string{
		event.NameApplicationSetupDone,
		event.NameAfterUserLogin,
		event.NameAfterUserLogout,
	} {
		if err := host.ConnectEvent(name, func(ev event.Event) any {
			recordProbeEvent(ev.EventName())
			return nil
		}); err != nil {
			return err
		}
	}
	if err := host.ConnectEvent(event.NameAfterRequestSetup, func(ev event.Event) any {
		setup, ok := ev.(event.AfterRequestSetup)
		if !ok || setup.Request.URL.Path != "/probe/intercept" {
			return nil
		}
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			fmt.Fprint(w, "intercepted")
		})
	}); err != nil {
		return err
	}
	if err := host.ConnectEvent(event.NameBeforeResponseProcessed, func(ev event.Event) any {
		processed, ok := ev.(event.BeforeResponseProcessed)
		if !ok {
			return nil
		}
		processed.Response.Header().Set("X-Probe", "seen")
		if processed.Request.URL.Path == "/probe/replace" {
			replacement := httpx.NewBuffer()
			replacement.Header().Set("Content-Type", "text/plain; charset=utf-8")
			replacement.SetStatus(http.StatusAccepted)
			replacement.SetBody([]byte("replaced"))
			return replacement
		}
		return nil
	}); err != nil {
		return err
	}
	if err := host.ConnectEvent(event.NameBeforeMetadataAssembled, func(event.Event) any {
		return template.HTML(`<meta name="probe" content="on">`)
	}); err != nil {
		return err
	}
	if err := host.ConnectEvent(event.NameCloakInsecureConfigVar, func(ev event.Event) any {
		cloak, ok := ev.(event.CloakInsecureConfigVar)
		return ok && cloak.Key == "redis_url"
	}); err != nil {
		return err
	}
	if err := host.AddParser(shoutParser{}); err != nil {
		return err
	}
	if err := host.AddRoute("/probe/panic", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("probe panic")
	})); err != nil {
		return err
	}
	return host.AddServiceEndpoint("probe.ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
}

// shoutParser uppercases comments, selected via comment_parser = shout.
type shoutParser struct{}

func (shoutParser) Name() string        { return "shout" }
func (shoutParser) DisplayName() string { return "Shout" }
func (shoutParser) Parse(input string) (string, error) {
	return "<p>" + template.HTMLEscapeString(strings.ToUpper(input)) + "</p>", nil
}

// faultyPlugin panics during setup to exercise the plugin guard.
type faultyPlugin struct{}

func (faultyPlugin) Setup(plugin.Host) error { panic("faulty plugin exploded") }

func newTestInstance(t *testing.T) *instance.Instance {
	t.Helper()
	inst, err := instance.Scaffold(t.TempDir())
	if err != nil {
		t.Fatalf("scaffold instance: %v", err)
	}
	return inst
}

func writeConfig(t *testing.T, inst *instance.Instance, lines ...string) {
	t.Helper()
	base := []string{
		"secret_key = " + testSecret,
		"database_uri = sqlite://zine.db",
		"blog_title = Probe Gazette",
	}
	content := strings.Join(append(base, lines...), "\n") + "\n"
	if err := os.WriteFile(inst.ConfigPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeDescriptor installs an instance-local descriptor so the named
// registered factory becomes discoverable.
func writeDescriptor(t *testing.T, inst *instance.Instance, name string) {
	t.Helper()
	dir := filepath.Join(inst.PluginsDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create descriptor dir: %v", err)
	}
	meta := "display_name: " + name + "\nauthor: Tests\nversion: \"1.0\"\n"
	if err := os.WriteFile(filepath.Join(dir, plugin.MetadataFileName), []byte(meta), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
}

func buildApp(t *testing.T, inst *instance.Instance) *Application {
	t.Helper()
	a, err := New(inst, Options{Logger: log.New(io.Discard, "", 0)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func seedUser(t *testing.T, a *Application, username string, admin bool) storage.User {
	t.Helper()
	user, err := a.Store().CreateUser(context.Background(), storage.NewUser{
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse battery staple",
		IsAdmin:  admin,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func seedPost(t *testing.T, a *Application, authorID int64, slug, title string, published time.Time) storage.Post {
	t.Helper()
	post, err := a.Store().CreatePost(context.Background(), storage.NewPost{
		Slug:        slug,
		Title:       title,
		Body:        "<p>body of " + slug + "</p>",
		HTML:        "<p>body of " + slug + "</p>",
		Parser:      "html",
		AuthorID:    authorID,
		PublishedAt: published,
	})
	if err != nil {
		t.Fatalf("create post %s: %v", slug, err)
	}
	return post
}

func TestNewFailsWithoutCommittedConfig(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t)
	_, err := New(inst, Options{Logger: log.New(io.Discard, "", 0)})
	if !errors.IsCode(err, errors.CodeNotInitialized) {
		t.Fatalf("New error = %v, want not-initialized", err)
	}
}

func TestNewBuildsReadyApplication(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t)
	writeConfig(t, inst)
	a := buildApp(t, inst)

	if a.State() != StateReady {
		t.Errorf("State = %v, want %v", a.State(), StateReady)
	}
	if !a.Bus().Sealed() {
		t.Error("bus not sealed after setup")
	}
	if a.Theme().Name() != theme.DefaultName {
		t.Errorf("active theme = %q, want %q", a.Theme().Name(), theme.DefaultName)
	}
	if a.WantsReload() {
		t.Error("WantsReload true right after build")
	}
	if a.InstancePath() != inst.Root() {
		t.Errorf("InstancePath = %q, want %q", a.InstancePath(), inst.Root())
	}
}

func TestRegistrationClosedAfterSetup(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t)
	writeConfig(t, inst)
	a := buildApp(t, inst)

	if err := a.AddTheme(theme.Default()); !errors.IsCode(err, errors.CodeSetupWindow) {
		t.Errorf("AddTheme error = %v, want setup-window", err)
	}
	if err := a.AddConfigVar(config.StringVar("late/marker", "")); !errors.IsCode(err, errors.CodeSetupWindow) {
		t.Errorf("AddConfigVar error = %v, want setup-window", err)
	}
	if err := a.AddRoute("/late", http.NotFoundHandler()); !errors.IsCode(err, errors.CodeSetupWindow) {
		t.Errorf("AddRoute error = %v, want setup-window", err)
	}
	err := a.ConnectEvent(event.NameAfterUserLogin, func(event.Event) any { return nil })
	if !errors.IsCode(err, errors.CodeSetupWindow) {
		t.Errorf("ConnectEvent error = %v, want setup-window", err)
	}
}

func TestWantsReloadAfterConfigCommit(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t)
	writeConfig(t, inst)
	a := buildApp(t, inst)

	tx := a.Config().Edit()
	if err := tx.SetString("blog_title", "Renamed Gazette"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !a.WantsReload() {
		t.Error("WantsReload false after committed change")
	}
}

func TestUnknownThemeFallsBackToDefault(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t)
	writeConfig(t, inst, "theme = missing_theme")
	a := buildApp(t, inst)

	if a.Theme().Name() != theme.DefaultName {
		t.Errorf("active theme = %q, want fallback %q", a.Theme().Name(), theme.DefaultName)
	}
}

func TestPluginGuardIsolatesFailure(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t)
	writeDescriptor(t, inst, "faulty")
	writeConfig(t, inst, "plugins = faulty")
	a := buildApp(t, inst)

	if a.State() != StateReady {
		t.Fatalf("State = %v, want %v", a.State(), StateReady)
	}
	reg, ok := a.Plugins().Get("faulty")
	if !ok {
		t.Fatal("faulty plugin not tracked")
	}
	if reg.State != plugin.StateFailed {
		t.Errorf("faulty state = %v, want %v", reg.State, plugin.StateFailed)
	}
	if reg.Err == nil {
		t.Error("faulty plugin error not recorded")
	}
}

func TestPluginGuardOffFailsConstruction(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t)
	writeDescriptor(t, inst, "faulty")
	writeConfig(t, inst, "plugins = faulty", "plugin_guard = false")
	_, err := New(inst, Options{Logger: log.New(io.Discard, "", 0)})
	if err == nil {
		t.Fatal("New succeeded with a failing plugin and the guard off")
	}
}

func TestEnabledPluginWithoutDescriptorIsMissing(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t)
	writeConfig(t, inst, "plugins = probe")
	a := buildApp(t, inst)

	missing := a.Plugins().Missing()
	if len(missing) != 1 || missing[0] != "probe" {
		t.Errorf("Missing = %v, want [probe]", missing)
	}
}

func TestPublicConfigItemsCloaking(t *testing.T) {
	t.Parallel()

	inst := newTestInstance(t)
	writeDescriptor(t, inst, "probe")
	writeConfig(t, inst,
		"plugins = probe",
		"redis_url = redis://:hunter2@localhost:6379/0",
	)
	a := buildApp(t, inst)

	values := make(map[string]string)
	for _, item := range a.PublicConfigItems() {
		values[item.Key] = item.Value
	}
	if values["secret_key"] != "****" {
		t.Errorf("secret_key = %q, want cloaked", values["secret_key"])
	}
	if values["redis_url"] != "****" {
		t.Errorf("redis_url = %q, want cloaked by listener", values["redis_url"])
	}
	if values["blog_title"] != "Probe Gazette" {
		t.Errorf("blog_title = %q, want visible", values["blog_title"])
	}
}

func TestTwoInstancesDoNotSharePluginState(t *testing.T) {
	t.Parallel()

	buildWithColor := func(color string) *Application {
		inst := newTestInstance(t)
		writeConfig(t, inst,
			"plugins = eric_the_fish",
			"",
			"[eric_the_fish]",
			"fish_color = "+color,
		)
		return buildApp(t, inst)
	}
	first := buildWithColor("purple")
	second := buildWithColor("green")

	firstBody := getBody(t, first, "/")
	secondBody := getBody(t, second, "/")
	if !strings.Contains(firstBody, "color: purple") {
		t.Error("first instance does not render its own fish color")
	}
	if !strings.Contains(secondBody, "color: green") {
		t.Error("second instance does not render its own fish color")
	}
}
