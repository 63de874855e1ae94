// Package app assembles one blog application instance: configuration,
// storage, cache, sessions, themes, parsers, plugins, and the request
// dispatch built on top of them.
//
// An Application is built once per committed configuration and is
// immutable after setup: all registration (events, themes, parsers,
// routes, configuration variables) happens during construction, inside
// the setup stage. When the configuration changes on disk the dispatcher
// builds a replacement object instead of mutating this one.
package app

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/text/language"

	"github.com/zineproject/zine/internal/cache"
	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/event"
	"github.com/zineproject/zine/internal/i18n"
	"github.com/zineproject/zine/internal/instance"
	"github.com/zineproject/zine/internal/parsers"
	"github.com/zineproject/zine/internal/platform/errors"
	"github.com/zineproject/zine/internal/plugin"
	"github.com/zineproject/zine/internal/plugin/builtin"
	"github.com/zineproject/zine/internal/session"
	"github.com/zineproject/zine/internal/storage"
	"github.com/zineproject/zine/internal/storage/sqlite"
	"github.com/zineproject/zine/internal/theme"
)

// State is the lifecycle state of one application object.
type State int

const (
	// StateUninitialized: no committed configuration was found.
	StateUninitialized State = iota
	// StateSetup: construction and plugin setup are in progress.
	StateSetup
	// StateReady: serving requests. Terminal for this object; reloads
	// build a new one.
	StateReady
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Options carries construction overrides, of which tests are the main
// consumer.
type Options struct {
	// Store replaces the SQLite store opened from database_uri.
	Store storage.Store
	// Logger replaces the log_file sink.
	Logger *log.Logger
}

// Application is one fully set up blog instance.
type Application struct {
	inst     *instance.Instance
	cfg      *config.Config
	bus      *event.Bus
	set      *plugin.Set
	store    storage.Store
	cache    cache.Cache
	sessions *session.Manager
	locale   language.Tag

	logger   *log.Logger
	logLevel int
	logClose io.Closer

	state     State
	setupOpen bool

	themes  map[string]*theme.Theme
	active  *theme.Theme
	parsers map[string]parsers.Parser

	mux         *http.ServeMux
	routes      []string
	services    []string
	notFound    []NotFoundHandler
	adminPrefix string
}

// New builds and sets up an application for the instance. An instance
// without a committed configuration fails with a not-initialized error;
// the dispatcher catches that and serves the setup assistant instead.
func New(inst *instance.Instance, opts Options) (*Application, error) {
	if inst == nil {
		return nil, fmt.Errorf("instance is required")
	}
	cfg, err := config.Open(inst.ConfigPath(), config.DefaultVars())
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "load instance configuration", err)
	}
	a := &Application{
		inst:    inst,
		cfg:     cfg,
		bus:     event.NewBus(),
		themes:  make(map[string]*theme.Theme),
		parsers: make(map[string]parsers.Parser),
		mux:     http.NewServeMux(),
	}
	if !cfg.Exists() {
		return nil, errors.WithMetadata(errors.CodeNotInitialized,
			fmt.Sprintf("instance %s has no committed configuration", inst.Root()),
			map[string]string{"instance": inst.Root()})
	}

	a.state = StateSetup
	a.setupOpen = true
	a.initLogger(opts.Logger)

	if err := a.openStorage(opts.Store); err != nil {
		a.closeLogSink()
		return nil, err
	}
	a.cache = a.buildCache()
	sessions, err := session.FromConfig(cfg)
	if err != nil {
		a.teardown()
		return nil, errors.Wrap(errors.CodeInternal, "build session manager", err)
	}
	a.sessions = sessions
	a.locale = i18n.Normalize(cfg.String("language"))
	a.adminPrefix = normalizeAdminPrefix(cfg.String("admin_url_prefix"))

	a.registerBuiltins()
	if err := a.setupPlugins(); err != nil {
		a.teardown()
		return nil, err
	}
	a.resolveTheme()

	a.setupOpen = false
	a.bus.Seal()
	a.bus.Emit(event.ApplicationSetupDone{InstancePath: inst.Root()})
	a.state = StateReady
	a.Infof("application ready instance=%s plugins=%d routes=%d",
		inst.Root(), len(a.set.ActiveNames()), len(a.routes))
	return a, nil
}

// openStorage opens the configured database unless an override store was
// supplied.
func (a *Application) openStorage(override storage.Store) error {
	if override != nil {
		a.store = override
		return nil
	}
	store, err := sqlite.OpenURI(a.cfg.String("database_uri"), a.inst.Root())
	if err != nil {
		return errors.Wrap(errors.CodeStorage, "open instance database", err)
	}
	a.store = store
	return nil
}

// buildCache selects the configured cache backend, falling back to the
// null cache when the configuration cannot be satisfied.
func (a *Application) buildCache() cache.Cache {
	backend, err := cache.FromConfig(a.cfg, a.inst)
	if err != nil {
		a.Warnf("cache setup failed, using null cache error=%q", err)
		return cache.Null{}
	}
	return backend
}

// registerBuiltins installs the parsers, theme, and routes every
// instance ships with. Runs before plugin setup so plugins can rely on
// them.
func (a *Application) registerBuiltins() {
	for _, p := range parsers.Builtin() {
		a.parsers[p.Name()] = p
	}
	a.themes[theme.DefaultName] = theme.Default()
	a.notFound = []NotFoundHandler{
		redirectTrailingSlash,
		a.renderNotFoundPage,
	}
	a.registerRoutes()
}

// setupPlugins discovers descriptors, pairs them with the enabled list,
// and runs every enabled plugin's setup with this application as host.
func (a *Application) setupPlugins() error {
	searchPaths := []plugin.SearchPath{
		plugin.DirSearchPath(a.inst.PluginsDir(), true),
	}
	for _, extra := range a.cfg.List("plugin_searchpath") {
		searchPaths = append(searchPaths, plugin.DirSearchPath(a.inst.ResolvePath(extra), false))
	}
	searchPaths = append(searchPaths, builtin.Bundled())

	descriptors, problems := plugin.Discover(searchPaths)
	for _, problem := range problems {
		a.Warnf("plugin discovery problem=%q", problem)
	}

	a.set = plugin.NewSet(descriptors, a.cfg.List("plugins"), a.cfg.Bool("plugin_guard"))
	if err := a.set.SetupAll(a); err != nil {
		return err
	}
	for _, name := range a.set.Missing() {
		a.Warnf("enabled plugin not found name=%s", name)
	}
	for _, reg := range a.set.Registrations() {
		if reg.State == plugin.StateFailed {
			a.Errorf("plugin failed name=%s error=%q", reg.Descriptor.Name, reg.Err)
		}
	}
	return nil
}

// resolveTheme activates the configured theme, falling back to the
// default when it is not registered.
func (a *Application) resolveTheme() {
	name := a.cfg.String("theme")
	if t, ok := a.themes[name]; ok {
		a.active = t
		return
	}
	a.Warnf("theme not found name=%q, falling back to %s", name, theme.DefaultName)
	a.active = a.themes[theme.DefaultName]
}

// teardown releases resources acquired during a failed construction.
func (a *Application) teardown() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Errorf("close store error=%q", err)
		}
	}
	if closer, ok := a.cache.(io.Closer); ok {
		_ = closer.Close()
	}
	a.closeLogSink()
}

// Close releases the application's resources. The dispatcher calls it
// when a reload replaces this object.
func (a *Application) Close() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = err
		}
	}
	if closer, ok := a.cache.(io.Closer); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closeLogSink()
	return firstErr
}

// State returns the lifecycle state of this object.
func (a *Application) State() State {
	return a.state
}

// WantsReload reports whether the configuration changed on disk after
// this object was built.
func (a *Application) WantsReload() bool {
	return a.cfg.ChangedExternal()
}

// InstancePath returns the instance directory path.
func (a *Application) InstancePath() string {
	return a.inst.Root()
}

// Instance returns the backing instance layout.
func (a *Application) Instance() *instance.Instance {
	return a.inst
}

// Config exposes the instance configuration store.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Bus returns the application event bus.
func (a *Application) Bus() *event.Bus {
	return a.bus
}

// Plugins returns the plugin registrations for this instance.
func (a *Application) Plugins() *plugin.Set {
	return a.set
}

// Store returns the storage handle.
func (a *Application) Store() storage.Store {
	return a.store
}

// Cache returns the response cache.
func (a *Application) Cache() cache.Cache {
	return a.cache
}

// Sessions returns the session codec.
func (a *Application) Sessions() *session.Manager {
	return a.sessions
}

// Locale returns the blog language.
func (a *Application) Locale() language.Tag {
	return a.locale
}

// Theme returns the active theme.
func (a *Application) Theme() *theme.Theme {
	return a.active
}

// Routes lists registered route patterns in registration order.
func (a *Application) Routes() []string {
	out := make([]string, len(a.routes))
	copy(out, a.routes)
	return out
}

// ServiceEndpoints lists registered service endpoint names.
func (a *Application) ServiceEndpoints() []string {
	out := make([]string, len(a.services))
	copy(out, a.services)
	return out
}

// normalizeAdminPrefix canonicalizes the admin_url_prefix value to a
// rooted path without a trailing slash.
func normalizeAdminPrefix(prefix string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "/admin"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

// AdminPrefix returns the canonical admin URL prefix.
func (a *Application) AdminPrefix() string {
	return a.adminPrefix
}

// parserOr resolves a parser by name with fallback to the html and text
// builtins, in that order.
func (a *Application) parserOr(name string) parsers.Parser {
	if p, ok := a.parsers[name]; ok {
		return p
	}
	if p, ok := a.parsers["html"]; ok {
		return p
	}
	return parsers.TextParser{}
}

// assertSetupStage guards the registration API: every Add* method is
// setup-stage-only.
func (a *Application) assertSetupStage(op string) error {
	if !a.setupOpen {
		return errors.New(errors.CodeSetupWindow,
			fmt.Sprintf("%s called outside the setup stage", op))
	}
	return nil
}

// ConnectEvent implements plugin.Host.
func (a *Application) ConnectEvent(name string, fn event.Listener) error {
	return a.bus.Subscribe(name, fn)
}

// AddConfigVar implements plugin.Host.
func (a *Application) AddConfigVar(v config.Var) error {
	if err := a.assertSetupStage("AddConfigVar"); err != nil {
		return err
	}
	return a.cfg.RegisterVar(v)
}

// AddTheme implements plugin.Host.
func (a *Application) AddTheme(t *theme.Theme) error {
	if err := a.assertSetupStage("AddTheme"); err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("theme is required")
	}
	if _, dup := a.themes[t.Name()]; dup {
		return fmt.Errorf("theme %q already registered", t.Name())
	}
	a.themes[t.Name()] = t
	return nil
}

// AddParser implements plugin.Host.
func (a *Application) AddParser(p parsers.Parser) error {
	if err := a.assertSetupStage("AddParser"); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("parser is required")
	}
	if _, dup := a.parsers[p.Name()]; dup {
		return fmt.Errorf("parser %q already registered", p.Name())
	}
	a.parsers[p.Name()] = p
	return nil
}

// AddRoute implements plugin.Host. Pattern conflicts surface as errors
// instead of the mux panic.
func (a *Application) AddRoute(pattern string, handler http.Handler) (err error) {
	if err := a.assertSetupStage("AddRoute"); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("register route %q: %v", pattern, recovered)
		}
	}()
	a.mux.Handle(pattern, handler)
	a.routes = append(a.routes, pattern)
	return nil
}

// servicesPrefix is the URL prefix shared by all service endpoints.
const servicesPrefix = "/_services/"

// AddServiceEndpoint implements plugin.Host. The dotted endpoint name
// maps to a path under the services prefix.
func (a *Application) AddServiceEndpoint(name string, handler http.Handler) error {
	if err := a.assertSetupStage("AddServiceEndpoint"); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("service endpoint name is required")
	}
	if err := a.AddRoute(servicePath(name), handler); err != nil {
		return err
	}
	a.services = append(a.services, name)
	return nil
}

// servicePath maps a dotted endpoint name to its URL path.
func servicePath(name string) string {
	return servicesPrefix + strings.ReplaceAll(name, ".", "/")
}

// PublicConfigItems lists configuration for display surfaces. Hidden
// keys are cloaked, and cloak-insecure-configuration-var listeners may
// cloak further keys.
func (a *Application) PublicConfigItems() []config.Item {
	items := a.cfg.PublicItems(true)
	for idx := range items {
		for _, result := range a.bus.Emit(event.CloakInsecureConfigVar{Key: items[idx].Key}) {
			if cloak, ok := result.(bool); ok && cloak {
				items[idx].Value = "****"
				break
			}
		}
	}
	return items
}

// logger plumbing

const (
	levelDebug = iota
	levelInfo
	levelWarning
	levelError
)

var levelNames = [...]string{"debug", "info", "warning", "error"}

// parseLogLevel maps the log_level key to a gate; unknown values keep
// the default.
func parseLogLevel(value string) int {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "error":
		return levelError
	default:
		return levelWarning
	}
}

// initLogger builds the instance logger from log_file and log_level.
func (a *Application) initLogger(override *log.Logger) {
	a.logLevel = parseLogLevel(a.cfg.String("log_level"))
	if override != nil {
		a.logger = override
		return
	}
	sink := io.Writer(os.Stderr)
	if name := a.cfg.String("log_file"); name != "" && name != "-" {
		path := a.inst.ResolvePath(name)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Printf("open log file path=%s error=%q, logging to stderr", path, err)
		} else {
			sink = f
			a.logClose = f
		}
	}
	a.logger = log.New(sink, "", log.LstdFlags)
}

func (a *Application) closeLogSink() {
	if a.logClose != nil {
		_ = a.logClose.Close()
		a.logClose = nil
	}
}

func (a *Application) logf(level int, format string, args ...any) {
	if a.logger == nil || level < a.logLevel {
		return
	}
	a.logger.Printf(levelNames[level]+" "+format, args...)
}

// Debugf logs at debug level.
func (a *Application) Debugf(format string, args ...any) { a.logf(levelDebug, format, args...) }

// Infof logs at info level.
func (a *Application) Infof(format string, args ...any) { a.logf(levelInfo, format, args...) }

// Warnf logs at warning level.
func (a *Application) Warnf(format string, args ...any) { a.logf(levelWarning, format, args...) }

// Errorf logs at error level.
func (a *Application) Errorf(format string, args ...any) { a.logf(levelError, format, args...) }
