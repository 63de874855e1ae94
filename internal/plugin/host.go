package plugin

import (
	"net/http"

	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/event"
	"github.com/zineproject/zine/internal/parsers"
	"github.com/zineproject/zine/internal/theme"
)

// Host is the application surface a plugin sees during its setup stage.
// Every method is setup-stage-only: calls after the stage closes fail.
type Host interface {
	// ConnectEvent subscribes a listener to a named event.
	ConnectEvent(name string, fn event.Listener) error
	// AddConfigVar declares a plugin configuration variable; plugin
	// variables live in a file section named after the plugin, addressed
	// as "plugin_name/key".
	AddConfigVar(v config.Var) error
	// AddTheme registers an additional theme.
	AddTheme(t *theme.Theme) error
	// AddParser registers an additional markup parser.
	AddParser(p parsers.Parser) error
	// AddRoute mounts a handler on the public URL map.
	AddRoute(pattern string, handler http.Handler) error
	// AddServiceEndpoint mounts a handler under the shared services
	// prefix, addressed by a dotted endpoint name.
	AddServiceEndpoint(name string, handler http.Handler) error

	// Config exposes the instance configuration store.
	Config() *config.Config
	// InstancePath returns the instance directory path.
	InstancePath() string
}
