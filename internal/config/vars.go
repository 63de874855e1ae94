package config

import (
	"sort"
	"strconv"
	"strings"
)

// Kind describes how a variable's raw string value converts to a Go value.
type Kind int

const (
	// KindString passes the raw value through.
	KindString Kind = iota
	// KindBool accepts true/false, yes/no, on/off, 1/0.
	KindBool
	// KindInt parses a base-10 integer.
	KindInt
	// KindList splits on commas and trims each element.
	KindList
)

// Var declares a known configuration variable with its typed default.
// The default is stored in primitive (file) form.
type Var struct {
	Name    string
	Kind    Kind
	Default string
}

// StringVar declares a string variable.
func StringVar(name, def string) Var {
	return Var{Name: name, Kind: KindString, Default: def}
}

// BoolVar declares a boolean variable.
func BoolVar(name string, def bool) Var {
	return Var{Name: name, Kind: KindBool, Default: formatBool(def)}
}

// IntVar declares an integer variable.
func IntVar(name string, def int) Var {
	return Var{Name: name, Kind: KindInt, Default: strconv.Itoa(def)}
}

// ListVar declares a comma-separated list variable.
func ListVar(name string, def ...string) Var {
	return Var{Name: name, Kind: KindList, Default: strings.Join(def, ", ")}
}

// DefaultVars returns the core variable set every instance understands.
// Plugins register additional variables during the setup stage.
func DefaultVars() []Var {
	return []Var{
		// general settings
		StringVar("database_uri", ""),
		StringVar("blog_title", "My Zine Blog"),
		StringVar("blog_tagline", "just another Zine blog"),
		StringVar("blog_url", ""),
		BoolVar("maintenance_mode", false),
		StringVar("session_cookie_name", "zine_session"),
		StringVar("theme", "default"),
		StringVar("secret_key", ""),
		StringVar("language", "en"),
		ListVar("plugin_searchpath"),

		// iid is the internal unique id of the instance. The setup
		// assistant generates one; changing it later invalidates
		// instance-scoped cache keys.
		StringVar("iid", ""),

		// logger settings
		StringVar("log_file", "zine.log"),
		StringVar("log_level", "warning"),

		// if set, internal errors are not caught and panics reach the
		// hosting layer. Useful together with debugging middleware.
		BoolVar("passthrough_errors", false),

		// url settings
		StringVar("admin_url_prefix", "/admin"),

		// cache settings
		IntVar("cache_timeout", 300),
		StringVar("cache_system", "null"),
		StringVar("redis_url", ""),
		StringVar("filesystem_cache_path", "cache"),

		// parser settings
		StringVar("default_parser", "html"),
		StringVar("comment_parser", "text"),

		// post view
		IntVar("posts_per_page", 10),

		// plugin settings
		BoolVar("plugin_guard", true),
		ListVar("plugins"),
	}
}

// HiddenKeys lists variables cloaked in public listings.
var HiddenKeys = map[string]bool{
	"iid":        true,
	"secret_key": true,
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// parseBool converts the primitive forms accepted in config files.
func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0", "":
		return false, true
	}
	return false, false
}

// convert turns a raw value into the variable's typed Go value, falling
// back to the default when the raw form does not parse.
func (v Var) convert(raw string) any {
	switch v.Kind {
	case KindBool:
		if b, ok := parseBool(raw); ok {
			return b
		}
		b, _ := parseBool(v.Default)
		return b
	case KindInt:
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return n
		}
		n, _ := strconv.Atoi(v.Default)
		return n
	case KindList:
		return splitList(raw)
	default:
		return raw
	}
}

// primitive renders a typed Go value into file form for this variable.
func (v Var) primitive(value any) (string, bool) {
	switch v.Kind {
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return "", false
		}
		return formatBool(b), true
	case KindInt:
		switch n := value.(type) {
		case int:
			return strconv.Itoa(n), true
		case int64:
			return strconv.FormatInt(n, 10), true
		}
		return "", false
	case KindList:
		switch l := value.(type) {
		case []string:
			return strings.Join(l, ", "), true
		case string:
			return l, true
		}
		return "", false
	default:
		s, ok := value.(string)
		return s, ok
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
