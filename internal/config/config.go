// Package config implements the per-instance configuration store: an
// ini-style file of typed key/value settings with transactional commits.
//
// Values are kept in raw string form and converted on access; a raw value
// that does not parse falls back to the variable default instead of
// erroring. Keys of other sections are addressed as "section/key"; plugin
// settings live in sections named after the plugin. Unknown keys found in
// the file are preserved across commits so settings of disabled plugins
// survive.
//
// Reads outside a transaction always observe the last committed state.
// Edits are staged on a Transaction and applied atomically on Commit.
// Single-writer access per instance is a caller responsibility; concurrent
// transactions against the same file are not interleave-safe.
package config

import (
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"
)

// Config is the committed configuration of one instance.
type Config struct {
	path string

	mu       sync.RWMutex
	vars     map[string]Var
	values   map[string]string
	comments map[string]string
	exists   bool
	loadTime time.Time
}

// Open reads the configuration file at path. A missing file is not an
// error: the store reports Exists() == false and serves defaults, and the
// caller decides whether that means an uninitialized instance. A file that
// exists but cannot be read is an error.
func Open(path string, vars []Var) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("configuration path is required")
	}
	cfg := &Config{
		path:     path,
		vars:     make(map[string]Var, len(vars)),
		values:   make(map[string]string),
		comments: make(map[string]string),
	}
	for _, v := range vars {
		cfg.vars[v.Name] = v
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("stat configuration: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open configuration: %w", err)
	}
	defer f.Close()

	values, comments, err := parseFile(f)
	if err != nil {
		return nil, err
	}
	cfg.values = values
	cfg.comments = comments
	cfg.exists = true
	cfg.loadTime = info.ModTime()
	return cfg, nil
}

// Path returns the configuration file path.
func (c *Config) Path() string {
	return c.path
}

// Exists reports whether a committed configuration file backs this store.
func (c *Config) Exists() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exists
}

// RegisterVar adds a variable declaration, typically a plugin setting
// registered during the setup stage. Re-registering a known name fails.
func (c *Config) RegisterVar(v Var) error {
	if v.Name == "" {
		return fmt.Errorf("variable name is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.vars[v.Name]; ok {
		return fmt.Errorf("configuration variable %q already registered", v.Name)
	}
	c.vars[v.Name] = v
	return nil
}

// Known reports whether the key names a registered variable.
func (c *Config) Known(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.vars[normalizeKey(key)]
	return ok
}

// Raw returns the unconverted file value for a key and whether the file
// carries one at all.
func (c *Config) Raw(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[normalizeKey(key)]
	return v, ok
}

// value resolves the typed value of a registered variable.
func (c *Config) value(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key = normalizeKey(key)
	v, ok := c.vars[key]
	if !ok {
		return nil
	}
	raw, ok := c.values[key]
	if !ok {
		raw = v.Default
	}
	return v.convert(raw)
}

// String returns the string value of a registered variable.
func (c *Config) String(key string) string {
	s, _ := c.value(key).(string)
	return s
}

// Bool returns the boolean value of a registered variable.
func (c *Config) Bool(key string) bool {
	b, _ := c.value(key).(bool)
	return b
}

// Int returns the integer value of a registered variable.
func (c *Config) Int(key string) int {
	n, _ := c.value(key).(int)
	return n
}

// List returns the comma-list value of a registered variable.
func (c *Config) List(key string) []string {
	l, _ := c.value(key).([]string)
	return l
}

// Edit starts a new transaction against this store.
func (c *Config) Edit() *Transaction {
	return &Transaction{
		cfg:    c,
		values: make(map[string]string),
	}
}

// ChangedExternal reports whether the file mtime is newer than the load
// time of this store. Commits through this store count: anything built
// from the loaded snapshot is stale once the file is newer.
func (c *Config) ChangedExternal() bool {
	info, err := os.Stat(c.path)
	if err != nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return info.ModTime().After(c.loadTime)
}

// Touch bumps the file mtime so dispatchers pick up a reload.
func (c *Config) Touch() error {
	now := time.Now()
	if err := os.Chtimes(c.path, now, now); err != nil {
		return fmt.Errorf("touch configuration: %w", err)
	}
	return nil
}

// Item is one entry of a public configuration listing.
type Item struct {
	Key     string
	Value   string
	Default string
}

// PublicItems lists all registered variables sorted by key. With
// hideInsecure set, hidden keys are cloaked and credentials inside the
// database URI are masked.
func (c *Config) PublicItems(hideInsecure bool) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]Item, 0, len(c.vars))
	for _, key := range sortedKeys(c.vars) {
		v := c.vars[key]
		raw, ok := c.values[key]
		if !ok {
			raw = v.Default
		}
		if hideInsecure {
			if HiddenKeys[key] {
				raw = "****"
			} else if key == "database_uri" {
				raw = SecureDatabaseURI(raw)
			}
		}
		items = append(items, Item{Key: key, Value: raw, Default: v.Default})
	}
	return items
}

// SecureDatabaseURI masks the password component of a database URI for
// display.
func SecureDatabaseURI(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.User == nil {
		return uri
	}
	if _, has := parsed.User.Password(); has {
		parsed.User = url.UserPassword(parsed.User.Username(), "***")
	}
	return parsed.String()
}
