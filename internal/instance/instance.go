// Package instance models the on-disk layout of one deployed engine
// instance: the configuration file at the root, instance-local plugin
// descriptors, uploads, and the cache directory.
//
// Instances are created by the management CLI or the web setup assistant.
// Request handling never creates one implicitly.
package instance

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the configuration file stored at the instance root.
const ConfigFileName = "zine.ini"

// DatabaseFileName is the default SQLite database file for new instances.
const DatabaseFileName = "zine.db"

const (
	pluginsDirName = "plugins"
	uploadsDirName = "uploads"
	cacheDirName   = "cache"
)

// Instance is one deployed configuration + data directory.
// Identity is the filesystem path.
type Instance struct {
	root string
}

// Open returns the instance rooted at path. The directory must exist;
// whether it holds a committed configuration is a separate question
// answered by Initialized.
func Open(root string) (*Instance, error) {
	if root == "" {
		return nil, fmt.Errorf("instance root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve instance root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat instance root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("instance root %q is not a directory", abs)
	}
	return &Instance{root: abs}, nil
}

// Root returns the absolute instance directory.
func (i *Instance) Root() string {
	return i.root
}

// ConfigPath returns the path of the instance configuration file.
func (i *Instance) ConfigPath() string {
	return filepath.Join(i.root, ConfigFileName)
}

// PluginsDir returns the instance-local plugin descriptor directory.
func (i *Instance) PluginsDir() string {
	return filepath.Join(i.root, pluginsDirName)
}

// UploadsDir returns the binary upload directory.
func (i *Instance) UploadsDir() string {
	return filepath.Join(i.root, uploadsDirName)
}

// CacheDir resolves the filesystem cache directory. Relative paths are
// interpreted against the instance root.
func (i *Instance) CacheDir(configured string) string {
	if configured == "" {
		configured = cacheDirName
	}
	return i.ResolvePath(configured)
}

// ResolvePath resolves a possibly relative path against the instance root.
func (i *Instance) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(i.root, p)
}

// Initialized reports whether a configuration file has been committed for
// this instance.
func (i *Instance) Initialized() bool {
	info, err := os.Stat(i.ConfigPath())
	return err == nil && !info.IsDir()
}

// Scaffold creates the instance subdirectories. It is idempotent and does
// not touch the configuration file.
func Scaffold(root string) (*Instance, error) {
	if root == "" {
		return nil, fmt.Errorf("instance root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve instance root: %w", err)
	}
	for _, dir := range []string{abs,
		filepath.Join(abs, pluginsDirName),
		filepath.Join(abs, uploadsDirName),
		filepath.Join(abs, cacheDirName),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Instance{root: abs}, nil
}
