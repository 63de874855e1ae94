// Package sqlite implements blog persistence over a single SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/zineproject/zine/internal/platform/sqlitemigrate"
	"github.com/zineproject/zine/internal/storage"
	"github.com/zineproject/zine/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// URIScheme prefixes every SQLite database_uri value.
const URIScheme = "sqlite://"

// Store implements storage.Store over SQLite.
//
// One SQLite file backs the whole instance so posts, comments, and
// accounts share the same transaction and visibility boundaries.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// ResolveURI translates a sqlite:// database_uri into a file path.
// Relative paths resolve against the instance root; ":memory:" passes
// through for tests.
func ResolveURI(uri, instanceRoot string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", fmt.Errorf("database uri is required")
	}
	if !strings.HasPrefix(uri, URIScheme) {
		return "", fmt.Errorf("unsupported database uri %q: only %s<path> is supported", uri, URIScheme)
	}
	path := strings.TrimPrefix(uri, URIScheme)
	if path == "" {
		return "", fmt.Errorf("database uri %q has no path", uri)
	}
	if path == ":memory:" || filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Join(instanceRoot, path), nil
}

// OpenURI opens the store described by a sqlite:// database_uri.
func OpenURI(uri, instanceRoot string) (*Store, error) {
	path, err := ResolveURI(uri, instanceRoot)
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Open opens a blog SQLite store and applies bundled migrations.
//
// This keeps startup and schema evolution in one place, instead of
// requiring callers to coordinate migrations independently.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// isUniqueViolation detects SQLite unique-constraint failures.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
