package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Filesystem stores entries as files under one directory. Each file is
// an 8-byte expiry stamp (unix milliseconds, zero for none) followed by
// the payload. Expired files are removed lazily on read.
type Filesystem struct {
	dir string
	now func() time.Time
}

// NewFilesystem opens (and if needed creates) a directory-backed cache.
func NewFilesystem(dir string) (*Filesystem, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Filesystem{dir: dir, now: time.Now}, nil
}

// entryPath hashes the key so arbitrary key bytes map to safe filenames.
func (f *Filesystem) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".cache")
}

func (f *Filesystem) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}
	if len(data) < 8 {
		_ = os.Remove(f.entryPath(key))
		return nil, false, nil
	}
	expiresAt := int64(binary.BigEndian.Uint64(data[:8]))
	if expiresAt != 0 && f.now().UTC().UnixMilli() > expiresAt {
		_ = os.Remove(f.entryPath(key))
		return nil, false, nil
	}
	return data[8:], true, nil
}

func (f *Filesystem) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = f.now().UTC().Add(ttl).UnixMilli()
	}
	data := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(data[:8], uint64(expiresAt))
	copy(data[8:], value)

	path := f.entryPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (f *Filesystem) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (f *Filesystem) Clear(context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cache") {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	return nil
}
