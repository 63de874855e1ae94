// Package cache provides the page and fragment cache behind a small
// interface. The backend is chosen per instance through the
// cache_system configuration key.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/instance"
)

// Cache stores opaque byte values under string keys. A ttl of zero or
// less means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Null is the no-op backend: every read misses, every write succeeds.
type Null struct{}

func (Null) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Null) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Null) Delete(context.Context, string) error { return nil }

func (Null) Clear(context.Context) error { return nil }

// TTL returns the instance's default cache lifetime.
func TTL(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Int("cache_timeout")) * time.Second
}

// FromConfig builds the backend named by cache_system. Relative
// filesystem cache paths resolve inside the instance directory.
func FromConfig(cfg *config.Config, inst *instance.Instance) (Cache, error) {
	system := cfg.String("cache_system")
	switch system {
	case "", "null":
		return Null{}, nil
	case "memory":
		return NewMemory(), nil
	case "filesystem":
		return NewFilesystem(inst.CacheDir(cfg.String("filesystem_cache_path")))
	case "redis":
		return NewRedis(cfg.String("redis_url"), cfg.String("iid"))
	default:
		return nil, fmt.Errorf("unknown cache_system %q", system)
	}
}
