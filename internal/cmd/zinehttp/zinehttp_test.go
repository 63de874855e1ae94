package zinehttp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("zine-http", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Addr != DefaultAddr {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
}

func TestParseConfigOverrideAddr(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("zine-http", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "127.0.0.1:9008"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Addr != "127.0.0.1:9008" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, "127.0.0.1:9008")
	}
}

func TestParseConfigOverrideInstance(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("zine-http", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-instance", "/srv/blog"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Instance != "/srv/blog" {
		t.Fatalf("Instance = %q, want %q", cfg.Instance, "/srv/blog")
	}
}
