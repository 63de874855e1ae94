package zinefcgi

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("zine-fcgi", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Addr != "" {
		t.Fatalf("Addr = %q, want empty for the inherited stdin socket", cfg.Addr)
	}
}

func TestParseConfigOverrideUnixSocket(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("zine-fcgi", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "/run/zine/fcgi.sock"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Addr != "/run/zine/fcgi.sock" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, "/run/zine/fcgi.sock")
	}
}

func TestParseConfigOverrideTCPAddr(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("zine-fcgi", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "127.0.0.1:9000", "-instance", "/srv/blog"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, "127.0.0.1:9000")
	}
	if cfg.Instance != "/srv/blog" {
		t.Fatalf("Instance = %q, want %q", cfg.Instance, "/srv/blog")
	}
}
