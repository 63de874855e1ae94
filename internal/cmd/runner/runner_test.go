package runner

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zineproject/zine/internal/instance"
)

func TestOpenRequiresInstancePath(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", "   "} {
		if _, err := Open(path); err == nil {
			t.Fatalf("Open(%q) error = nil, want instance path error", path)
		} else if !strings.Contains(err.Error(), "no instance path") {
			t.Fatalf("Open(%q) error = %q, want mention of the missing path", path, err)
		}
	}
}

func TestHandlerServesSetupForFreshInstance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := instance.Scaffold(dir); err != nil {
		t.Fatalf("scaffold instance: %v", err)
	}
	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", dir, err)
	}
	t.Cleanup(func() { d.Close() })

	rec := httptest.NewRecorder()
	Handler(d).ServeHTTP(rec, httptest.NewRequest("GET", "http://blog.example/", nil))

	if rec.Code != 302 {
		t.Fatalf("status = %d, want 302 to the setup assistant", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/setup" {
		t.Fatalf("Location = %q, want %q", loc, "/setup")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected the middleware chain to stamp X-Request-ID")
	}
}
