package dispatcher

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/zineproject/zine/internal/appctx"
	"github.com/zineproject/zine/internal/config"
	"github.com/zineproject/zine/internal/instance"
)

const testSecret = "0123456789abcdef0123456789abcdef"
const testPassword = "correct horse battery staple"

func newTestInstance(t *testing.T) *instance.Instance {
	t.Helper()
	inst, err := instance.Scaffold(t.TempDir())
	if err != nil {
		t.Fatalf("scaffold instance: %v", err)
	}
	return inst
}

func writeConfig(t *testing.T, inst *instance.Instance, lines ...string) {
	t.Helper()
	base := []string{
		"secret_key = " + testSecret,
		"database_uri = sqlite://zine.db",
		"blog_title = Slot Gazette",
	}
	content := strings.Join(append(base, lines...), "\n") + "\n"
	if err := os.WriteFile(inst.ConfigPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func newDispatcher(t *testing.T, inst *instance.Instance) *Dispatcher {
	t.Helper()
	d := New(inst, Options{Logger: log.New(io.Discard, "", 0)})
	t.Cleanup(func() { d.Close() })
	return d
}

func doGet(d *Dispatcher, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	return rec
}

func doPost(d *Dispatcher, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	return rec
}

func TestUninitializedInstanceGetsSetupAssistant(t *testing.T) {
	t.Parallel()
	d := newDispatcher(t, newTestInstance(t))

	rec := doGet(d, "/")
	if rec.Code != http.StatusFound {
		t.Fatalf("GET / = %d, want 302 to the wizard", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/setup" {
		t.Errorf("Location = %q, want /setup", got)
	}

	rec = doGet(d, "/setup")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /setup = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no configuration yet") {
		t.Errorf("wizard welcome page not served:\n%s", rec.Body.String())
	}
}

func TestWizardCompletionSwitchesToBlog(t *testing.T) {
	t.Parallel()
	d := newDispatcher(t, newTestInstance(t))

	rec := doPost(d, "/setup/finish", url.Values{
		"language":         {"en"},
		"database_uri":     {"sqlite://zine.db"},
		"username":         {"maud"},
		"password":         {testPassword},
		"password_confirm": {testPassword},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("finish = %d, want 200\n%s", rec.Code, rec.Body.String())
	}

	// The wizard switches maintenance mode on, so the front page is the
	// holding page while the login stays reachable.
	rec = doGet(d, "/")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET / after setup = %d, want 503 maintenance", rec.Code)
	}
	rec = doGet(d, "/admin/login")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /admin/login after setup = %d, want 200", rec.Code)
	}

	// The wizard itself is gone now.
	rec = doGet(d, "/setup")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /setup after setup = %d, want the blog's 503", rec.Code)
	}
}

func TestReloadAfterConfigCommit(t *testing.T) {
	t.Parallel()
	inst := newTestInstance(t)
	writeConfig(t, inst)
	d := newDispatcher(t, inst)

	rec := doGet(d, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Slot Gazette") {
		t.Fatalf("front page does not show the configured title:\n%s", rec.Body.String())
	}
	before, err := d.App()
	if err != nil {
		t.Fatalf("App: %v", err)
	}

	cfg, err := config.Open(inst.ConfigPath(), config.DefaultVars())
	if err != nil {
		t.Fatalf("Open config: %v", err)
	}
	tx := cfg.Edit()
	if err := tx.Set("blog_title", "Renamed Gazette"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rec = doGet(d, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / after commit = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Renamed Gazette") {
		t.Errorf("front page still shows the old title:\n%s", rec.Body.String())
	}
	after, err := d.App()
	if err != nil {
		t.Fatalf("App: %v", err)
	}
	if before == after {
		t.Error("reload served the same application object")
	}
}

func TestBrokenConfigIsServerErrorUntilFixed(t *testing.T) {
	t.Parallel()
	inst := newTestInstance(t)
	writeConfig(t, inst, "database_uri = postgres://db.internal/zine")
	d := newDispatcher(t, inst)

	rec := doGet(d, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("GET / with broken storage = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "cannot be served") {
		t.Errorf("error body = %q", rec.Body.String())
	}

	cfg, err := config.Open(inst.ConfigPath(), config.DefaultVars())
	if err != nil {
		t.Fatalf("Open config: %v", err)
	}
	tx := cfg.Edit()
	if err := tx.Set("database_uri", "sqlite://zine.db"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rec = doGet(d, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / after fixing the config = %d, want 200", rec.Code)
	}
}

func TestConcurrentRequestsShareOneBuild(t *testing.T) {
	t.Parallel()
	inst := newTestInstance(t)
	writeConfig(t, inst)
	d := newDispatcher(t, inst)

	const workers = 8
	var wg sync.WaitGroup
	apps := make([]appctx.Application, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := d.App()
			if err != nil {
				t.Errorf("App: %v", err)
				return
			}
			apps[i] = a
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if apps[i] != apps[0] {
			t.Fatalf("worker %d got a different application object", i)
		}
	}
}

// Serial: reads the process-wide current-application slot.
func TestCurrentApplicationPublished(t *testing.T) {
	inst := newTestInstance(t)
	writeConfig(t, inst)
	d := newDispatcher(t, inst)

	if rec := doGet(d, "/"); rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", rec.Code)
	}
	current, ok := appctx.Current()
	if !ok {
		t.Fatal("no current application published after the first request")
	}
	if current.InstancePath() != inst.Root() {
		t.Errorf("current instance = %q, want %q", current.InstancePath(), inst.Root())
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := appctx.Current(); ok {
		t.Error("current application still published after Close")
	}
}

func TestClosedDispatcherRejectsRequests(t *testing.T) {
	inst := newTestInstance(t)
	writeConfig(t, inst)
	d := newDispatcher(t, inst)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rec := doGet(d, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("GET / after Close = %d, want 500", rec.Code)
	}
}
