package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zineproject/zine/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", "zine_session", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Issue(7, "ada", true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	sess, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sess.UserID != 7 || sess.Username != "ada" || !sess.Admin {
		t.Errorf("session = %+v", sess)
	}
	if !sess.ExpiresAt.After(time.Now()) {
		t.Errorf("expiry %v is not in the future", sess.ExpiresAt)
	}
}

func TestIssueRequiresUserID(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Issue(0, "ada", false); err == nil {
		t.Errorf("zero user id accepted")
	}
}

func TestParseRejectsTampered(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Issue(7, "ada", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := m.Parse(tampered); !errors.Is(err, ErrInvalid) {
		t.Errorf("Parse tampered = %v, want ErrInvalid", err)
	}
	if _, err := m.Parse(""); !errors.Is(err, ErrInvalid) {
		t.Errorf("Parse empty = %v, want ErrInvalid", err)
	}
}

func TestParseRejectsOtherSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager("other-secret", "zine_session", time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := other.Issue(7, "ada", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, ErrInvalid) {
		t.Errorf("Parse foreign token = %v, want ErrInvalid", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := newTestManager(t)
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.Issue(7, "ada", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := m.Parse(token); !errors.Is(err, ErrExpired) {
		t.Errorf("Parse expired = %v, want ErrExpired", err)
	}
}

func TestCookieRoundTrip(t *testing.T) {
	m := newTestManager(t)
	token, err := m.Issue(7, "ada", true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "https://blog.example.test/admin", nil)
	m.Write(rr, req, token)

	cookie, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie: %v", err)
	}
	if cookie.Name != "zine_session" {
		t.Errorf("cookie name = %q", cookie.Name)
	}
	if !cookie.HttpOnly || !cookie.Secure {
		t.Errorf("cookie flags HttpOnly=%v Secure=%v", cookie.HttpOnly, cookie.Secure)
	}

	readReq := httptest.NewRequest(http.MethodGet, "https://blog.example.test/admin", nil)
	readReq.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	sess, ok := m.Read(readReq)
	if !ok {
		t.Fatalf("Read: no session")
	}
	if sess.UserID != 7 || !sess.Admin {
		t.Errorf("session = %+v", sess)
	}
}

func TestReadMissingOrGarbageCookie(t *testing.T) {
	m := newTestManager(t)

	if _, ok := m.Read(nil); ok {
		t.Errorf("nil request produced a session")
	}
	req := httptest.NewRequest(http.MethodGet, "http://blog.example.test/", nil)
	if _, ok := m.Read(req); ok {
		t.Errorf("missing cookie produced a session")
	}
	req.AddCookie(&http.Cookie{Name: "zine_session", Value: "not-a-token"})
	if _, ok := m.Read(req); ok {
		t.Errorf("garbage cookie produced a session")
	}
}

func TestClearExpiresCookie(t *testing.T) {
	m := newTestManager(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://blog.example.test/", nil)
	m.Clear(rr, req)

	cookie, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie: %v", err)
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("cookie max-age = %d, want < 0", cookie.MaxAge)
	}
}

func TestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zine.ini")
	if err := os.WriteFile(path, []byte("secret_key = s3cret\nsession_cookie_name = my_session\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Open(path, config.DefaultVars())
	if err != nil {
		t.Fatalf("open config: %v", err)
	}

	m, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if m.CookieName() != "my_session" {
		t.Errorf("cookie name = %q", m.CookieName())
	}
}

func TestFromConfigRequiresSecret(t *testing.T) {
	cfg, err := config.Open(filepath.Join(t.TempDir(), "zine.ini"), config.DefaultVars())
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := FromConfig(cfg); err == nil {
		t.Errorf("missing secret accepted")
	}
}
