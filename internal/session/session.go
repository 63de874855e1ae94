// Package session issues and verifies the signed browser session cookie
// used by the administration area.
//
// Sessions are stateless HMAC-signed tokens keyed by the instance
// secret_key, so no server-side session table exists and rotating the
// secret invalidates every outstanding login at once.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zineproject/zine/internal/config"
)

// DefaultTTL is how long an issued session stays valid.
const DefaultTTL = 31 * 24 * time.Hour

var (
	// ErrInvalid reports a token that failed signature or claim checks.
	ErrInvalid = errors.New("session token is invalid")
	// ErrExpired reports a token past its expiry.
	ErrExpired = errors.New("session token is expired")
)

// Session captures the validated identity carried by a session token.
type Session struct {
	UserID    int64
	Username  string
	Admin     bool
	ExpiresAt time.Time
}

// sessionClaims is the internal claims type used for JWT parsing.
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	Username string `json:"unm"`
	Admin    bool   `json:"adm"`
}

// Manager issues and verifies session tokens for one instance.
type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

// NewManager builds a manager from an explicit secret and cookie name.
func NewManager(secret, cookieName string, ttl time.Duration) (*Manager, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if cookieName == "" {
		cookieName = "zine_session"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// FromConfig builds a manager from the instance configuration. The
// secret_key must have been committed by the setup assistant.
func FromConfig(cfg *config.Config) (*Manager, error) {
	secret := cfg.String("secret_key")
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("secret_key is not configured")
	}
	return NewManager(secret, cfg.String("session_cookie_name"), DefaultTTL)
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Issue signs a new session token for the given user.
func (m *Manager) Issue(userID int64, username string, admin bool) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("session user id is required")
	}
	now := m.now().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID:   userID,
		Username: username,
		Admin:    admin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Parse verifies a session token and returns the identity it carries.
func (m *Manager) Parse(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrInvalid
	}
	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return m.now().UTC() }),
	)
	if err != nil {
		return Session{}, mapJWTError(err)
	}
	if parsed.UserID <= 0 {
		return Session{}, ErrInvalid
	}
	if parsed.ExpiresAt == nil {
		return Session{}, ErrInvalid
	}
	return Session{
		UserID:    parsed.UserID,
		Username:  parsed.Username,
		Admin:     parsed.Admin,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}, nil
}

// Read returns the session carried by the request cookie, if any.
// A failed parse reads the same as a missing cookie.
func (m *Manager) Read(r *http.Request) (Session, bool) {
	if r == nil {
		return Session{}, false
	}
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie == nil {
		return Session{}, false
	}
	sess, err := m.Parse(cookie.Value)
	if err != nil {
		return Session{}, false
	}
	return sess, true
}

// Write sets the session cookie on the response.
func (m *Manager) Write(w http.ResponseWriter, r *http.Request, token string) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    strings.TrimSpace(token),
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie on the response.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// mapJWTError translates jwt library errors to package errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpired
	}
	return ErrInvalid
}

func isHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	return r.TLS != nil || r.URL.Scheme == "https"
}
