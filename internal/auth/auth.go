// Package auth decides who may edit. Editors either sign in with the
// admin password, which issues a session cookie, or send a configured API
// key in the X-API-Key header.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/JonMunkholm/bondweb/internal/config"
)

const (
	// CookieName is the session cookie.
	CookieName = "bondweb_session"

	// HeaderAPIKey carries an API key.
	HeaderAPIKey = "X-API-Key"
)

var (
	// ErrLoginDisabled is returned when no admin password is configured.
	ErrLoginDisabled = errors.New("password login is not configured")

	// ErrBadPassword is returned for a wrong password.
	ErrBadPassword = errors.New("incorrect password")
)

// Authorizer reports whether a request comes from an editor.
type Authorizer interface {
	IsEditor(r *http.Request) bool
}

// Authenticator checks passwords, API keys and session cookies.
type Authenticator struct {
	password string
	apiKeys  []string
	secure   bool
	basePath string
	sessions *SessionStore
}

// New returns an Authenticator for cfg. basePath scopes the session
// cookie.
func New(cfg config.SecurityConfig, basePath string, sessions *SessionStore) *Authenticator {
	if basePath == "" {
		basePath = "/"
	}
	return &Authenticator{
		password: cfg.AdminPassword,
		apiKeys:  cfg.APIKeys,
		secure:   cfg.SecureCookies,
		basePath: basePath,
		sessions: sessions,
	}
}

// LoginEnabled reports whether an admin password is configured.
func (a *Authenticator) LoginEnabled() bool {
	return a.password != ""
}

// Login checks password and on success starts a session and sets its
// cookie on w.
func (a *Authenticator) Login(w http.ResponseWriter, password string) error {
	if !a.LoginEnabled() {
		return ErrLoginDisabled
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		return ErrBadPassword
	}

	token, expires := a.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     a.basePath,
		Expires:  expires,
		MaxAge:   int(a.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout ends the request's session, if any, and clears the cookie.
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		a.sessions.Revoke(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     a.basePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IsEditor reports whether r carries a valid API key or session.
func (a *Authenticator) IsEditor(r *http.Request) bool {
	return a.Method(r) != ""
}

// Method returns how r authenticated: "api-key", "session" or "".
func (a *Authenticator) Method(r *http.Request) string {
	if key := r.Header.Get(HeaderAPIKey); key != "" && isValidAPIKey(key, a.apiKeys) {
		return "api-key"
	}
	if c, err := r.Cookie(CookieName); err == nil && a.sessions.Valid(c.Value) {
		return "session"
	}
	return ""
}

// isValidAPIKey checks key against every configured key in constant time.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
