package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/bondweb/internal/config"
)

func newTestAuth(password string, keys ...string) *Authenticator {
	return New(config.SecurityConfig{AdminPassword: password, APIKeys: keys}, "/", NewSessionStore(time.Hour))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		password string
		attempt  string
		wantErr  error
	}{
		{"correct password", "s3cret", "s3cret", nil},
		{"wrong password", "s3cret", "guess", ErrBadPassword},
		{"empty attempt", "s3cret", "", ErrBadPassword},
		{"login disabled", "", "", ErrLoginDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuth(tt.password)
			rec := httptest.NewRecorder()

			err := a.Login(rec, tt.attempt)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
			}
			cookies := rec.Result().Cookies()
			if tt.wantErr != nil {
				if len(cookies) != 0 {
					t.Errorf("failed login set cookies: %v", cookies)
				}
				return
			}
			if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly {
				t.Fatalf("cookies = %v", cookies)
			}

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.AddCookie(cookies[0])
			if !a.IsEditor(req) || a.Method(req) != "session" {
				t.Error("session cookie should authorize")
			}
		})
	}
}

func TestLogout(t *testing.T) {
	a := newTestAuth("pw")
	rec := httptest.NewRecorder()
	if err := a.Login(rec, "pw"); err != nil {
		t.Fatal(err)
	}
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	a.Logout(out, req)

	if cleared := out.Result().Cookies(); len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("logout cookie = %v", cleared)
	}
	if a.IsEditor(req) {
		t.Error("session should be revoked")
	}
}

func TestAPIKey(t *testing.T) {
	a := newTestAuth("", "key-one", "key-two")

	tests := []struct {
		key  string
		want bool
	}{
		{"key-two", true},
		{"key-one", true},
		{"key-three", false},
		{"", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/institutions/records", nil)
		if tt.key != "" {
			req.Header.Set(HeaderAPIKey, tt.key)
		}
		if got := a.IsEditor(req); got != tt.want {
			t.Errorf("IsEditor(key %q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	s := NewSessionStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	token, expires := s.Create()
	if !expires.Equal(now.Add(time.Minute)) {
		t.Errorf("expires = %v", expires)
	}
	if !s.Valid(token) {
		t.Fatal("fresh session should be valid")
	}

	now = now.Add(time.Minute)
	if s.Valid(token) {
		t.Error("session should expire at its TTL")
	}
	if s.Len() != 0 {
		t.Errorf("expired session not dropped, Len() = %d", s.Len())
	}
	if s.Valid("") || s.Valid("unknown") {
		t.Error("unknown tokens must be invalid")
	}
}

func TestSessionStore_Sweep(t *testing.T) {
	s := NewSessionStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Create()
	s.Create()
	now = now.Add(30 * time.Second)
	live, _ := s.Create()
	now = now.Add(45 * time.Second)

	if n := s.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
	if !s.Valid(live) {
		t.Error("live session swept")
	}
}

func TestSessionStore_RunSweeperStops(t *testing.T) {
	s := NewSessionStore(0)
	if s.TTL() != DefaultSessionTTL {
		t.Errorf("TTL() = %v, want default", s.TTL())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
