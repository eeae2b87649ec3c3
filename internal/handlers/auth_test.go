package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/metaversal/asset-portal/internal/auth"
	"github.com/metaversal/asset-portal/internal/models"
)

// fakeExchanger scripts the backend credential exchange.
type fakeExchanger struct {
	jwt  string
	fail bool
}

func (f *fakeExchanger) Authenticate(context.Context, string) (*models.AuthResponse, error) {
	if f.fail {
		return nil, fmt.Errorf("exchange refused")
	}
	return &models.AuthResponse{DevelopmentJWT: f.jwt}, nil
}

func newAuthFixture(exchanger *fakeExchanger) *AuthHandler {
	gate := auth.NewGate(exchanger, nil)
	return NewAuthHandler(nil, gate, "https://auth.example.com", "app-1", "http://localhost:4361/auth/callback")
}

func TestHandleLogin_RedirectsToProvider(t *testing.T) {
	h := newAuthFixture(&fakeExchanger{})

	req := httptest.NewRequest("GET", "/auth/login", nil)
	w := httptest.NewRecorder()
	h.HandleLogin(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://auth.example.com/login?") {
		t.Errorf("unexpected redirect target %q", loc)
	}
	if !strings.Contains(loc, "app_id=app-1") {
		t.Errorf("expected app id in login URL, got %q", loc)
	}
	if !strings.Contains(loc, "callback=http%3A%2F%2Flocalhost%3A4361%2Fauth%2Fcallback") {
		t.Errorf("expected escaped callback in login URL, got %q", loc)
	}
}

func TestHandleCallback_MissingToken(t *testing.T) {
	h := newAuthFixture(&fakeExchanger{})

	req := httptest.NewRequest("GET", "/auth/callback", nil)
	w := httptest.NewRecorder()
	h.HandleCallback(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/?auth=missing_token" {
		t.Errorf("unexpected redirect %q", loc)
	}
}

func TestHandleCallback_ExchangeFailure(t *testing.T) {
	h := newAuthFixture(&fakeExchanger{fail: true})

	req := httptest.NewRequest("GET", "/auth/callback?token=tok", nil)
	w := httptest.NewRecorder()
	h.HandleCallback(w, req)

	if loc := w.Header().Get("Location"); loc != "/?auth=failed" {
		t.Errorf("unexpected redirect %q", loc)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("expected no session cookie after failed exchange")
	}
}

func TestHandleCallback_SetsSessionAndRedirects(t *testing.T) {
	h := newAuthFixture(&fakeExchanger{jwt: "dev-jwt"})

	req := httptest.NewRequest("GET", "/auth/callback?token=tok", nil)
	w := httptest.NewRecorder()
	h.HandleCallback(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != auth.ManagementRoute {
		t.Errorf("expected redirect to management view, got %q", loc)
	}

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			session = c
		}
	}
	if session == nil || session.Value != "dev-jwt" {
		t.Fatalf("expected session cookie carrying the exchanged credential, got %v", session)
	}
	if !session.HttpOnly {
		t.Error("expected HttpOnly session cookie")
	}
}

func TestHandleCallback_AmbientTransportKeepsProviderToken(t *testing.T) {
	// No development JWT issued: the portal session carries the provider
	// token and the backend session cookie rides in the client's jar.
	h := newAuthFixture(&fakeExchanger{})

	req := httptest.NewRequest("GET", "/auth/callback?token=provider-tok", nil)
	w := httptest.NewRecorder()
	h.HandleCallback(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			if c.Value != "provider-tok" {
				t.Errorf("expected provider token as session value, got %q", c.Value)
			}
			return
		}
	}
	t.Fatal("expected a session cookie")
}

func TestHandleLogout_ClearsSession(t *testing.T) {
	h := newAuthFixture(&fakeExchanger{jwt: "dev-jwt"})

	// Log in first so the gate has state to clear.
	w := httptest.NewRecorder()
	h.HandleCallback(w, httptest.NewRequest("GET", "/auth/callback?token=tok", nil))

	w = httptest.NewRecorder()
	h.HandleLogout(w, httptest.NewRequest("POST", "/auth/logout", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != auth.PublicRoute {
		t.Errorf("expected redirect to landing, got %q", loc)
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge >= 0 {
			t.Error("expected session cookie to be expired")
		}
	}
}

func TestHandleSession_ReportsGateState(t *testing.T) {
	h := newAuthFixture(&fakeExchanger{jwt: "dev-jwt"})

	w := httptest.NewRecorder()
	h.HandleSession(w, httptest.NewRequest("GET", "/api/session", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"logged_in":false`) {
		t.Errorf("expected logged_in=false before exchange, got %s", w.Body.String())
	}

	h.HandleCallback(httptest.NewRecorder(), httptest.NewRequest("GET", "/auth/callback?token=tok", nil))

	w = httptest.NewRecorder()
	h.HandleSession(w, httptest.NewRequest("GET", "/api/session", nil))
	if !strings.Contains(w.Body.String(), `"logged_in":true`) {
		t.Errorf("expected logged_in=true after exchange, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"state":"authenticated"`) {
		t.Errorf("expected authenticated state, got %s", w.Body.String())
	}
}
