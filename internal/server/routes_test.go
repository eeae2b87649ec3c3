package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/metaversal/asset-portal/internal/app"
	"github.com/metaversal/asset-portal/internal/auth"
	"github.com/metaversal/asset-portal/internal/common"
	"github.com/metaversal/asset-portal/internal/config"
)

const testJWTSecret = "server-test-secret"

// backendRecorder fakes the Metaversal backend and records every call.
type backendRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (b *backendRecorder) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
}

func (b *backendRecorder) saw(call string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (b *backendRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/assets" && r.Method == http.MethodGet:
			fmt.Fprint(w, `[{"id":"a1","token_name":"DAI","asset_type":"ERC-20","quantity_owned":"10","cost_basis":"1.00","latest_price":"2.00"}]`)
		case r.URL.Path == "/portfolio" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{"total_value":"20.00","total_basis":"10.00","pnl":10}`)
		case strings.HasSuffix(r.URL.Path, "/history"):
			fmt.Fprint(w, `[]`)
		default:
			fmt.Fprint(w, `{"status":"ok"}`)
		}
	})
}

func newTestServer(t *testing.T) (*Server, *backendRecorder) {
	t.Helper()

	recorder := &backendRecorder{}
	backend := httptest.NewServer(recorder.handler())
	t.Cleanup(backend.Close)

	cfg := config.NewDefaultConfig()
	cfg.Environment = "prod"
	cfg.Backend.BaseURL = backend.URL
	cfg.Auth.JWTSecret = testJWTSecret

	application, err := app.New(cfg, common.NewSilentLogger())
	if err != nil {
		t.Fatal(err)
	}
	return New(application), recorder
}

// sessionCookie builds a signed portal session for request fixtures.
func sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(
		fmt.Sprintf(`{"sub":"user-1","exp":%d}`, time.Now().Add(time.Hour).Unix())))

	sigInput := header + "." + payload
	mac := hmac.New(sha256.New, []byte(testJWTSecret))
	mac.Write([]byte(sigInput))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return &http.Cookie{Name: auth.SessionCookieName, Value: sigInput + "." + sig}
}

func serveAuthed(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(sessionCookie(t))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestRoutes_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRoutes_UnmatchedAPIPathReturnsJSON404(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/nope", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON 404 body, got content type %s", ct)
	}
}

func TestRoutes_AssetsCollectionRejectsUnknownMethod(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serveAuthed(t, srv, "PUT", "/api/assets")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestRoutes_AssetsListDispatches(t *testing.T) {
	srv, recorder := newTestServer(t)

	w := serveAuthed(t, srv, "GET", "/api/assets")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !recorder.saw("GET /assets") {
		t.Errorf("expected backend asset fetch, saw %v", recorder.calls)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 {
		t.Errorf("expected 1 asset, got %d", body.Count)
	}
}

func TestRoutes_UpdatePricesDispatches(t *testing.T) {
	srv, recorder := newTestServer(t)

	w := serveAuthed(t, srv, "POST", "/api/assets/update-prices")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !recorder.saw("POST /assets/update-prices") {
		t.Errorf("expected backend price update, saw %v", recorder.calls)
	}
}

func TestRoutes_DeleteOneDispatches(t *testing.T) {
	srv, recorder := newTestServer(t)

	w := serveAuthed(t, srv, "DELETE", "/api/assets/a1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !recorder.saw("DELETE /assets/a1") {
		t.Errorf("expected backend delete, saw %v", recorder.calls)
	}
}

func TestRoutes_AssetSubtreeRejectsNonDelete(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serveAuthed(t, srv, "GET", "/api/assets/a1")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestRoutes_HistoryReachesHandler(t *testing.T) {
	srv, recorder := newTestServer(t)

	// Populate the store so the history handler can resolve the asset.
	if w := serveAuthed(t, srv, "GET", "/api/assets"); w.Code != http.StatusOK {
		t.Fatalf("list failed: %d", w.Code)
	}

	w := serveAuthed(t, srv, "GET", "/api/assets/a1/history")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !recorder.saw("GET /assets/a1/history") {
		t.Errorf("expected backend history fetch, saw %v", recorder.calls)
	}
}

func TestRoutes_HistoryUnknownAsset(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serveAuthed(t, srv, "GET", "/api/assets/missing/history")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 from history handler, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unknown asset id") {
		t.Errorf("expected history handler error body, got %s", w.Body.String())
	}
}

func TestRoutes_NestedAssetPathIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serveAuthed(t, srv, "DELETE", "/api/assets/a1/b2")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRoutes_PortfolioDispatches(t *testing.T) {
	srv, recorder := newTestServer(t)

	w := serveAuthed(t, srv, "GET", "/api/portfolio")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !recorder.saw("GET /portfolio") {
		t.Errorf("expected backend portfolio fetch, saw %v", recorder.calls)
	}
}

func TestRoutes_VersionWithoutSession(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/version", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected version to be public, got %d", w.Code)
	}
}

func TestRouteByMethod(t *testing.T) {
	called := false
	routes := MethodRouter{
		"GET": func(w http.ResponseWriter, r *http.Request) { called = true },
	}

	w := httptest.NewRecorder()
	RouteByMethod(w, httptest.NewRequest("GET", "/x", nil), routes)
	if !called {
		t.Error("expected GET handler to be called")
	}

	w = httptest.NewRecorder()
	RouteByMethod(w, httptest.NewRequest("POST", "/x", nil), routes)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for unmapped method, got %d", w.Code)
	}
}
