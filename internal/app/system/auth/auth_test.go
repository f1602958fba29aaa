package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/system/auth"
	"go.uber.org/zap"
)

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func TestNewSessionManager_EmptyKey(t *testing.T) {
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, true, zap.NewNop()); err != auth.ErrNoSessionKey {
		t.Errorf("secure with empty key: expected ErrNoSessionKey, got %v", err)
	}
	if _, err := auth.NewSessionManager("", "s", "", time.Hour, false, zap.NewNop()); err != nil {
		t.Errorf("development with empty key: expected random key, got %v", err)
	}
}

func TestRequireSignedIn_NoUser_RedirectsToLogin(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/accounts?page=2", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/login?return=") {
		t.Errorf("expected redirect to /login, got %q", loc)
	}
}

func TestRequireSignedIn_NoUser_API_Returns401(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/accounts/list", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireSignedIn_NoUser_HTMX_ReturnsHXRedirect(t *testing.T) {
	sm := newTestSessionManager(t)

	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/accounts", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if hx := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(hx, "/login") {
		t.Errorf("expected HX-Redirect to /login, got %q", hx)
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	sm := newTestSessionManager(t)

	called := false
	handler := sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := withTestUser(httptest.NewRequest("GET", "/accounts", nil), "admin")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("expected handler to be called")
	}
}

func TestSignIn_RoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	stored, err := sm.SignIn(rec, req, auth.SessionUser{
		ID:      "507f1f77bcf86cd799439011",
		Name:    "Ann Admin",
		LoginID: "ann@example.com",
		Role:    "admin",
	})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if stored.ConsoleID == "" {
		t.Fatal("expected a console id to be minted")
	}

	next := httptest.NewRequest("GET", "/accounts", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}

	var got *auth.SessionUser
	sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	})).ServeHTTP(httptest.NewRecorder(), next)

	if got == nil {
		t.Fatal("expected user in context")
	}
	if got.LoginID != "ann@example.com" || got.Role != "admin" || got.ConsoleID != stored.ConsoleID {
		t.Errorf("unexpected user %+v", got)
	}
}

func TestSignIn_NewConsolePerSignIn(t *testing.T) {
	sm := newTestSessionManager(t)

	a, err := sm.SignIn(httptest.NewRecorder(), httptest.NewRequest("POST", "/login", nil), auth.SessionUser{ID: "1"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := sm.SignIn(httptest.NewRecorder(), httptest.NewRequest("POST", "/login", nil), auth.SessionUser{ID: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if a.ConsoleID == b.ConsoleID {
		t.Error("expected distinct console ids")
	}
}

func TestSignOut_ExpiresCookie(t *testing.T) {
	sm := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	stored, err := sm.SignIn(rec, httptest.NewRequest("POST", "/login", nil), auth.SessionUser{ID: "1", Role: "admin"})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	out := httptest.NewRecorder()
	consoleID, err := sm.SignOut(out, req)
	if err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if consoleID != stored.ConsoleID {
		t.Errorf("expected console id %q, got %q", stored.ConsoleID, consoleID)
	}

	cookies := out.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expired cookie, got %+v", cookies)
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	user, ok := auth.CurrentUser(httptest.NewRequest("GET", "/", nil))
	if ok || user != nil {
		t.Error("expected no user in context")
	}
}

func TestForbidden(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		code   int
	}{
		{"html", map[string]string{"Accept": "text/html"}, http.StatusSeeOther},
		{"htmx", map[string]string{"HX-Request": "true"}, http.StatusForbidden},
		{"api", map[string]string{"Accept": "application/json"}, http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admins", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			auth.Forbidden(rec, req)
			if rec.Code != tc.code {
				t.Errorf("expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

// withTestUser injects a SessionUser into the request context for testing.
// This simulates what LoadSessionUser middleware does.
func withTestUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:        "507f1f77bcf86cd799439011",
		Name:      "Test User",
		LoginID:   "test@example.com",
		Role:      role,
		ConsoleID: "console-test",
	})
}
