package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopauth/cmd/internal/auth/api"
	"shopauth/cmd/internal/auth/cookies"
)

const (
	testAdminEmail    = "root@shop.example.com"
	testAdminPassword = "Bootstrap-Admin-Pass-1!"
)

func newMemoryApp(t *testing.T) *App {
	t.Helper()

	t.Setenv("SHOPAUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("SHOPAUTH_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("SHOPAUTH_ARGON2_ITERATIONS", "1")
	t.Setenv("SHOPAUTH_ARGON2_PARALLELISM", "1")

	cfg := Config{
		BootstrapAdminEmail:    testAdminEmail,
		BootstrapAdminPassword: testAdminPassword,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := New(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestApp_HealthAndReadiness(t *testing.T) {
	a := newMemoryApp(t)
	h := a.Handler()

	for path, want := range map[string]int{"/healthz": http.StatusOK, "/readyz": http.StatusOK} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != want {
			t.Fatalf("%s: status=%d want %d", path, rr.Code, want)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s: security headers missing", path)
		}
	}
}

func TestApp_ReadinessRequiresDB(t *testing.T) {
	a := newMemoryApp(t)
	a.cfg.ReadinessRequireDB = true

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
}

// adminLogin fetches a CSRF token and logs in as the bootstrap admin.
// It returns every cookie the client holds afterwards.
func adminLogin(t *testing.T, h http.Handler) []*http.Cookie {
	t.Helper()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, api.PathCSRF, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("csrf: status=%d body=%s", rr.Code, rr.Body.String())
	}
	jar := rr.Result().Cookies()

	body, _ := json.Marshal(map[string]string{"email": testAdminEmail, "password": testAdminPassword})
	req := httptest.NewRequest(http.MethodPost, api.PathLogin, bytes.NewReader(body))
	withCookies(req, jar)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: status=%d body=%s", rr.Code, rr.Body.String())
	}
	return append(jar, rr.Result().Cookies()...)
}

func withCookies(req *http.Request, jar []*http.Cookie) {
	for _, c := range jar {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		if c.Name == cookies.CSRF {
			req.Header.Set("x-csrf-token", c.Value)
		}
	}
}

func TestApp_BootstrapAdminCanSweep(t *testing.T) {
	a := newMemoryApp(t)
	h := a.Handler()
	jar := adminLogin(t, h)

	req := httptest.NewRequest(http.MethodPost, api.PathSweep, nil)
	withCookies(req, jar)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("sweep: status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"removed":0`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestApp_MetricsExposeSessionCounters(t *testing.T) {
	a := newMemoryApp(t)
	h := a.Handler()
	adminLogin(t, h)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics: status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "shopauth_session_logins_total 1") {
		t.Fatalf("logins counter missing from metrics output")
	}
}

func TestApp_RejectsMissingJWTSecret(t *testing.T) {
	t.Setenv("SHOPAUTH_JWT_SECRET", "")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := New(context.Background(), Config{}, log); err == nil {
		t.Fatalf("expected config error")
	}
}
