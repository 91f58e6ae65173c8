package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgauth "github.com/epharm-labs/epharm-backend/pkg/auth"
	"github.com/epharm-labs/epharm-backend/pkg/config"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Esewa.FrontendRedirect = "https://shop.example.com/payment/result"

	issuer, err := pkgauth.NewTokenIssuer(config.JWTConfig{
		Secret:            "router-test-secret",
		Issuer:            "epharm-test",
		ExpirationMinutes: 5,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(cfg, logg, nil, nil, issuer, Services{})
}

func TestRouterHealthLive(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from liveness, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Epharm-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	router := testRouter(t)

	for _, target := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/users/me"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 from %s without a token, got %d", target, rec.Code)
		}
	}
}

func TestRouterMetricsExposed(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", rec.Code)
	}
}
