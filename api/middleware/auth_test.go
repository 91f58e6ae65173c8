package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgauth "github.com/epharm-labs/epharm-backend/pkg/auth"
	"github.com/epharm-labs/epharm-backend/pkg/config"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
	"github.com/google/uuid"
)

func testIssuer(t *testing.T) *pkgauth.TokenIssuer {
	t.Helper()
	issuer, err := pkgauth.NewTokenIssuer(config.JWTConfig{
		Secret:            "middleware-test-secret",
		Issuer:            "epharm-test",
		ExpirationMinutes: 5,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func TestAuthMiddleware(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	issuer := testIssuer(t)
	userID := uuid.NewString()

	token, err := issuer.Mint(userID, "jane@example.com")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	var seenUserID, seenEmail string
	handler := Auth(issuer, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = UserIDFromContext(r.Context())
		seenEmail = UserEmailFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if seenUserID != userID {
			t.Fatalf("expected user id %s in context, got %q", userID, seenUserID)
		}
		if seenEmail != "jane@example.com" {
			t.Fatalf("expected email in context, got %q", seenEmail)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without credentials, got %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for malformed token, got %d", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := pkgauth.NewTokenIssuer(config.JWTConfig{
			Secret:            "a-different-secret",
			Issuer:            "epharm-test",
			ExpirationMinutes: 5,
		})
		if err != nil {
			t.Fatalf("NewTokenIssuer: %v", err)
		}
		forged, err := other.Mint(userID, "jane@example.com")
		if err != nil {
			t.Fatalf("Mint: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for forged token, got %d", rec.Code)
		}
	})
}
