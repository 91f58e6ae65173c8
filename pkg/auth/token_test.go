package auth

import (
	"testing"

	"github.com/epharm-labs/epharm-backend/pkg/config"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
)

func testIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "epharm-test",
		ExpirationMinutes: 15,
	})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func TestMintAndParse(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.Mint("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected user-1, got %s", claims.UserID)
	}
	if claims.Email != "ana@example.com" {
		t.Fatalf("unexpected email %s", claims.Email)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issuer := testIssuer(t)
	other, err := NewTokenIssuer(config.JWTConfig{Secret: "different", Issuer: "epharm-test", ExpirationMinutes: 15})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := other.Mint("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	_, err = issuer.Parse(token)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeUnauthorized, err)
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	issuer := testIssuer(t)
	other, err := NewTokenIssuer(config.JWTConfig{Secret: "test-secret", Issuer: "someone-else", ExpirationMinutes: 15})
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := other.Mint("user-1", "ana@example.com")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := issuer.Parse(token); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	issuer := testIssuer(t)
	if _, err := issuer.Parse("not.a.token"); err == nil {
		t.Fatal("expected parse failure")
	}
}
