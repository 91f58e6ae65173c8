package config

import (
	"strings"
	"testing"
)

func TestEnsureDSNPrefersExplicitDSN(t *testing.T) {
	db := DBConfig{DSN: "postgres://u:p@localhost:5432/epharm"}
	if err := db.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.DSN != "postgres://u:p@localhost:5432/epharm" {
		t.Fatalf("dsn rewritten: %s", db.DSN)
	}
}

func TestEnsureDSNFromLegacyParts(t *testing.T) {
	db := DBConfig{
		LegacyHost:     "db.internal",
		LegacyPort:     5433,
		LegacyUser:     "epharm",
		LegacyPassword: "s3cret",
		LegacyName:     "epharm",
		LegacySSLMode:  "require",
	}
	if err := db.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"postgres://", "db.internal:5433", "sslmode=require"} {
		if !strings.Contains(db.DSN, want) {
			t.Fatalf("dsn missing %q: %s", want, db.DSN)
		}
	}
}

func TestEnsureDSNMissingLegacyParts(t *testing.T) {
	db := DBConfig{LegacyHost: "db.internal"}
	err := db.ensureDSN()
	if err == nil {
		t.Fatal("expected error for missing legacy vars")
	}
	if !strings.Contains(err.Error(), EnvDBUser) || !strings.Contains(err.Error(), EnvDBName) {
		t.Fatalf("error should name missing vars: %v", err)
	}
}

func TestAppEnvHelpers(t *testing.T) {
	app := AppConfig{Env: "DEV"}
	if !app.IsDev() || app.IsProd() {
		t.Fatal("expected dev environment")
	}
}
