package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/finpost/ledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.JWTSecret != "" {
		t.Fatalf("expected JWT secret default to be empty, got %q", cfg.JWTSecret)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.RateTablePath != "" {
		t.Fatalf("expected rate table path default to be empty, got %q", cfg.RateTablePath)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "10")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}

	if !cfg.RateLimitEnabled || cfg.RateLimitRPS != 10 {
		t.Fatalf("expected rate limit overrides, got %+v", cfg)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	original := os.Getenv("HTTP_READ_TIMEOUT")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")
	t.Cleanup(func() {
		t.Setenv("HTTP_READ_TIMEOUT", original)
	})

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRateTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rates.json")

	table := `{
		"base_currency": "USD",
		"rates": {"USD": "1", "EUR": "0.92"},
		"accounts": {},
		"fx_fees": {"USD": {"EUR": "0.01"}},
		"transaction_fee_percentage": "0.029",
		"transaction_fee_fixed": {}
	}`
	if err := os.WriteFile(path, []byte(table), 0o600); err != nil {
		t.Fatalf("failed to write rate table: %v", err)
	}

	loaded, err := config.LoadRateTable(path)
	if err != nil {
		t.Fatalf("unexpected error loading rate table: %v", err)
	}

	if loaded.BaseCurrency != "USD" {
		t.Fatalf("expected USD base currency, got %q", loaded.BaseCurrency)
	}

	if _, ok := loaded.Rates["EUR"]; !ok {
		t.Fatalf("expected EUR rate to load")
	}
}

func TestLoadRateTableErrors(t *testing.T) {
	if _, err := config.LoadRateTable("does-not-exist.json"); err == nil {
		t.Fatalf("expected error for missing file")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"rates":{}}`), 0o600); err != nil {
		t.Fatalf("failed to write rate table: %v", err)
	}

	if _, err := config.LoadRateTable(path); err == nil {
		t.Fatalf("expected validation error for incomplete table")
	}
}
