package token

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	apperrors "github.com/mkarsten/ironlog/internal/platform/errors"
)

func testConfig(t *testing.T, now func() time.Time) Config {
	t.Helper()
	_, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return Config{
		Issuer:   "ironlog-test",
		Audience: "ironlog-clients",
		Key:      private,
		TTL:      time.Hour,
		Now:      now,
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, nil)
	raw, err := Issue(cfg, "user-1", "lifter@example.test")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := Verify(raw, cfg)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("user id = %q", claims.UserID)
	}
	if claims.Email != "lifter@example.test" {
		t.Fatalf("email = %q", claims.Email)
	}
	if claims.JWTID == "" {
		t.Fatal("missing jti")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, nil)
	other := testConfig(t, nil)
	other.Issuer = cfg.Issuer
	other.Audience = cfg.Audience

	raw, err := Issue(cfg, "user-1", "lifter@example.test")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = Verify(raw, other)
	if !errors.Is(err, apperrors.New(apperrors.CodeAuthTokenInvalid, "")) {
		t.Fatalf("expected CodeAuthTokenInvalid, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig(t, func() time.Time { return issued })
	raw, err := Issue(cfg, "user-1", "lifter@example.test")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cfg.Now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = Verify(raw, cfg)
	if !errors.Is(err, apperrors.New(apperrors.CodeAuthTokenExpired, "")) {
		t.Fatalf("expected CodeAuthTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsMismatchedIssuer(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, nil)
	raw, err := Issue(cfg, "user-1", "lifter@example.test")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cfg.Issuer = "someone-else"
	_, err = Verify(raw, cfg)
	if !errors.Is(err, apperrors.New(apperrors.CodeAuthTokenInvalid, "")) {
		t.Fatalf("expected CodeAuthTokenInvalid, got %v", err)
	}
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, nil)
	if _, err := Verify("  ", cfg); !errors.Is(err, apperrors.New(apperrors.CodeAuthTokenInvalid, "")) {
		t.Fatalf("expected CodeAuthTokenInvalid, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	_, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	t.Setenv("IRONLOG_TOKEN_ISSUER", "ironlog")
	t.Setenv("IRONLOG_TOKEN_AUDIENCE", "clients")
	t.Setenv("IRONLOG_TOKEN_PRIVATE_KEY", base64.RawStdEncoding.EncodeToString(private))

	cfg, err := LoadConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Issuer != "ironlog" || cfg.Audience != "clients" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.TTL != 720*time.Hour {
		t.Fatalf("ttl = %v, want default", cfg.TTL)
	}
}

func TestLoadConfigFromEnvRequiresKey(t *testing.T) {
	t.Setenv("IRONLOG_TOKEN_ISSUER", "ironlog")
	t.Setenv("IRONLOG_TOKEN_AUDIENCE", "clients")
	t.Setenv("IRONLOG_TOKEN_PRIVATE_KEY", "")

	if _, err := LoadConfigFromEnv(nil); err == nil {
		t.Fatal("expected error for missing private key")
	}
}
