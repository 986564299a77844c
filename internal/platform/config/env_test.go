package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Addr string `env:"IRONLOG_TEST_ADDR" envDefault:":9190"`
	Port int    `env:"IRONLOG_TEST_PORT" envDefault:"9190"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != ":9190" {
		t.Fatalf("expected default addr :9190, got %q", cfg.Addr)
	}
	if cfg.Port != 9190 {
		t.Fatalf("expected default port 9190, got %d", cfg.Port)
	}
}

func TestParseEnvOverride(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("IRONLOG_TEST_ADDR", "127.0.0.1:7000")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7000" {
		t.Fatalf("expected override addr, got %q", cfg.Addr)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("IRONLOG_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
