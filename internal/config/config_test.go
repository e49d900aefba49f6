package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.DBMaxConns != 20 || cfg.DBMinConns != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Agent.Timeout != 60*time.Second || cfg.Agent.Enabled() {
		t.Fatalf("unexpected agent defaults: %+v", cfg.Agent)
	}
	if err := cfg.RequireDatabase(); !errors.Is(err, ErrMissingDatabaseURL) {
		t.Fatalf("RequireDatabase error = %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", " postgres://localhost/perf ")
	t.Setenv("DB_MAX_CONNS", "8")
	t.Setenv("DB_MIN_CONNS", "1")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("AGENT_URL", "https://agent.example.com/v3/")
	t.Setenv("AGENT_API_KEY", "secret")
	t.Setenv("AGENT_TIMEOUT", "15s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 || cfg.DatabaseURL != "postgres://localhost/perf" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DBMaxConns != 8 || cfg.DBMinConns != 1 {
		t.Fatalf("unexpected pool sizes: %d/%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Agent.URL != "https://agent.example.com/v3" || !cfg.Agent.Enabled() || cfg.Agent.Timeout != 15*time.Second {
		t.Fatalf("unexpected agent config: %+v", cfg.Agent)
	}
	if err := cfg.RequireDatabase(); err != nil {
		t.Fatalf("RequireDatabase: %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":         "0",
		"DB_MAX_CONNS": "0",
		"DB_MIN_CONNS": "50",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}
