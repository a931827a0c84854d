package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jewelpo/internal/config"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CONFIG_FILE", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef-secret")
	t.Setenv("PORT", "8088")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8088" {
		t.Errorf("port = %q, want 8088", cfg.Server.Port)
	}
	if cfg.JWT.TTL != 90*time.Minute {
		t.Errorf("ttl = %v, want 90m", cfg.JWT.TTL)
	}
	if cfg.DB.MaxOpenConns != 4 {
		t.Errorf("max open conns = %d, want 4", cfg.DB.MaxOpenConns)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want default info", cfg.Log.Level)
	}
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	body := `
env: production
server:
  port: "7000"
  login_rate_per_minute: 3
db:
  path: /var/lib/portal.db
jwt:
  secret: yaml-secret-0123456789
  ttl: 2h
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected production env from yaml")
	}
	if cfg.Server.Port != "7000" {
		t.Errorf("port = %q, want 7000", cfg.Server.Port)
	}
	if cfg.Server.LoginRatePerMinute != 3 {
		t.Errorf("login rate = %d, want 3", cfg.Server.LoginRatePerMinute)
	}
	if !cfg.Server.TrustProxy {
		t.Error("TRUST_PROXY not applied")
	}
	if cfg.JWT.TTL != 2*time.Hour {
		t.Errorf("ttl = %v, want 2h", cfg.JWT.TTL)
	}
	if cfg.DB.Path != "/var/lib/portal.db" {
		t.Errorf("db path = %q", cfg.DB.Path)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, env should win over yaml", cfg.Log.Level)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "0123456789abcdef-secret")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
