package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
engine:
  cooldown_window: 48h
  cancel_grace: 12h
  timezone: Europe/Lisbon
  likes_per_minute: 10
jobs:
  reset_interval: 1h
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Engine.CooldownWindow != 48*time.Hour {
		t.Fatalf("unexpected cooldown window: %s", cfg.Engine.CooldownWindow)
	}
	if cfg.Engine.CancelGrace != 12*time.Hour {
		t.Fatalf("unexpected cancel grace: %s", cfg.Engine.CancelGrace)
	}
	if cfg.Engine.Timezone != "Europe/Lisbon" {
		t.Fatalf("unexpected timezone: %s", cfg.Engine.Timezone)
	}
	if cfg.Engine.LikesPerMinute != 10 {
		t.Fatalf("unexpected likes_per_minute: %d", cfg.Engine.LikesPerMinute)
	}
	if cfg.Jobs.ResetInterval != time.Hour {
		t.Fatalf("unexpected reset interval: %s", cfg.Jobs.ResetInterval)
	}

	// untouched keys keep their defaults
	if cfg.Engine.LikesPer10Sec != 8 {
		t.Fatalf("likes_per_10sec default should stay 8, got %d", cfg.Engine.LikesPer10Sec)
	}
	if cfg.Auth.JWTAccessTTL != 15*time.Minute {
		t.Fatalf("jwt access ttl default should stay 15m, got %s", cfg.Auth.JWTAccessTTL)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Engine.CooldownWindow != 336*time.Hour {
		t.Fatalf("unexpected default cooldown window: %s", cfg.Engine.CooldownWindow)
	}
	if cfg.Engine.CancelGrace != 24*time.Hour {
		t.Fatalf("unexpected default cancel grace: %s", cfg.Engine.CancelGrace)
	}
	if cfg.Engine.UnlimitedPeriod != 720*time.Hour {
		t.Fatalf("unexpected default unlimited period: %s", cfg.Engine.UnlimitedPeriod)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTP.Addr)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("COOLDOWN_WINDOW", "72h")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("LIKES_PER_10SEC", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Engine.CooldownWindow != 72*time.Hour {
		t.Fatalf("env cooldown window not applied: %s", cfg.Engine.CooldownWindow)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Fatalf("env jwt secret not applied: %s", cfg.Auth.JWTSecret)
	}
	if cfg.Engine.LikesPer10Sec != 3 {
		t.Fatalf("env likes_per_10sec not applied: %d", cfg.Engine.LikesPer10Sec)
	}
}

func TestLoadRejectsMalformedDurationEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("COOLDOWN_WINDOW", "fortnight")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for malformed duration override")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"REFRESH_TTL",
		"SERVER_SECRET",
		"COOLDOWN_WINDOW",
		"CANCEL_GRACE",
		"ENGINE_TIMEZONE",
		"UNLIMITED_PERIOD",
		"LIKES_PER_MINUTE",
		"LIKES_PER_10SEC",
		"RESET_INTERVAL",
		"RESET_RETENTION",
	} {
		t.Setenv(key, "")
	}
}
