package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.GuestDecks.TTL != 2*time.Minute {
		t.Fatalf("expected default guest deck TTL 2m, got %v", cfg.GuestDecks.TTL)
	}
	if cfg.GuestDecks.SweepInterval != 30*time.Second {
		t.Fatalf("expected default sweep interval 30s, got %v", cfg.GuestDecks.SweepInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("GUEST_DECK_TTL", "5m")
	t.Setenv("GUEST_DECK_SWEEP_INTERVAL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.GuestDecks.TTL != 5*time.Minute {
		t.Fatalf("expected TTL 5m, got %v", cfg.GuestDecks.TTL)
	}
	if cfg.GuestDecks.SweepInterval != time.Minute {
		t.Fatalf("expected sweep interval 1m, got %v", cfg.GuestDecks.SweepInterval)
	}
}

func TestLoadIgnoresInvalidDuration(t *testing.T) {
	t.Setenv("GUEST_DECK_TTL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}
	if cfg.GuestDecks.TTL != 2*time.Minute {
		t.Fatalf("expected fallback TTL 2m, got %v", cfg.GuestDecks.TTL)
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "app", Password: "secret",
		DBName: "deckforge", SSLMode: "disable",
	}
	want := "postgres://app:secret@db:5432/deckforge?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache", Port: 6380}
	if got := r.Addr(); got != "cache:6380" {
		t.Fatalf("expected cache:6380, got %q", got)
	}
}
