package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "REDIS_URL", "DATABASE_URL", "BLUNDEX_SESSION_TTL",
		"BLUNDEX_SETTINGS_FILE", "BLUNDEX_MESSAGES_DIR", "BLUNDEX_PLAYER_NAME",
		"BLUNDEX_OPPONENT_NAME", "BLUNDEX_EVENT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.SessionTTL != 24*time.Hour || cfg.PlayerName != "Player" || cfg.Event != "Casual Game" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Fatalf("backends should be unset: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", " 127.0.0.1:9000 ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("BLUNDEX_SESSION_TTL", "90m")
	t.Setenv("BLUNDEX_OPPONENT_NAME", "Engine")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.RedisURL != "redis://localhost:6379/2" {
		t.Fatalf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.SessionTTL != 90*time.Minute {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.OpponentName != "Engine" {
		t.Fatalf("OpponentName = %q", cfg.OpponentName)
	}
}

func TestLoadTTLSeconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLUNDEX_SESSION_TTL", "3600")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	for _, v := range []string{"soon", "-5", "0", "-1h"} {
		clearEnv(t)
		t.Setenv("BLUNDEX_SESSION_TTL", v)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for %q", v)
		}
	}
}
