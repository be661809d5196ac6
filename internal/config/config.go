package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string

	// Optional backends. Empty means in-memory only.
	RedisURL    string
	DatabaseURL string

	SessionTTL time.Duration

	SettingsFile string
	MessagesDir  string

	PlayerName   string
	OpponentName string
	Event        string
}

// Load reads the environment. Nothing is required; malformed values are errors.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:     ":8080",
		SessionTTL:   24 * time.Hour,
		SettingsFile: "blundex-settings.yaml",
		PlayerName:   "Player",
		OpponentName: "Opponent",
		Event:        "Casual Game",
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("BLUNDEX_SESSION_TTL")); v != "" {
		ttl, err := parseTTL(v)
		if err != nil {
			return nil, fmt.Errorf("BLUNDEX_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = ttl
	}

	if v := strings.TrimSpace(os.Getenv("BLUNDEX_SETTINGS_FILE")); v != "" {
		cfg.SettingsFile = v
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("BLUNDEX_MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("BLUNDEX_PLAYER_NAME")); v != "" {
		cfg.PlayerName = v
	}
	if v := strings.TrimSpace(os.Getenv("BLUNDEX_OPPONENT_NAME")); v != "" {
		cfg.OpponentName = v
	}
	if v := strings.TrimSpace(os.Getenv("BLUNDEX_EVENT")); v != "" {
		cfg.Event = v
	}
	return cfg, nil
}

// parseTTL accepts whole seconds ("3600") or a Go duration ("90m").
func parseTTL(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
