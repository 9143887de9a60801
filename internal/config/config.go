// Package config provides configuration management for the spybot server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for the spybot server.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (e.g., ":7080").
	ServerAddr string

	// DataDir is the directory for persistent data (SQLite DB, etc.).
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// LogPath is the game client log file to watch.
	LogPath string

	// Webhooks are the default webhook endpoint URLs, comma-separated in env.
	Webhooks []string

	// Keywords are the default notification keywords, comma-separated in env.
	Keywords []string

	// TriggerKey is the actuation key for the combat auto-trigger.
	TriggerKey string

	// ActuatorTool is the input binary used to deliver key presses.
	// Empty means dry-run mode (presses are logged, not delivered).
	ActuatorTool string

	// WindowTarget is the game window title substring focused before a
	// craft run starts.
	WindowTarget string

	// Slack mirroring (optional).
	SlackBotToken string
	SlackChannel  string

	// Telegram mirroring (optional).
	TelegramBotToken string
	TelegramChatID   int64
}

// Load creates a Config from environment variables with sensible defaults.
func Load() (*Config, error) {
	dataDir := envOr("SPYBOT_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		ServerAddr:       envOr("SPYBOT_ADDR", ":7080"),
		DataDir:          dataDir,
		DatabasePath:     filepath.Join(dataDir, "spybot.db"),
		LogPath:          os.Getenv("SPYBOT_LOG_PATH"),
		Webhooks:         envList("SPYBOT_WEBHOOKS"),
		Keywords:         envList("SPYBOT_KEYWORDS"),
		TriggerKey:       envOr("SPYBOT_TRIGGER_KEY", "F1"),
		ActuatorTool:     os.Getenv("SPYBOT_ACTUATOR_TOOL"),
		WindowTarget:     os.Getenv("SPYBOT_WINDOW_TARGET"),
		SlackBotToken:    os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannel:     os.Getenv("SLACK_CHANNEL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   envOrInt64("TELEGRAM_CHAT_ID", 0),
	}

	return cfg, nil
}

// SlackEnabled returns true if Slack mirroring is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// TelegramEnabled returns true if Telegram mirroring is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spybot"
	}
	return filepath.Join(home, ".spybot")
}
