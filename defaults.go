package spybot

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hocy1609/spybot/actuator"
	"github.com/hocy1609/spybot/eventbus"
	sqliteStore "github.com/hocy1609/spybot/store/sqlite"
)

// applyDefaults fills in missing fields on the builder with sensible defaults.
func applyDefaults(b *Builder) error {
	// Config defaults.
	if b.config.ServerAddr == "" {
		b.config.ServerAddr = ":7080"
	}
	if b.config.DataDir == "" {
		b.config.DataDir = defaultDataDir()
	}
	if b.config.DatabasePath == "" {
		b.config.DatabasePath = filepath.Join(b.config.DataDir, "spybot.db")
	}
	if b.config.TriggerKey == "" {
		b.config.TriggerKey = "F1"
	}

	// Ensure data dir exists.
	if err := os.MkdirAll(b.config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Store.
	if b.store == nil {
		st, err := sqliteStore.New(b.config.DatabasePath)
		if err != nil {
			return fmt.Errorf("initializing store: %w", err)
		}
		b.store = st
	}

	// Event bus.
	if b.bus == nil {
		b.bus = eventbus.New()
	}

	// Actuator.
	if b.act == nil {
		if b.config.ActuatorTool != "" {
			b.act = actuator.NewKeyTool(b.config.ActuatorTool)
		} else {
			b.act = &actuator.LogOnly{}
		}
	}

	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spybot"
	}
	return filepath.Join(home, ".spybot")
}
