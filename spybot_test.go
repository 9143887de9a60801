package spybot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hocy1609/spybot/actuator"
)

func TestBuilderDefaults(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "game.log")
	if err := os.WriteFile(logPath, []byte(""), 0o644); err != nil {
		t.Fatalf("writing log: %v", err)
	}

	app, err := NewBuilder().WithConfig(Config{
		DataDir:  dir,
		LogPath:  logPath,
		Keywords: []string{"attacks you"},
		Webhooks: []string{"https://example.com/hook"},
	}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.store.Close()

	if app.config.ServerAddr != ":7080" {
		t.Errorf("default addr = %s", app.config.ServerAddr)
	}
	if app.config.TriggerKey != "F1" {
		t.Errorf("default trigger key = %s", app.config.TriggerKey)
	}
	if app.Monitor() == nil || app.Crafter() == nil {
		t.Error("components not built")
	}

	// Seeded monitor config from builder values.
	cfg := app.Monitor().Config()
	if cfg.LogPath != logPath {
		t.Errorf("seeded log path = %s", cfg.LogPath)
	}
	if len(cfg.Keywords) != 1 || len(cfg.Webhooks) != 1 {
		t.Errorf("seeded config = %+v", cfg)
	}
	if cfg.Trigger.Key != "F1" {
		t.Errorf("seeded trigger key = %s", cfg.Trigger.Key)
	}
}

func TestBuilderSeedDoesNotOverridePersisted(t *testing.T) {
	dir := t.TempDir()

	app1, err := NewBuilder().WithConfig(Config{
		DataDir: dir,
		LogPath: "/first/path.log",
	}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Operator changes the path at runtime; it persists.
	cfg := app1.Monitor().Config()
	cfg.LogPath = "/operator/choice.log"
	if err := app1.Monitor().UpdateConfig(cfg); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	app1.store.Close()

	app2, err := NewBuilder().WithConfig(Config{
		DataDir: dir,
		LogPath: "/env/default.log",
	}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app2.store.Close()

	if got := app2.Monitor().Config().LogPath; got != "/operator/choice.log" {
		t.Errorf("persisted path overridden by seed: %s", got)
	}
}

func TestBuilderCustomActuator(t *testing.T) {
	dir := t.TempDir()
	act := &actuator.LogOnly{}

	app, err := NewBuilder().
		WithConfig(Config{DataDir: dir}).
		WithActuator(act).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.store.Close()

	if _, ok := app.Crafter().Status(); ok {
		t.Error("fresh controller reports an active run")
	}
}
