// Package spybot is the top-level entry point for the spybot framework.
//
// Use the Builder to compose a custom spybot application:
//
//	app, err := spybot.NewBuilder().Build()
//	app.Start(ctx)
//
// Or customize components:
//
//	app, err := spybot.NewBuilder().
//	    WithActuator(myActuator).
//	    WithChannel(myChannel).
//	    Build()
package spybot

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/hocy1609/spybot/actuator"
	"github.com/hocy1609/spybot/craft"
	"github.com/hocy1609/spybot/eventbus"
	"github.com/hocy1609/spybot/httpapi"
	"github.com/hocy1609/spybot/model"
	"github.com/hocy1609/spybot/monitor"
	"github.com/hocy1609/spybot/notify"
	"github.com/hocy1609/spybot/store/sqlite"
)

// Config holds top-level configuration for a spybot application.
type Config struct {
	// ServerAddr is the address the HTTP server listens on (default ":7080").
	ServerAddr string

	// DataDir is the directory for persistent data (default "~/.spybot").
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// LogPath is the game client log file to watch.
	LogPath string

	// Webhooks and Keywords seed the monitor config on first start; a
	// config persisted in the store takes precedence.
	Webhooks []string
	Keywords []string

	// TriggerKey is the actuation key for the combat auto-trigger.
	TriggerKey string

	// ActuatorTool is the input binary for key delivery. Empty means
	// dry-run (presses are logged only).
	ActuatorTool string

	// WindowTarget is the game window title substring focused before a
	// craft run starts. Empty skips focusing.
	WindowTarget string
}

// Builder constructs a spybot App.
type Builder struct {
	config   Config
	store    *sqlite.Store
	bus      *eventbus.Bus
	act      actuator.Actuator
	channels []notify.Channel
}

// NewBuilder creates a new Builder with sensible defaults.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the application configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the persistence store.
func (b *Builder) WithStore(s *sqlite.Store) *Builder {
	b.store = s
	return b
}

// WithBus sets the event bus.
func (b *Builder) WithBus(bus *eventbus.Bus) *Builder {
	b.bus = bus
	return b
}

// WithActuator sets the key-press actuator implementation.
func (b *Builder) WithActuator(a actuator.Actuator) *Builder {
	b.act = a
	return b
}

// WithChannel adds a notification channel (Slack, Telegram, etc.).
func (b *Builder) WithChannel(ch notify.Channel) *Builder {
	b.channels = append(b.channels, ch)
	return b
}

// Build creates the App. Missing components are filled with defaults.
func (b *Builder) Build() (*App, error) {
	if err := applyDefaults(b); err != nil {
		return nil, err
	}

	mon := monitor.New(monitor.Options{
		Store:    b.store,
		Bus:      b.bus,
		Actuator: b.act,
		Channels: b.channels,
	})
	b.seedMonitorConfig(mon)

	craftCfg := craft.DefaultConfig(b.config.LogPath)
	craftCfg.WindowTarget = b.config.WindowTarget
	crafter := craft.New(craftCfg, b.store, b.bus, b.act)
	handler := httpapi.New(mon, crafter, b.store, b.bus)

	return &App{
		config:  b.config,
		store:   b.store,
		monitor: mon,
		crafter: crafter,
		handler: handler,
	}, nil
}

// seedMonitorConfig applies builder settings when no config has been
// persisted yet, so a fresh install starts with the env-provided values.
func (b *Builder) seedMonitorConfig(mon *monitor.Manager) {
	cfg := mon.Config()
	if cfg.LogPath != "" {
		return
	}
	cfg.LogPath = b.config.LogPath
	cfg.Webhooks = b.config.Webhooks
	cfg.Keywords = b.config.Keywords
	cfg.Trigger = model.TriggerConfig{Key: b.config.TriggerKey}
	if err := mon.UpdateConfig(cfg); err != nil {
		log.Printf("seeding monitor config: %v", err)
	}
}

// App is a running spybot application.
type App struct {
	config  Config
	store   *sqlite.Store
	monitor *monitor.Manager
	crafter *craft.Controller
	handler *httpapi.Handler
}

// Monitor returns the monitor manager for direct access.
func (a *App) Monitor() *monitor.Manager { return a.monitor }

// Crafter returns the craft controller for direct access.
func (a *App) Crafter() *craft.Controller { return a.crafter }

// Start starts the monitor and the HTTP server. Blocks until ctx is done.
func (a *App) Start(ctx context.Context) error {
	a.monitor.Start()

	srv := &http.Server{
		Addr:    a.config.ServerAddr,
		Handler: a.handler.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("spybot server listening on %s", a.config.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	a.crafter.Stop()
	a.monitor.Stop()
	return a.store.Close()
}
