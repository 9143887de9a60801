// Package monitor ties the log reader, router, cooldown scheduler, and
// notification channels into one runtime-reconfigurable unit.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hocy1609/spybot/actuator"
	"github.com/hocy1609/spybot/cooldown"
	"github.com/hocy1609/spybot/eventbus"
	"github.com/hocy1609/spybot/model"
	"github.com/hocy1609/spybot/notify"
	"github.com/hocy1609/spybot/notify/webhook"
	"github.com/hocy1609/spybot/router"
	"github.com/hocy1609/spybot/tail"
)

// Topic is the event-bus topic for live monitor events.
const Topic = "monitor"

// ConfigStore persists the monitor configuration across restarts.
type ConfigStore interface {
	SaveMonitorConfig(cfg model.MonitorConfig) error
	LoadMonitorConfig() (model.MonitorConfig, error)
}

// Status is a point-in-time snapshot of the monitor.
type Status struct {
	Running      bool                `json:"running"`
	Mode         tail.Mode           `json:"mode"`
	Offset       int64               `json:"offset"`
	CooldownHits int64               `json:"cooldown_hits"`
	Config       model.MonitorConfig `json:"config"`
}

// Options configures a Manager.
type Options struct {
	Store    ConfigStore
	Bus      *eventbus.Bus
	Actuator actuator.Actuator
	Channels []notify.Channel // extra sinks beside the webhook dispatcher

	// Tail overrides the reader poll intervals; tests shorten them.
	Tail tail.Options
}

// Manager owns the reader lifecycle. The monitor runs whenever either
// full monitoring or the auto-trigger alone is enabled; the trigger
// forces high-priority polling.
type Manager struct {
	store      ConfigStore
	bus        *eventbus.Bus
	dispatcher *webhook.Dispatcher
	channels   []notify.Channel
	sched      *cooldown.Scheduler
	rt         *router.Router
	act        actuator.Actuator
	tailOpts   tail.Options

	mu     sync.Mutex
	cfg    model.MonitorConfig
	reader *tail.Reader
	wg     sync.WaitGroup
}

// New creates a Manager with the persisted config, if any.
func New(opts Options) *Manager {
	m := &Manager{
		store:    opts.Store,
		bus:      opts.Bus,
		channels: opts.Channels,
		act:      opts.Actuator,
		tailOpts: opts.Tail,
	}
	m.dispatcher = webhook.New(nil, func(err error) {
		log.Printf("monitor: webhook delivery: %v", err)
		m.emit("error", err.Error())
	})
	m.sched = cooldown.New(m.fireTrigger)
	m.rt = router.New(m, m.sched)

	if m.store != nil {
		if cfg, err := m.store.LoadMonitorConfig(); err == nil {
			m.cfg = cfg
		}
	}
	return m
}

// Start applies the persisted configuration, launching the reader if it
// calls for one.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply()
}

// Stop shuts the reader and cooldown scheduler down.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.reader != nil {
		m.reader.Stop()
		m.reader = nil
	}
	m.mu.Unlock()
	m.wg.Wait()
	m.sched.Stop()
}

// Config returns a copy of the current configuration.
func (m *Manager) Config() model.MonitorConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// UpdateConfig persists and hot-applies a new configuration. The reader
// keeps running across keyword/webhook edits; a path change re-points it
// without replaying old content.
func (m *Manager) UpdateConfig(cfg model.MonitorConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	if m.store != nil {
		if err := m.store.SaveMonitorConfig(cfg); err != nil {
			return err
		}
	}
	m.apply()
	return nil
}

// SetEnabled flips full monitoring on or off.
func (m *Manager) SetEnabled(enabled bool) error {
	cfg := m.Config()
	cfg.Enabled = enabled
	return m.UpdateConfig(cfg)
}

// ToggleTrigger flips the auto-trigger. With monitoring off, the trigger
// alone still keeps a high-priority reader alive.
func (m *Manager) ToggleTrigger(enabled bool) error {
	cfg := m.Config()
	cfg.Trigger.Enabled = enabled
	return m.UpdateConfig(cfg)
}

// Status snapshots the monitor.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		Mode:         m.mode(),
		CooldownHits: m.sched.Hits(),
		Config:       m.cfg,
	}
	if m.reader != nil {
		st.Running = m.reader.Running()
		st.Offset = m.reader.Offset()
	}
	return st
}

// apply reconciles the reader with the current config. Caller holds m.mu.
func (m *Manager) apply() {
	m.dispatcher.SetEndpoints(m.cfg.Webhooks)
	m.rt.SetKeywords(m.keywords())
	m.rt.SetTriggers([]router.Trigger{{
		Phrase:  router.CombatHitPhrase,
		Key:     m.cfg.Trigger.Key,
		Enabled: m.cfg.Trigger.Enabled,
	}})

	want := (m.cfg.Enabled || m.cfg.Trigger.Enabled) && m.cfg.LogPath != ""
	if !want {
		if m.reader != nil {
			m.reader.Stop()
			m.reader = nil
		}
		return
	}

	if m.reader != nil {
		m.reader.SetPath(m.cfg.LogPath)
		m.reader.SetMode(m.mode())
		return
	}

	opts := m.tailOpts
	opts.Path = m.cfg.LogPath
	opts.Mode = m.mode()
	m.reader = tail.NewReader(opts)
	m.reader.Start()

	reader := m.reader
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.rt.Run(context.Background(), reader.Lines())
	}()
	go func() {
		defer m.wg.Done()
		for err := range drain(reader) {
			log.Printf("monitor: %v", err)
			m.emit("error", err.Error())
		}
	}()
}

// keywords returns the effective notification keywords. Entering a PvP
// zone always alerts while full monitoring is on. Caller holds m.mu.
func (m *Manager) keywords() []string {
	if !m.cfg.Enabled {
		// Trigger-only mode: no notifications.
		return nil
	}
	return append(append([]string(nil), m.cfg.Keywords...), router.PvPZonePhrase)
}

// mode picks the poll interval. The trigger needs ~50ms reaction time.
// Caller holds m.mu.
func (m *Manager) mode() tail.Mode {
	if m.cfg.Trigger.Enabled {
		return tail.ModeHighPriority
	}
	return tail.ModeNormal
}

// Notify implements router.Notifier: fan the match out to the webhook
// dispatcher and every extra channel without blocking the read loop.
func (m *Manager) Notify(match model.Match) {
	m.emit("match", match.Keyword+": "+match.Line)
	go m.dispatcher.Dispatch(context.Background(), match)
	for _, ch := range m.channels {
		go func(ch notify.Channel) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := ch.Notify(ctx, match); err != nil {
				log.Printf("monitor: %s delivery: %v", ch.Name(), err)
			}
		}(ch)
	}
}

// fireTrigger delivers one debounced actuation.
func (m *Manager) fireTrigger(key string) {
	m.emit("trigger", key)
	if m.act == nil || key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.act.Press(ctx, key); err != nil {
		log.Printf("monitor: trigger press %s: %v", key, err)
	}
}

func (m *Manager) emit(typ, data string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(&model.Event{
		Topic:     Topic,
		Type:      typ,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
}

// drain adapts the reader's error channel so the consumer loop ends when
// the lines channel closes.
func drain(r *tail.Reader) <-chan error {
	out := make(chan error)
	go func() {
		defer close(out)
		for {
			select {
			case err, ok := <-r.Errors():
				if !ok {
					return
				}
				out <- err
			case <-time.After(time.Second):
				if !r.Running() {
					return
				}
			}
		}
	}()
	return out
}
