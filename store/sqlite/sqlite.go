// Package sqlite persists craft runs, presets, and monitor settings.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hocy1609/spybot/model"
)

// Store manages run, preset, and settings persistence in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS craft_runs (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL DEFAULT 'idle',
			jobs       TEXT NOT NULL DEFAULT '[]',
			progress   TEXT NOT NULL DEFAULT '{}',
			requested  INTEGER NOT NULL DEFAULT 0,
			verified   INTEGER NOT NULL DEFAULT 0,
			resumed    INTEGER NOT NULL DEFAULT 0,
			error      TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS run_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			topic      TEXT NOT NULL,
			type       TEXT NOT NULL,
			data       TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_run_events_topic
			ON run_events(topic);

		CREATE TABLE IF NOT EXISTS presets (
			slot       TEXT PRIMARY KEY,
			items      TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS favorites (
			name       TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Craft runs ---

// CreateRun inserts a new craft run.
func (s *Store) CreateRun(run *model.CraftRun) error {
	jobs, err := json.Marshal(run.Jobs)
	if err != nil {
		return err
	}
	progress, err := marshalProgress(run.Progress)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO craft_runs (id, state, jobs, progress, requested, verified, resumed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.State, string(jobs), string(progress),
		run.Requested, run.Verified, run.Resumed, run.CreatedAt, run.UpdatedAt,
	)
	return err
}

// GetRun retrieves a craft run by ID.
func (s *Store) GetRun(id string) (*model.CraftRun, error) {
	row := s.db.QueryRow(
		`SELECT id, state, jobs, progress, requested, verified, resumed, error, created_at, updated_at
		 FROM craft_runs WHERE id = ?`, id,
	)
	return scanRun(row)
}

// ListRuns returns all craft runs ordered by creation time (newest first).
func (s *Store) ListRuns() ([]*model.CraftRun, error) {
	rows, err := s.db.Query(
		`SELECT id, state, jobs, progress, requested, verified, resumed, error, created_at, updated_at
		 FROM craft_runs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*model.CraftRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpdateRun updates mutable fields of a craft run.
func (s *Store) UpdateRun(run *model.CraftRun) error {
	run.UpdatedAt = time.Now().UTC()
	progress, err := marshalProgress(run.Progress)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE craft_runs SET
			state = ?, progress = ?, verified = ?, resumed = ?, error = ?, updated_at = ?
		 WHERE id = ?`,
		run.State, string(progress), run.Verified, run.Resumed, run.Error,
		run.UpdatedAt, run.ID,
	)
	return err
}

// AddEvent inserts a new event and returns its ID.
func (s *Store) AddEvent(event *model.Event) error {
	result, err := s.db.Exec(
		`INSERT INTO run_events (topic, type, data, created_at)
		 VALUES (?, ?, ?, ?)`,
		event.Topic, event.Type, event.Data, event.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = id
	return nil
}

// GetEvents returns events for a topic, optionally after a given event ID.
func (s *Store) GetEvents(topic string, afterID int64) ([]*model.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, topic, type, data, created_at
		 FROM run_events
		 WHERE topic = ? AND id > ?
		 ORDER BY id ASC`,
		topic, afterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e := &model.Event{}
		if err := rows.Scan(&e.ID, &e.Topic, &e.Type, &e.Data, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- Presets ---

// SavePreset upserts a preset by slot.
func (s *Store) SavePreset(p *model.Preset) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO presets (slot, items, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET items = excluded.items, updated_at = excluded.updated_at`,
		p.Slot, string(items), p.UpdatedAt,
	)
	return err
}

// GetPreset retrieves a preset by slot.
func (s *Store) GetPreset(slot string) (*model.Preset, error) {
	row := s.db.QueryRow(
		`SELECT slot, items, updated_at FROM presets WHERE slot = ?`, slot,
	)
	p := &model.Preset{}
	var items string
	if err := row.Scan(&p.Slot, &items, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &p.Items); err != nil {
		return nil, fmt.Errorf("decoding preset %s: %w", slot, err)
	}
	return p, nil
}

// ListPresets returns all presets ordered by slot.
func (s *Store) ListPresets() ([]*model.Preset, error) {
	rows, err := s.db.Query(`SELECT slot, items, updated_at FROM presets ORDER BY slot ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []*model.Preset
	for rows.Next() {
		p := &model.Preset{}
		var items string
		if err := rows.Scan(&p.Slot, &items, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(items), &p.Items); err != nil {
			return nil, fmt.Errorf("decoding preset %s: %w", p.Slot, err)
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// DeletePreset removes a preset by slot.
func (s *Store) DeletePreset(slot string) error {
	_, err := s.db.Exec(`DELETE FROM presets WHERE slot = ?`, slot)
	return err
}

// --- Favorites ---

// AddFavorite marks a recipe name as a favorite. Idempotent.
func (s *Store) AddFavorite(name string) error {
	_, err := s.db.Exec(
		`INSERT INTO favorites (name, created_at) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC(),
	)
	return err
}

// RemoveFavorite unmarks a recipe name.
func (s *Store) RemoveFavorite(name string) error {
	_, err := s.db.Exec(`DELETE FROM favorites WHERE name = ?`, name)
	return err
}

// ListFavorites returns favorite recipe names in insertion order.
func (s *Store) ListFavorites() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM favorites ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// --- Monitor settings ---

const monitorConfigKey = "monitor_config"

// SaveMonitorConfig persists the monitor configuration document.
func (s *Store) SaveMonitorConfig(cfg model.MonitorConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		monitorConfigKey, string(doc),
	)
	return err
}

// LoadMonitorConfig retrieves the persisted monitor configuration.
// Returns sql.ErrNoRows when nothing was saved yet.
func (s *Store) LoadMonitorConfig() (model.MonitorConfig, error) {
	var cfg model.MonitorConfig
	var doc string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE key = ?`, monitorConfigKey,
	).Scan(&doc)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return cfg, fmt.Errorf("decoding monitor config: %w", err)
	}
	return cfg, nil
}

// --- Scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.CraftRun, error) {
	run := &model.CraftRun{}
	var jobs, progress string
	err := row.Scan(
		&run.ID, &run.State, &jobs, &progress,
		&run.Requested, &run.Verified, &run.Resumed, &run.Error,
		&run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(jobs), &run.Jobs); err != nil {
		return nil, fmt.Errorf("decoding run %s jobs: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(progress), &run.Progress); err != nil {
		return nil, fmt.Errorf("decoding run %s progress: %w", run.ID, err)
	}
	return run, nil
}

func marshalProgress(p map[string]int) ([]byte, error) {
	if p == nil {
		p = map[string]int{}
	}
	return json.Marshal(p)
}
