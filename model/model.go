// Package model defines the core domain types shared across all spybot packages.
// It has zero dependencies on other spybot packages.
package model

import "time"

// RunState represents the current state of a craft run.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunAborted   RunState = "aborted"
	// RunStopped means the run was stopped cooperatively and can be resumed.
	RunStopped RunState = "stopped"
)

// Terminal reports whether the state is one the run cannot leave on its own.
func (s RunState) Terminal() bool {
	return s == RunSucceeded || s == RunAborted || s == RunStopped
}

// CraftJob is one entry in a craft queue: craft Count items of Item by
// issuing the Sequence actuation codes.
type CraftJob struct {
	Item     string `json:"item"`
	Sequence string `json:"sequence"`
	Count    int    `json:"count"`
}

// CraftRun is the persisted summary of a single controller run.
// Progress maps each sequence to the number of verified crafts, so a
// stopped run can be resumed with only the remaining work.
type CraftRun struct {
	ID        string         `json:"id"`
	State     RunState       `json:"state"`
	Jobs      []CraftJob     `json:"jobs"`
	Progress  map[string]int `json:"progress"`
	Requested int            `json:"requested"`
	Verified  int            `json:"verified"`
	Resumed   bool           `json:"resumed,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CanResume reports whether the run can be picked back up where it
// left off. Succeeded runs have nothing left to do.
func (r *CraftRun) CanResume() bool {
	return r.State == RunStopped || r.State == RunAborted
}

// Remaining returns how many crafts are still owed for the given job,
// based on recorded progress.
func (r *CraftRun) Remaining(job CraftJob) int {
	done := 0
	if r.Progress != nil {
		done = r.Progress[job.Sequence]
	}
	if done >= job.Count {
		return 0
	}
	return job.Count - done
}

// Event represents a single event in a run's (or the monitor's) lifecycle.
type Event struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	Type      string    `json:"type"` // "status", "progress", "match", "error", "done"
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Match is a log line that matched a configured keyword.
type Match struct {
	Line    string    `json:"line"`
	Keyword string    `json:"keyword"`
	At      time.Time `json:"at"`
}

// TriggerConfig controls the auto-actuation trigger (slayer mode).
type TriggerConfig struct {
	Enabled bool   `json:"enabled"`
	Key     string `json:"key"` // actuation code, e.g. "F1"
}

// MonitorConfig is the runtime-mutable configuration of the log monitor.
type MonitorConfig struct {
	Enabled  bool          `json:"enabled"`
	LogPath  string        `json:"log_path"`
	Webhooks []string      `json:"webhooks"`
	Keywords []string      `json:"keywords"`
	Trigger  TriggerConfig `json:"trigger"`
}

// PresetItem is one (sequence, count) pair inside a preset.
type PresetItem struct {
	Sequence string `json:"sequence"`
	Count    int    `json:"count"`
}

// Preset is a named, persisted snapshot of a craft queue selection.
// It is independent of any run's progress.
type Preset struct {
	Slot      string       `json:"slot"`
	Items     []PresetItem `json:"items"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Recipe maps a craftable item name to its menu actuation sequence.
type Recipe struct {
	Name     string `json:"name"`
	Sequence string `json:"sequence"`
}

// Truncate shortens a string to maxLen runes, adding "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		r := []rune(s)
		if len(r) <= maxLen {
			return s
		}
		return string(r[:maxLen])
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
