package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hocy1609/spybot/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunRoundTrip(t *testing.T) {
	s := newTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	run := &model.CraftRun{
		ID:    "abc12345",
		State: model.RunRunning,
		Jobs: []model.CraftJob{
			{Item: "Antidote", Sequence: "311", Count: 5},
		},
		Progress:  map[string]int{},
		Requested: 5,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	run.State = model.RunStopped
	run.Progress["311"] = 3
	run.Verified = 3
	if err := s.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err := s.GetRun("abc12345")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.State != model.RunStopped {
		t.Errorf("state = %s, want stopped", got.State)
	}
	if got.Verified != 3 || got.Progress["311"] != 3 {
		t.Errorf("verified = %d, progress = %v", got.Verified, got.Progress)
	}
	if len(got.Jobs) != 1 || got.Jobs[0].Item != "Antidote" {
		t.Errorf("jobs = %+v", got.Jobs)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for i, id := range []string{"first000", "second00"} {
		run := &model.CraftRun{
			ID:        id,
			State:     model.RunSucceeded,
			Jobs:      []model.CraftJob{{Sequence: "151", Count: 1}},
			Progress:  map[string]int{},
			Requested: 1,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Minute),
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.CreateRun(run); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "second00" {
		t.Errorf("first listed = %s, want newest", runs[0].ID)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetRun("missing"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestEvents(t *testing.T) {
	s := newTestStore(t)

	for _, typ := range []string{"status", "progress", "done"} {
		e := &model.Event{Topic: "run1", Type: typ, Data: typ, CreatedAt: time.Now().UTC()}
		if err := s.AddEvent(e); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
		if e.ID == 0 {
			t.Error("AddEvent did not backfill ID")
		}
	}
	otherTopic := &model.Event{Topic: "run2", Type: "status", CreatedAt: time.Now().UTC()}
	if err := s.AddEvent(otherTopic); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	events, err := s.GetEvents("run1", 0)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Type != "status" || events[2].Type != "done" {
		t.Errorf("events out of order: %+v", events)
	}

	after, err := s.GetEvents("run1", events[0].ID)
	if err != nil {
		t.Fatalf("GetEvents after: %v", err)
	}
	if len(after) != 2 {
		t.Errorf("got %d events after first, want 2", len(after))
	}
}

func TestPresetUpsert(t *testing.T) {
	s := newTestStore(t)

	p := &model.Preset{
		Slot:  "1",
		Items: []model.PresetItem{{Sequence: "151", Count: 10}},
	}
	if err := s.SavePreset(p); err != nil {
		t.Fatalf("SavePreset: %v", err)
	}

	p.Items = append(p.Items, model.PresetItem{Sequence: "211", Count: 3})
	if err := s.SavePreset(p); err != nil {
		t.Fatalf("SavePreset upsert: %v", err)
	}

	got, err := s.GetPreset("1")
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	if len(got.Items) != 2 {
		t.Errorf("got %d items, want 2 after upsert", len(got.Items))
	}

	list, err := s.ListPresets()
	if err != nil {
		t.Fatalf("ListPresets: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d presets, want 1", len(list))
	}

	if err := s.DeletePreset("1"); err != nil {
		t.Fatalf("DeletePreset: %v", err)
	}
	if _, err := s.GetPreset("1"); err == nil {
		t.Error("preset still present after delete")
	}
}

func TestFavorites(t *testing.T) {
	s := newTestStore(t)

	names, err := s.ListFavorites()
	if err != nil {
		t.Fatalf("ListFavorites: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("got %d favorites on a fresh store", len(names))
	}

	for _, name := range []string{"Antidote", "Cure Light Wounds Potion", "Antidote"} {
		if err := s.AddFavorite(name); err != nil {
			t.Fatalf("AddFavorite %s: %v", name, err)
		}
	}

	names, err = s.ListFavorites()
	if err != nil {
		t.Fatalf("ListFavorites: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("got %d favorites, want 2 (duplicate add must be idempotent)", len(names))
	}

	if err := s.RemoveFavorite("Antidote"); err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
	names, _ = s.ListFavorites()
	if len(names) != 1 || names[0] != "Cure Light Wounds Potion" {
		t.Errorf("favorites after remove = %v", names)
	}

	// Removing a name that is not favorited is not an error.
	if err := s.RemoveFavorite("Antidote"); err != nil {
		t.Errorf("RemoveFavorite missing: %v", err)
	}
}

func TestMonitorConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.LoadMonitorConfig(); err == nil {
		t.Error("expected error before any config is saved")
	}

	cfg := model.MonitorConfig{
		Enabled:  true,
		LogPath:  "/games/nwn/logs/nwclientLog1.txt",
		Webhooks: []string{"https://discord.com/api/webhooks/x"},
		Keywords: []string{"attacks you"},
		Trigger:  model.TriggerConfig{Enabled: true, Key: "F1"},
	}
	if err := s.SaveMonitorConfig(cfg); err != nil {
		t.Fatalf("SaveMonitorConfig: %v", err)
	}

	got, err := s.LoadMonitorConfig()
	if err != nil {
		t.Fatalf("LoadMonitorConfig: %v", err)
	}
	if !got.Enabled || got.LogPath != cfg.LogPath || got.Trigger.Key != "F1" {
		t.Errorf("got %+v", got)
	}

	// Saving again overwrites.
	cfg.Enabled = false
	if err := s.SaveMonitorConfig(cfg); err != nil {
		t.Fatalf("SaveMonitorConfig overwrite: %v", err)
	}
	got, _ = s.LoadMonitorConfig()
	if got.Enabled {
		t.Error("overwrite did not stick")
	}
}
