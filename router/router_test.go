package router

import (
	"testing"

	"github.com/hocy1609/spybot/model"
)

type notifyRecorder struct {
	matches []model.Match
}

func (n *notifyRecorder) Notify(m model.Match) {
	n.matches = append(n.matches, m)
}

type triggerRecorder struct {
	keys []string
}

func (a *triggerRecorder) Trigger(key string) {
	a.keys = append(a.keys, key)
}

func newTestRouter() (*Router, *notifyRecorder, *triggerRecorder) {
	n := &notifyRecorder{}
	a := &triggerRecorder{}
	return New(n, a), n, a
}

func TestKeywordFirstMatchWins(t *testing.T) {
	r, n, _ := newTestRouter()
	r.SetKeywords([]string{"attacks", "attacks you"})

	r.Route("Goblin attacks you for 5 damage")

	if len(n.matches) != 1 {
		t.Fatalf("got %d notifications, want 1", len(n.matches))
	}
	if n.matches[0].Keyword != "attacks" {
		t.Errorf("matched keyword %q, want first-listed %q", n.matches[0].Keyword, "attacks")
	}
}

func TestKeywordMatchIsCaseInsensitive(t *testing.T) {
	r, n, _ := newTestRouter()
	r.SetKeywords([]string{"PlayerName"})

	r.Route("playername entered the area")

	if len(n.matches) != 1 {
		t.Fatalf("got %d notifications, want 1", len(n.matches))
	}
	if n.matches[0].Line != "playername entered the area" {
		t.Errorf("match carries line %q", n.matches[0].Line)
	}
}

func TestNoKeywordNoNotification(t *testing.T) {
	r, n, _ := newTestRouter()
	r.SetKeywords([]string{"specific"})

	r.Route("nothing interesting here")

	if len(n.matches) != 0 {
		t.Errorf("got %d notifications, want 0", len(n.matches))
	}
}

func TestTriggerIndependentOfKeywords(t *testing.T) {
	r, n, a := newTestRouter()
	r.SetKeywords([]string{"open wounds"})
	r.SetTriggers([]Trigger{{Phrase: CombatHitPhrase, Key: "F1", Enabled: true}})

	// One line can produce both a notification and an actuation.
	r.Route("Your Open Wounds hit the target")

	if len(n.matches) != 1 {
		t.Errorf("got %d notifications, want 1", len(n.matches))
	}
	if len(a.keys) != 1 || a.keys[0] != "F1" {
		t.Errorf("got actuations %v, want [F1]", a.keys)
	}
}

func TestDisabledTriggerIgnored(t *testing.T) {
	r, _, a := newTestRouter()
	r.SetTriggers([]Trigger{{Phrase: CombatHitPhrase, Key: "F1", Enabled: false}})

	r.Route("open wounds hit again")

	if len(a.keys) != 0 {
		t.Errorf("disabled trigger fired: %v", a.keys)
	}
}

func TestSetKeywordsFiltersBlanks(t *testing.T) {
	r, n, _ := newTestRouter()
	r.SetKeywords([]string{"", "  ", "real"})

	r.Route("a real line")
	r.Route("anything at all")

	if len(n.matches) != 1 {
		t.Errorf("got %d notifications, want 1 (blank keywords must not match everything)", len(n.matches))
	}
}
