// Package router classifies log lines against user-configured keywords and
// fixed trigger phrases, fanning matches out to the notification and
// actuation paths.
package router

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hocy1609/spybot/model"
)

// Fixed trigger phrases recognized in the log stream. These are literal
// substrings of specific server messages, matched case-insensitively.
const (
	// CombatHitPhrase appears when an Open Wounds proc lands.
	CombatHitPhrase = "open wounds hit"
	// PvPZonePhrase appears when the character enters a PvP-enabled zone.
	PvPZonePhrase = "entered pvp zone"
)

// Notifier receives keyword matches (one per line at most).
type Notifier interface {
	Notify(m model.Match)
}

// Actuation receives trigger-phrase hits, normally a cooldown scheduler.
type Actuation interface {
	Trigger(key string)
}

// Trigger binds a fixed phrase to an actuation key.
type Trigger struct {
	Phrase  string
	Key     string
	Enabled bool
}

// Router tests each line against keywords and trigger phrases. Keyword
// matching is first-match-wins in list order; trigger phrases are tested
// independently of keywords, so one line can produce both a notification
// and an actuation.
type Router struct {
	notifier Notifier
	actuate  Actuation

	mu       sync.RWMutex
	keywords []string
	triggers []Trigger
}

// New creates a Router.
func New(notifier Notifier, actuate Actuation) *Router {
	return &Router{notifier: notifier, actuate: actuate}
}

// SetKeywords replaces the keyword list at runtime.
func (r *Router) SetKeywords(keywords []string) {
	cleaned := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if strings.TrimSpace(k) != "" {
			cleaned = append(cleaned, k)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keywords = cleaned
}

// SetTriggers replaces the trigger set at runtime.
func (r *Router) SetTriggers(triggers []Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append([]Trigger(nil), triggers...)
}

// Route classifies a single line.
func (r *Router) Route(line string) {
	if line == "" {
		return
	}
	r.mu.RLock()
	keywords := r.keywords
	triggers := r.triggers
	r.mu.RUnlock()

	lower := strings.ToLower(line)

	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			if r.notifier != nil {
				r.notifier.Notify(model.Match{Line: line, Keyword: k, At: time.Now().UTC()})
			}
			break
		}
	}

	for _, t := range triggers {
		if !t.Enabled {
			continue
		}
		if strings.Contains(lower, t.Phrase) && r.actuate != nil {
			r.actuate.Trigger(t.Key)
		}
	}
}

// Run consumes lines until the channel closes or ctx is cancelled.
func (r *Router) Run(ctx context.Context, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			r.Route(line)
		}
	}
}
