// Package cooldown debounces actuation triggers to a minimum
// inter-activation interval with trailing-edge semantics: a trigger that
// lands inside the cooldown window is deferred to the window's end, and a
// newer trigger replaces any pending deferred one. At most one activation
// fires per window, and a trigger arriving during cooldown is never
// silently dropped.
package cooldown

import (
	"sync"
	"time"
)

const (
	// DefaultWindow is the minimum interval between activations.
	DefaultWindow = 2 * time.Second
	// DefaultEpsilon pads the deferred fire time past the window's end so
	// the immediate-path check cannot race it back into cooldown.
	DefaultEpsilon = 50 * time.Millisecond
)

// Scheduler debounces triggers per key.
type Scheduler struct {
	window  time.Duration
	epsilon time.Duration
	fire    func(key string)

	mu      sync.Mutex
	entries map[string]*entry
	hits    int64
	stopped bool
}

type entry struct {
	last    time.Time
	pending *time.Timer
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithWindow overrides the cooldown window (tests use short windows).
func WithWindow(d time.Duration) Option {
	return func(s *Scheduler) { s.window = d }
}

// WithEpsilon overrides the deferred-fire padding.
func WithEpsilon(d time.Duration) Option {
	return func(s *Scheduler) { s.epsilon = d }
}

// New creates a Scheduler that invokes fire for each activation.
func New(fire func(key string), opts ...Option) *Scheduler {
	s := &Scheduler{
		window:  DefaultWindow,
		epsilon: DefaultEpsilon,
		fire:    fire,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger requests an activation for key. Outside the cooldown window it
// activates immediately; inside it, it cancels any pending deferred
// activation for the key and schedules a fresh one at the window's end.
func (s *Scheduler) Trigger(key string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	e := s.entries[key]
	if e == nil {
		e = &entry{}
		s.entries[key] = e
	}

	now := time.Now()
	elapsed := now.Sub(e.last)
	if e.last.IsZero() || elapsed >= s.window {
		// This activation serves any trigger still waiting on the timer.
		if e.pending != nil {
			e.pending.Stop()
			e.pending = nil
		}
		e.last = now
		s.hits++
		s.mu.Unlock()
		s.fire(key)
		return
	}

	remaining := s.window - elapsed
	if e.pending != nil {
		e.pending.Stop()
	}
	e.pending = time.AfterFunc(remaining+s.epsilon, func() { s.deferred(key) })
	s.mu.Unlock()
}

func (s *Scheduler) deferred(key string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	e := s.entries[key]
	if e == nil {
		s.mu.Unlock()
		return
	}
	e.pending = nil
	now := time.Now()
	if now.Sub(e.last) < s.window {
		// An immediate activation already served this trigger.
		s.mu.Unlock()
		return
	}
	e.last = now
	s.hits++
	s.mu.Unlock()
	s.fire(key)
}

// Hits returns a snapshot of the total activation count.
func (s *Scheduler) Hits() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

// Pending reports whether a deferred activation is scheduled for key.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	return e != nil && e.pending != nil
}

// Stop cancels all pending deferred activations. Further triggers are
// ignored. A pending timer is cancelled whole; it never partially executes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for _, e := range s.entries {
		if e.pending != nil {
			e.pending.Stop()
			e.pending = nil
		}
	}
}
