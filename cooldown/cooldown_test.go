package cooldown

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	fires []string
}

func (r *recorder) fire(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fires = append(r.fires, key)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fires)
}

func TestImmediateFireOutsideWindow(t *testing.T) {
	rec := &recorder{}
	s := New(rec.fire, WithWindow(50*time.Millisecond), WithEpsilon(5*time.Millisecond))
	defer s.Stop()

	s.Trigger("F1")
	if rec.count() != 1 {
		t.Fatalf("first trigger fired %d times, want 1", rec.count())
	}
	if s.Hits() != 1 {
		t.Errorf("hits = %d, want 1", s.Hits())
	}
}

func TestSecondTriggerDefersToWindowEnd(t *testing.T) {
	rec := &recorder{}
	s := New(rec.fire, WithWindow(50*time.Millisecond), WithEpsilon(5*time.Millisecond))
	defer s.Stop()

	s.Trigger("F1")
	s.Trigger("F1")

	if rec.count() != 1 {
		t.Fatalf("fired %d times before window end, want 1", rec.count())
	}
	if !s.Pending("F1") {
		t.Fatal("second trigger not pending")
	}

	deadline := time.Now().Add(time.Second)
	for rec.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("deferred activation never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.Hits() != 2 {
		t.Errorf("hits = %d, want 2", s.Hits())
	}
	if s.Pending("F1") {
		t.Error("pending flag not cleared after deferred fire")
	}
}

func TestNewerTriggerReplacesPending(t *testing.T) {
	rec := &recorder{}
	s := New(rec.fire, WithWindow(60*time.Millisecond), WithEpsilon(5*time.Millisecond))
	defer s.Stop()

	s.Trigger("F1")
	s.Trigger("F1")
	s.Trigger("F1")
	s.Trigger("F1")

	// However many triggers landed in the window, only one deferral fires.
	deadline := time.Now().Add(time.Second)
	for rec.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("deferred activation never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if rec.count() != 2 {
		t.Errorf("fired %d times, want 2 (one immediate, one deferred)", rec.count())
	}
}

func TestImmediateFireCancelsStalePending(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	fire := func(string) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
	}
	// A large epsilon widens the gap between the window's end and the
	// deferred timer's fire time, where a fresh trigger takes the
	// immediate path while the old timer is still armed.
	window := 200 * time.Millisecond
	s := New(fire, WithWindow(window), WithEpsilon(150*time.Millisecond))
	defer s.Stop()

	s.Trigger("F1")
	time.Sleep(100 * time.Millisecond)
	s.Trigger("F1") // deferred, timer armed past the window's end
	time.Sleep(150 * time.Millisecond)
	s.Trigger("F1") // window elapsed: immediate, must cancel the timer
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(times) != 2 {
		t.Fatalf("fired %d times, want 2 (two immediates, stale timer cancelled)", len(times))
	}
	if gap := times[1].Sub(times[0]); gap < window {
		t.Errorf("activations %v apart, want >= %v", gap, window)
	}
}

func TestIndependentKeys(t *testing.T) {
	rec := &recorder{}
	s := New(rec.fire, WithWindow(50*time.Millisecond), WithEpsilon(5*time.Millisecond))
	defer s.Stop()

	s.Trigger("F1")
	s.Trigger("F2")
	if rec.count() != 2 {
		t.Errorf("distinct keys fired %d times, want 2", rec.count())
	}
}

func TestStopCancelsPending(t *testing.T) {
	rec := &recorder{}
	s := New(rec.fire, WithWindow(50*time.Millisecond), WithEpsilon(5*time.Millisecond))

	s.Trigger("F1")
	s.Trigger("F1")
	s.Stop()

	time.Sleep(100 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("fired %d times after Stop, want 1", rec.count())
	}

	// Triggers after Stop are ignored.
	s.Trigger("F1")
	if rec.count() != 1 {
		t.Errorf("trigger after Stop fired")
	}
}
