package actuator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return []byte("tool output"), f.err
	}
	return nil, nil
}

func TestKeyToolPress(t *testing.T) {
	runner := &fakeRunner{}
	k := NewKeyToolWithRunner("xdotool", runner)

	if err := k.Press(context.Background(), "F12"); err != nil {
		t.Fatalf("Press: %v", err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(runner.calls))
	}
	want := []string{"xdotool", "key", "F12"}
	for i, arg := range want {
		if runner.calls[0][i] != arg {
			t.Errorf("call = %v, want %v", runner.calls[0], want)
		}
	}
}

func TestKeyToolPressError(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("no display")}
	k := NewKeyToolWithRunner("xdotool", runner)

	err := k.Press(context.Background(), "F12")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestKeyToolRejectsEmptyKey(t *testing.T) {
	k := NewKeyToolWithRunner("xdotool", &fakeRunner{})
	if err := k.Press(context.Background(), "  "); err == nil {
		t.Error("empty key accepted")
	}
}

func TestKeyToolFocus(t *testing.T) {
	runner := &fakeRunner{}
	k := NewKeyToolWithRunner("xdotool", runner)

	if err := k.Focus(context.Background(), "Neverwinter"); err != nil {
		t.Fatalf("Focus: %v", err)
	}

	want := []string{"xdotool", "search", "--name", "Neverwinter", "windowactivate"}
	if len(runner.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(runner.calls))
	}
	for i, arg := range want {
		if runner.calls[0][i] != arg {
			t.Errorf("call = %v, want %v", runner.calls[0], want)
		}
	}
}

func TestKeyToolSequence(t *testing.T) {
	runner := &fakeRunner{}
	k := NewKeyToolWithRunner("xdotool", runner)

	if err := k.Sequence(context.Background(), []string{"1", "5", "1"}, 0); err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if len(runner.calls) != 3 {
		t.Errorf("got %d presses, want 3", len(runner.calls))
	}
}

func TestSequenceStopsOnContextCancel(t *testing.T) {
	runner := &fakeRunner{}
	k := NewKeyToolWithRunner("xdotool", runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := k.Sequence(ctx, []string{"1", "2", "3"}, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(runner.calls) > 1 {
		t.Errorf("got %d presses after cancel, want at most 1", len(runner.calls))
	}
}

func TestLogOnlyRecordsPresses(t *testing.T) {
	l := &LogOnly{}
	if err := l.Sequence(context.Background(), []string{"F12", "1"}, 0); err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	pressed := l.Pressed()
	if len(pressed) != 2 || pressed[0] != "F12" {
		t.Errorf("pressed = %v", pressed)
	}
}
