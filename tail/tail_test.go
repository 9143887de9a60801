package tail

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("appending to %s: %v", path, err)
	}
}

func newTestReader(path string) *Reader {
	return NewReader(Options{
		Path:           path,
		NormalInterval: 10 * time.Millisecond,
		HighInterval:   5 * time.Millisecond,
	})
}

func collectLines(t *testing.T, r *Reader, n int, timeout time.Duration) []string {
	t.Helper()
	var out []string
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case line := <-r.Lines():
			out = append(out, line)
		case <-deadline:
			t.Fatalf("timed out after %v waiting for %d lines, got %d: %v", timeout, n, len(out), out)
		}
	}
	return out
}

func expectNoLines(t *testing.T, r *Reader, wait time.Duration) {
	t.Helper()
	select {
	case line := <-r.Lines():
		t.Fatalf("unexpected line delivered: %q", line)
	case <-time.After(wait):
	}
}

func TestReaderDeliversOnlyNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	writeFile(t, path, "old line 1\nold line 2\n")

	r := newTestReader(path)
	r.Start()
	defer r.Stop()

	// Historical content must not replay.
	expectNoLines(t, r, 50*time.Millisecond)

	appendFile(t, path, "new line 1\nnew line 2\n")
	lines := collectLines(t, r, 2, time.Second)
	if lines[0] != "new line 1" || lines[1] != "new line 2" {
		t.Errorf("got lines %v, want [new line 1 new line 2]", lines)
	}
}

func TestReaderHoldsPartialLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	writeFile(t, path, "")

	r := newTestReader(path)
	r.Start()
	defer r.Stop()

	appendFile(t, path, "incomplete")
	expectNoLines(t, r, 50*time.Millisecond)

	appendFile(t, path, " line\n")
	lines := collectLines(t, r, 1, time.Second)
	if lines[0] != "incomplete line" {
		t.Errorf("got %q, want %q", lines[0], "incomplete line")
	}
}

func TestReaderResetsOnShrink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	writeFile(t, path, "aaaaaaaaaaaaaaaaaaaaaaaa\n")

	r := newTestReader(path)
	r.Start()
	defer r.Stop()

	appendFile(t, path, "before shrink\n")
	collectLines(t, r, 1, time.Second)

	// Truncate below the cursor; everything in the new file is new content.
	writeFile(t, path, "after shrink\n")
	lines := collectLines(t, r, 1, time.Second)
	if lines[0] != "after shrink" {
		t.Errorf("got %q, want %q", lines[0], "after shrink")
	}
}

func TestReaderSetPathDoesNotReplay(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")
	writeFile(t, first, "")
	writeFile(t, second, "second history\n")

	r := newTestReader(first)
	r.Start()
	defer r.Stop()

	appendFile(t, first, "from first\n")
	collectLines(t, r, 1, time.Second)

	r.SetPath(second)

	// Existing content of the new file must not replay.
	expectNoLines(t, r, 50*time.Millisecond)

	appendFile(t, second, "from second\n")
	lines := collectLines(t, r, 1, time.Second)
	if lines[0] != "from second" {
		t.Errorf("got %q, want %q", lines[0], "from second")
	}
}

func TestReaderToleratesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late.log")

	r := newTestReader(path)
	r.Start()
	defer r.Stop()

	time.Sleep(30 * time.Millisecond)
	writeFile(t, path, "history before reader saw the file\n")
	expectNoLines(t, r, 50*time.Millisecond)

	appendFile(t, path, "appeared\n")
	lines := collectLines(t, r, 1, time.Second)
	if lines[0] != "appeared" {
		t.Errorf("got %q, want %q", lines[0], "appeared")
	}

	select {
	case err := <-r.Errors():
		t.Errorf("missing file reported as error: %v", err)
	default:
	}
}

func TestReaderSetMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	writeFile(t, path, "")

	r := NewReader(Options{
		Path:           path,
		NormalInterval: 10 * time.Millisecond,
		HighInterval:   5 * time.Millisecond,
	})
	r.Start()
	defer r.Stop()

	r.SetMode(ModeHighPriority)
	appendFile(t, path, "fast lane\n")
	lines := collectLines(t, r, 1, time.Second)
	if lines[0] != "fast lane" {
		t.Errorf("got %q, want %q", lines[0], "fast lane")
	}
}

func TestDecodeLegacy(t *testing.T) {
	// "Привет" in Windows-1251.
	raw := []byte{0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2}
	if got := DecodeLegacy(raw); got != "Привет" {
		t.Errorf("DecodeLegacy = %q, want %q", got, "Привет")
	}
	if got := DecodeLegacy([]byte("plain ascii")); got != "plain ascii" {
		t.Errorf("DecodeLegacy ascii = %q", got)
	}
}

func TestWindowWaitFor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	writeFile(t, path, "Acquired Item: old one\n")

	w, err := OpenWindow(path)
	if err != nil {
		t.Fatalf("OpenWindow: %v", err)
	}

	// The marker before the snapshot must not count.
	found, err := w.WaitFor(context.Background(), "Acquired Item", 50*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitFor: %v", err)
	}
	if found {
		t.Fatal("found marker that predates the window")
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		appendFile(t, path, "blah\nACQUIRED ITEM: Antidote\n")
	}()

	found, err = w.WaitFor(context.Background(), "Acquired Item", time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitFor: %v", err)
	}
	if !found {
		t.Error("marker appended after snapshot not found")
	}
}

func TestWindowWaitForContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.log")
	writeFile(t, path, "")

	w, err := OpenWindow(path)
	if err != nil {
		t.Fatalf("OpenWindow: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = w.WaitFor(ctx, "never", time.Minute, 10*time.Millisecond)
	if err == nil {
		t.Error("expected context error")
	}
}
