package tail

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Window is an offset-scoped synchronous view over the same log file the
// Reader tails. The craft controller opens its own Window so verification
// covers exactly the output produced after a given attempt, independent of
// any Reader's cursor.
type Window struct {
	path   string
	offset int64
}

// OpenWindow snapshots the current end of the file at path.
func OpenWindow(path string) (*Window, error) {
	w := &Window{path: path}
	if err := w.Snapshot(); err != nil {
		return nil, err
	}
	return w, nil
}

// Snapshot moves the window start to the current end of the file.
func (w *Window) Snapshot() error {
	fi, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.path, err)
	}
	w.offset = fi.Size()
	return nil
}

// Offset returns the window's current start offset.
func (w *Window) Offset() int64 { return w.offset }

// ReadNew returns everything appended since the last snapshot/read and
// advances the window. A file shrunk below the offset resets it to zero
// before reading.
func (w *Window) ReadNew() (string, error) {
	fi, err := os.Stat(w.path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", w.path, err)
	}
	if fi.Size() < w.offset {
		w.offset = 0
	}
	if fi.Size() == w.offset {
		return "", nil
	}

	f, err := os.Open(w.path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(w.offset, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek %s: %w", w.path, err)
	}
	buf, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", w.path, err)
	}
	w.offset += int64(len(buf))
	return DecodeLegacy(buf), nil
}

// WaitFor polls the window for a case-insensitive substring marker until it
// appears or timeout elapses. Transient read errors are swallowed and the
// poll retries on the next tick; only ctx cancellation aborts early.
func (w *Window) WaitFor(ctx context.Context, marker string, timeout, interval time.Duration) (bool, error) {
	marker = strings.ToLower(marker)
	deadline := time.Now().Add(timeout)
	for {
		content, err := w.ReadNew()
		if err == nil && strings.Contains(strings.ToLower(content), marker) {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
}
