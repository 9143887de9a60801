// Package tail incrementally reads newly appended lines from a growing text
// file. The game client writes its log in Windows-1251; invalid bytes are
// replaced, never surfaced as errors.
//
// A Reader owns its cursor exclusively. It starts at end-of-file (historical
// lines are never replayed), resets to zero when the file shrinks below the
// cursor (rotation/truncation), and re-snapshots to end-of-file when the
// watched path changes at runtime.
package tail

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/charmap"
)

// Mode selects the poll interval of a Reader.
type Mode string

const (
	// ModeNormal polls about once a second.
	ModeNormal Mode = "normal"
	// ModeHighPriority polls every ~50ms for latency-sensitive trigger
	// detection (slayer mode).
	ModeHighPriority Mode = "high"
)

const (
	// DefaultNormalInterval is the poll interval in ModeNormal.
	DefaultNormalInterval = 1000 * time.Millisecond
	// DefaultHighInterval is the poll interval in ModeHighPriority.
	DefaultHighInterval = 50 * time.Millisecond
)

// Options configures a Reader.
type Options struct {
	// Path is the log file to watch. May be changed later with SetPath.
	Path string

	// Mode selects the poll interval (default ModeNormal).
	Mode Mode

	// NormalInterval / HighInterval override the poll intervals.
	// Zero means the package default. Tests use short intervals here.
	NormalInterval time.Duration
	HighInterval   time.Duration

	// Buffer is the capacity of the delivered-lines channel (default 256).
	Buffer int
}

// Reader tails a single file on a poll loop. Lines are delivered in file
// order, each exactly once per run, on the Lines channel. Read errors are
// reported on the Errors channel (best effort) and never stop the loop.
type Reader struct {
	normalInterval time.Duration
	highInterval   time.Duration

	mu        sync.Mutex
	path      string
	mode      Mode
	offset    int64
	seekToEnd bool // initialize cursor to EOF on next poll

	lines chan string
	errs  chan error

	startOnce sync.Once
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// NewReader creates a Reader. Call Start to begin watching.
func NewReader(opts Options) *Reader {
	if opts.Mode == "" {
		opts.Mode = ModeNormal
	}
	if opts.NormalInterval <= 0 {
		opts.NormalInterval = DefaultNormalInterval
	}
	if opts.HighInterval <= 0 {
		opts.HighInterval = DefaultHighInterval
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	return &Reader{
		normalInterval: opts.NormalInterval,
		highInterval:   opts.HighInterval,
		path:           opts.Path,
		mode:           opts.Mode,
		seekToEnd:      true,
		lines:          make(chan string, opts.Buffer),
		errs:           make(chan error, 16),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Lines returns the channel of delivered lines. Closed after Stop.
func (r *Reader) Lines() <-chan string { return r.lines }

// Errors returns the channel of non-fatal read errors. Errors are dropped
// when the consumer lags; the poll loop never blocks on reporting.
func (r *Reader) Errors() <-chan error { return r.errs }

// Start launches the poll goroutine. Safe to call once.
func (r *Reader) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

// Stop asks the poll loop to exit. The flag is observed before the next
// file read, never mid-read. Blocks until the loop has finished.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// Running reports whether the reader has been started and not yet stopped.
func (r *Reader) Running() bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case <-r.stop:
		return false
	default:
		return true
	}
}

// SetMode switches the poll interval at runtime without restarting.
func (r *Reader) SetMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
}

// SetPath re-points the reader. The old cursor is discarded and the reader
// begins watching only content appended to the new file after the switch.
func (r *Reader) SetPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path == r.path {
		return
	}
	r.path = path
	r.offset = 0
	r.seekToEnd = true
}

// Offset returns a snapshot of the current cursor offset.
func (r *Reader) Offset() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.offset
}

func (r *Reader) run() {
	defer close(r.done)
	defer close(r.lines)

	for {
		interval := r.interval()
		select {
		case <-r.stop:
			return
		case <-time.After(interval):
		}

		if stopped := r.poll(); stopped {
			return
		}
	}
}

func (r *Reader) interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode == ModeHighPriority {
		return r.highInterval
	}
	return r.normalInterval
}

// poll performs one read attempt. Returns true if the reader observed the
// stop flag while delivering lines.
func (r *Reader) poll() bool {
	r.mu.Lock()
	path := r.path
	offset := r.offset
	initEnd := r.seekToEnd
	r.mu.Unlock()

	if path == "" {
		return false
	}

	fi, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.reportError(fmt.Errorf("stat %s: %w", path, err))
		}
		// Absent file: wait and retry on the same interval.
		return false
	}

	if initEnd {
		r.commitOffset(path, fi.Size(), false)
		return false
	}
	if fi.Size() < offset {
		// Truncation or rotation: resume from the start.
		offset = 0
	}
	if fi.Size() == offset {
		return false
	}

	f, err := os.Open(path)
	if err != nil {
		r.reportError(fmt.Errorf("open %s: %w", path, err))
		return false
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		r.reportError(fmt.Errorf("seek %s: %w", path, err))
		return false
	}
	buf, err := io.ReadAll(f)
	if err != nil {
		r.reportError(fmt.Errorf("read %s: %w", path, err))
		return false
	}

	// Only consume complete lines; a partial trailing line stays in the
	// file for the next poll.
	consumed := lastNewline(buf)
	if consumed < 0 {
		return false
	}
	text := DecodeLegacy(buf[:consumed+1])
	newOffset := offset + int64(consumed) + 1

	for _, line := range splitLines(text) {
		if line == "" {
			continue
		}
		select {
		case r.lines <- line:
		case <-r.stop:
			return true
		}
	}

	r.commitOffset(path, newOffset, true)
	return false
}

// commitOffset stores the new cursor unless the path was switched while the
// read was in flight; a stale commit must not clobber the fresh cursor.
func (r *Reader) commitOffset(path string, offset int64, afterRead bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.path != path {
		return
	}
	if !afterRead && !r.seekToEnd {
		return
	}
	r.offset = offset
	r.seekToEnd = false
}

func (r *Reader) reportError(err error) {
	select {
	case r.errs <- err:
	default:
	}
}

func lastNewline(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == '\n' {
			return i
		}
	}
	return -1
}

func splitLines(text string) []string {
	parts := strings.Split(text, "\n")
	out := parts[:0]
	for _, p := range parts {
		out = append(out, strings.TrimRight(p, "\r"))
	}
	return out
}

// DecodeLegacy decodes Windows-1251 bytes to UTF-8. Bytes with no mapping
// come out as U+FFFD; decoding never fails.
func DecodeLegacy(b []byte) string {
	out, err := charmap.Windows1251.NewDecoder().Bytes(b)
	if err != nil {
		// The charmap decoder does not error, but keep the raw bytes as a
		// fallback rather than dropping data.
		return string(b)
	}
	return string(out)
}
