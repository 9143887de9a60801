// Package craft runs verified crafting sessions: it drives the in-game
// craft menu through the actuator and confirms each item against the
// character log before counting it.
package craft

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hocy1609/spybot/actuator"
	"github.com/hocy1609/spybot/model"
	"github.com/hocy1609/spybot/tail"
)

// AcquiredMarker is the log phrase that confirms a craft produced an item.
const AcquiredMarker = "Acquired Item"

// RunStore persists runs and their events.
type RunStore interface {
	CreateRun(run *model.CraftRun) error
	UpdateRun(run *model.CraftRun) error
	GetRun(id string) (*model.CraftRun, error)
	AddEvent(event *model.Event) error
}

// Publisher fans events out to live subscribers.
type Publisher interface {
	Publish(event *model.Event)
}

// Config holds the timing and key bindings of the crafting loop.
type Config struct {
	LogPath string

	// WindowTarget is a game window title substring to focus before the
	// first key press. Empty skips focusing.
	WindowTarget string

	MenuKey   string // opens the craft menu
	CancelKey string // backs out of the menu

	StartDelay    time.Duration // before the first key press of a run
	InterKeyDelay time.Duration // between sequence key presses
	MenuDelay     time.Duration // after opening the menu
	SettleDelay   time.Duration // between attempts

	VerifyTimeout  time.Duration
	VerifyInterval time.Duration

	MaxConsecutiveFailures int
	CancelPresses          int
	ResetPause             time.Duration
}

// DefaultConfig returns the timings the game client tolerates in practice.
func DefaultConfig(logPath string) Config {
	return Config{
		LogPath:                logPath,
		MenuKey:                "F12",
		CancelKey:              "Escape",
		StartDelay:             3 * time.Second,
		InterKeyDelay:          150 * time.Millisecond,
		MenuDelay:              500 * time.Millisecond,
		SettleDelay:            300 * time.Millisecond,
		VerifyTimeout:          3 * time.Second,
		VerifyInterval:         100 * time.Millisecond,
		MaxConsecutiveFailures: 5,
		CancelPresses:          5,
		ResetPause:             time.Second,
	}
}

// Controller owns at most one active craft run at a time.
type Controller struct {
	cfg   Config
	store RunStore
	bus   Publisher
	act   actuator.Actuator

	mu     sync.Mutex
	run    *model.CraftRun
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Controller. The actuator and store are required; bus may
// be nil when nothing streams events live.
func New(cfg Config, store RunStore, bus Publisher, act actuator.Actuator) *Controller {
	return &Controller{cfg: cfg, store: store, bus: bus, act: act}
}

// Start begins a new run for the given queue. Zero-count jobs are
// skipped; it fails if a run is already active or nothing is left to
// craft.
func (c *Controller) Start(jobs []model.CraftJob) (*model.CraftRun, error) {
	jobs = ResolveJobs(jobs)
	queue := make([]model.CraftJob, 0, len(jobs))
	requested := 0
	for _, j := range jobs {
		if j.Count <= 0 {
			continue
		}
		if strings.TrimSpace(j.Sequence) == "" {
			return nil, fmt.Errorf("job %q has no sequence", j.Item)
		}
		queue = append(queue, j)
		requested += j.Count
	}
	if requested == 0 {
		return nil, fmt.Errorf("empty craft queue")
	}
	jobs = queue

	now := time.Now().UTC()
	run := &model.CraftRun{
		ID:        uuid.New().String()[:8],
		State:     model.RunRunning,
		Jobs:      jobs,
		Progress:  map[string]int{},
		Requested: requested,
		CreatedAt: now,
		UpdatedAt: now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active() {
		return nil, fmt.Errorf("a craft run is already active")
	}
	if err := c.store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	c.launch(run)
	return run, nil
}

// Resume restarts a stopped or aborted run, crafting only the
// remaining items.
func (c *Controller) Resume(id string) (*model.CraftRun, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active() {
		return nil, fmt.Errorf("a craft run is already active")
	}

	run, err := c.store.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	if !run.CanResume() {
		return nil, fmt.Errorf("run %s is %s, only stopped or aborted runs can resume", id, run.State)
	}
	run.State = model.RunRunning
	run.Resumed = true
	run.Error = ""
	if err := c.store.UpdateRun(run); err != nil {
		return nil, fmt.Errorf("updating run: %w", err)
	}
	c.launch(run)
	return run, nil
}

// launch starts the worker goroutine. Caller holds c.mu.
func (c *Controller) launch(run *model.CraftRun) {
	ctx, cancel := context.WithCancel(context.Background())
	c.run = run
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(ctx, run)
}

// Stop requests a cooperative stop and waits for the worker to finish.
// The run lands in the stopped state and can be resumed later.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// Status returns a copy of the current (or most recent) run, if any.
func (c *Controller) Status() (model.CraftRun, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run == nil {
		return model.CraftRun{}, false
	}
	out := *c.run
	out.Progress = make(map[string]int, len(c.run.Progress))
	for k, v := range c.run.Progress {
		out.Progress[k] = v
	}
	return out, true
}

// active reports whether a worker goroutine is live. Caller holds c.mu.
func (c *Controller) active() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Controller) loop(ctx context.Context, run *model.CraftRun) {
	defer close(c.done)

	window, err := tail.OpenWindow(c.cfg.LogPath)
	if err != nil {
		c.finish(run, model.RunAborted, fmt.Sprintf("opening log window: %v", err))
		return
	}

	c.emit(run.ID, "status", string(model.RunRunning))

	if c.cfg.WindowTarget != "" {
		// Best effort: a failed focus is logged, the run continues.
		if err := c.act.Focus(ctx, c.cfg.WindowTarget); err != nil {
			log.Printf("craft %s: focusing window: %v", run.ID, err)
		}
	}

	// Grace period before the first key press, so the operator can focus
	// the game window by hand after starting the run.
	if err := sleepCtx(ctx, c.cfg.StartDelay); err != nil {
		c.finish(run, model.RunStopped, "")
		return
	}

	fails := 0

	for _, job := range run.Jobs {
		for run.Remaining(job) > 0 {
			if ctx.Err() != nil {
				c.finish(run, model.RunStopped, "")
				return
			}

			ok, err := c.attempt(ctx, window, job)
			if err != nil {
				// ctx cancellation surfaces here from the actuator or verify.
				if ctx.Err() != nil {
					c.finish(run, model.RunStopped, "")
					return
				}
				c.finish(run, model.RunAborted, err.Error())
				return
			}

			if ok {
				fails = 0
				c.mu.Lock()
				run.Progress[job.Sequence]++
				run.Verified++
				c.mu.Unlock()
				c.persist(run)
				c.emitProgress(run, job)
			} else {
				fails++
				log.Printf("craft %s: verify failed for %q (%d consecutive)", run.ID, job.Item, fails)
				c.emit(run.ID, "error", fmt.Sprintf("no %q within %s (%d consecutive failures)",
					AcquiredMarker, c.cfg.VerifyTimeout, fails))
				if fails >= c.cfg.MaxConsecutiveFailures {
					c.finish(run, model.RunAborted,
						fmt.Sprintf("%d consecutive verification failures", fails))
					return
				}
				if err := c.emergencyReset(ctx); err != nil {
					c.finish(run, model.RunStopped, "")
					return
				}
			}

			if err := sleepCtx(ctx, c.cfg.SettleDelay); err != nil {
				c.finish(run, model.RunStopped, "")
				return
			}
		}
	}

	c.finish(run, model.RunSucceeded, "")
}

// attempt performs one craft cycle: snapshot the log, open the menu,
// key the sequence, and wait for the acquisition marker.
func (c *Controller) attempt(ctx context.Context, window *tail.Window, job model.CraftJob) (bool, error) {
	if err := window.Snapshot(); err != nil {
		return false, err
	}
	if err := c.act.Press(ctx, c.cfg.MenuKey); err != nil {
		return false, err
	}
	if err := sleepCtx(ctx, c.cfg.MenuDelay); err != nil {
		return false, err
	}
	if err := c.act.Sequence(ctx, splitKeys(job.Sequence), c.cfg.InterKeyDelay); err != nil {
		return false, err
	}
	return window.WaitFor(ctx, AcquiredMarker, c.cfg.VerifyTimeout, c.cfg.VerifyInterval)
}

// emergencyReset backs fully out of whatever menu state the client is
// stuck in. The next attempt reopens the menu from the top.
func (c *Controller) emergencyReset(ctx context.Context) error {
	keys := make([]string, c.cfg.CancelPresses)
	for i := range keys {
		keys[i] = c.cfg.CancelKey
	}
	if err := c.act.Sequence(ctx, keys, c.cfg.InterKeyDelay); err != nil {
		return err
	}
	return sleepCtx(ctx, c.cfg.ResetPause)
}

func (c *Controller) finish(run *model.CraftRun, state model.RunState, errMsg string) {
	c.mu.Lock()
	run.State = state
	run.Error = errMsg
	c.cancel = nil
	c.mu.Unlock()

	c.persist(run)
	if errMsg != "" {
		c.emit(run.ID, "error", errMsg)
	}
	c.emit(run.ID, "done", string(state))
	log.Printf("craft %s: %s (%d/%d verified)", run.ID, state, run.Verified, run.Requested)
}

func (c *Controller) persist(run *model.CraftRun) {
	if err := c.store.UpdateRun(run); err != nil {
		log.Printf("craft %s: persisting run: %v", run.ID, err)
	}
}

func (c *Controller) emitProgress(run *model.CraftRun, job model.CraftJob) {
	data, _ := json.Marshal(map[string]any{
		"item":      job.Item,
		"sequence":  job.Sequence,
		"verified":  run.Verified,
		"requested": run.Requested,
	})
	c.emit(run.ID, "progress", string(data))
}

func (c *Controller) emit(topic, typ, data string) {
	event := &model.Event{
		Topic:     topic,
		Type:      typ,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.AddEvent(event); err != nil {
		log.Printf("craft %s: storing event: %v", topic, err)
	}
	if c.bus != nil {
		c.bus.Publish(event)
	}
}

// splitKeys turns "151" into ["1","5","1"].
func splitKeys(sequence string) []string {
	keys := make([]string, 0, len(sequence))
	for _, r := range sequence {
		keys = append(keys, string(r))
	}
	return keys
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
