// Package actuator delivers key presses to the game client by shelling
// out to an external input tool (xdotool on X11 by default).
package actuator

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const commandTimeout = 5 * time.Second

// Runner executes an external command. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// OSRunner runs commands on the host.
type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Actuator sends key events to the target window.
type Actuator interface {
	// Press sends a single key, e.g. "F12", "Escape", "1".
	Press(ctx context.Context, key string) error
	// Sequence sends keys in order with a fixed delay between them.
	Sequence(ctx context.Context, keys []string, delay time.Duration) error
	// Focus raises the window whose title contains target.
	Focus(ctx context.Context, target string) error
}

// KeyTool drives an xdotool-style binary: `<tool> key <keysym>`.
type KeyTool struct {
	tool   string
	runner Runner
}

// NewKeyTool creates an actuator around the named input binary.
func NewKeyTool(tool string) *KeyTool {
	if strings.TrimSpace(tool) == "" {
		tool = "xdotool"
	}
	return &KeyTool{tool: tool, runner: OSRunner{}}
}

// NewKeyToolWithRunner substitutes the command runner, for tests.
func NewKeyToolWithRunner(tool string, runner Runner) *KeyTool {
	k := NewKeyTool(tool)
	k.runner = runner
	return k
}

func (k *KeyTool) Press(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty key")
	}
	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := k.runner.Run(runCtx, k.tool, "key", key)
	if err != nil {
		return fmt.Errorf("pressing %q: %w (%s)", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (k *KeyTool) Sequence(ctx context.Context, keys []string, delay time.Duration) error {
	for i, key := range keys {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := k.Press(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (k *KeyTool) Focus(ctx context.Context, target string) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("empty focus target")
	}
	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := k.runner.Run(runCtx, k.tool, "search", "--name", target, "windowactivate")
	if err != nil {
		return fmt.Errorf("focusing %q: %w (%s)", target, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// LogOnly records presses instead of delivering them. Used when no
// input tool is configured, so the rest of the pipeline stays testable
// on headless hosts.
type LogOnly struct {
	mu      sync.Mutex
	pressed []string
}

func (l *LogOnly) Press(_ context.Context, key string) error {
	l.mu.Lock()
	l.pressed = append(l.pressed, key)
	l.mu.Unlock()
	log.Printf("actuator (dry-run): key %s", key)
	return nil
}

func (l *LogOnly) Sequence(ctx context.Context, keys []string, delay time.Duration) error {
	for i, key := range keys {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := l.Press(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (l *LogOnly) Focus(_ context.Context, target string) error {
	log.Printf("actuator (dry-run): focus %s", target)
	return nil
}

// Pressed returns a copy of every key delivered so far.
func (l *LogOnly) Pressed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.pressed))
	copy(out, l.pressed)
	return out
}
