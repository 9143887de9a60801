// Package webhook delivers matched log lines to Discord-compatible webhook
// endpoints as fire-and-forget HTTP POSTs. Failures on one endpoint never
// block or cancel delivery to the others.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hocy1609/spybot/model"
)

const (
	// requestTimeout bounds each endpoint POST.
	requestTimeout = 5 * time.Second

	// bodySnippetLimit caps the response body included in error reports.
	bodySnippetLimit = 500

	// userAgent is a browser user agent; some webhook providers reject the
	// Go default with 403.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	defaultUsername = "Spy Bot"
)

// payload is the webhook request body.
type payload struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// Dispatcher posts matches to a set of endpoint URLs.
type Dispatcher struct {
	client   *http.Client
	username string
	onError  func(error)

	mu        sync.RWMutex
	endpoints []string
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClient overrides the HTTP client (tests inject short timeouts).
func WithClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithUsername overrides the webhook display name.
func WithUsername(name string) Option {
	return func(d *Dispatcher) { d.username = name }
}

// New creates a Dispatcher. onError receives one report per failed
// endpoint delivery; it may be nil.
func New(endpoints []string, onError func(error), opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:   &http.Client{Timeout: requestTimeout},
		username: defaultUsername,
		onError:  onError,
	}
	d.SetEndpoints(endpoints)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetEndpoints replaces the endpoint list at runtime.
func (d *Dispatcher) SetEndpoints(endpoints []string) {
	cleaned := make([]string, 0, len(endpoints))
	for _, u := range endpoints {
		if u != "" {
			cleaned = append(cleaned, u)
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endpoints = cleaned
}

// Name implements notify.Channel.
func (d *Dispatcher) Name() string { return "webhook" }

// Notify implements notify.Channel. Per-endpoint failures go to the error
// callback; the call itself never fails.
func (d *Dispatcher) Notify(ctx context.Context, m model.Match) error {
	d.Dispatch(ctx, m)
	return nil
}

// Dispatch sends the match to every configured endpoint concurrently and
// waits for all deliveries to finish or fail.
func (d *Dispatcher) Dispatch(ctx context.Context, m model.Match) {
	d.mu.RLock()
	endpoints := d.endpoints
	d.mu.RUnlock()
	if len(endpoints) == 0 {
		return
	}

	body, err := json.Marshal(payload{
		Username: d.username,
		Content:  formatContent(m),
	})
	if err != nil {
		d.report(fmt.Errorf("encoding webhook payload: %w", err))
		return
	}

	var wg sync.WaitGroup
	for _, url := range endpoints {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			if err := d.post(ctx, url, body); err != nil {
				d.report(err)
			}
		}(url)
	}
	wg.Wait()
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, bodySnippetLimit+1))
		return fmt.Errorf("webhook %s returned %s | body: %s",
			url, resp.Status, model.Truncate(string(snippet), bodySnippetLimit))
	}
	return nil
}

func (d *Dispatcher) report(err error) {
	if d.onError != nil {
		d.onError(err)
	}
}

// formatContent wraps the line with the matched keyword as a bold header
// and the raw line in a code fence.
func formatContent(m model.Match) string {
	header := "Found in log!\n"
	if m.Keyword != "" {
		header = fmt.Sprintf("**%s** found in log!\n", m.Keyword)
	}
	return header + "```\n" + m.Line + "\n```"
}
