// Package notify defines the outbound notification channel interface.
// Channels are best-effort sinks for keyword matches; a slow or failing
// channel must never block the log reader.
package notify

import (
	"context"

	"github.com/hocy1609/spybot/model"
)

// Channel delivers a keyword match to an external destination.
type Channel interface {
	// Name identifies the channel in logs ("webhook", "slack", "telegram").
	Name() string

	// Notify delivers a single match. Implementations should apply their
	// own short timeouts; errors are reported, not retried.
	Notify(ctx context.Context, m model.Match) error
}
