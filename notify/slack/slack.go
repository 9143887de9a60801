// Package slack mirrors keyword matches into a Slack channel.
//
// This is an optional extra sink next to the webhook dispatcher; it uses a
// plain bot token, no Socket Mode, since spybot only sends.
package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/hocy1609/spybot/model"
)

// Channel posts matches to a single Slack channel.
type Channel struct {
	api       *slack.Client
	channelID string
}

// New creates a Slack channel sink.
func New(botToken, channelID string) *Channel {
	return &Channel{
		api:       slack.New(botToken),
		channelID: channelID,
	}
}

// Name implements notify.Channel.
func (c *Channel) Name() string { return "slack" }

// Notify implements notify.Channel.
func (c *Channel) Notify(ctx context.Context, m model.Match) error {
	text := fmt.Sprintf("*%s* found in log!\n```%s```", m.Keyword, m.Line)
	_, _, err := c.api.PostMessageContext(ctx, c.channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("posting to slack channel %s: %w", c.channelID, err)
	}
	return nil
}
