// Package telegram mirrors keyword matches to a Telegram chat.
//
// Send-only: no long polling, no command handling.
package telegram

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hocy1609/spybot/model"
)

// Channel sends matches to a single Telegram chat.
type Channel struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New creates a Telegram channel sink.
func New(token string, chatID int64) (*Channel, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating Telegram bot: %w", err)
	}
	log.Printf("Telegram channel authorized as @%s", api.Self.UserName)
	return &Channel{api: api, chatID: chatID}, nil
}

// Name implements notify.Channel.
func (c *Channel) Name() string { return "telegram" }

// Notify implements notify.Channel.
func (c *Channel) Notify(_ context.Context, m model.Match) error {
	text := fmt.Sprintf("*%s* found in log!\n```\n%s\n```", m.Keyword, m.Line)
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("sending to Telegram chat %d: %w", c.chatID, err)
	}
	return nil
}
