package transport

import (
	"context"
	"fmt"

	"push-service/internal/telegram"
)

type TelegramDriver struct {
	client *telegram.Client
}

func NewTelegramDriver(client *telegram.Client) *TelegramDriver {
	return &TelegramDriver{client: client}
}

// FormatText renders the outbound chat text. The title travels in square
// brackets on its own paragraph and is omitted entirely when empty.
func FormatText(title, body string) string {
	if title == "" {
		return body
	}
	return fmt.Sprintf("[%s]\n\n%s", title, body)
}

func (d *TelegramDriver) Push(ctx context.Context, chat, title, body string) error {
	return d.client.SendMessage(ctx, &telegram.SendMessageRequest{
		ChatID: chat,
		Text:   FormatText(title, body),
	})
}
