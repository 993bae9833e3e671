package notify

import (
	"context"
	"fmt"
)

// DiscordSender delivers notifications via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	label      string
	poster     *jsonPoster
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		poster:     newJSONPoster(),
	}
}

// WithLabel tags every message with a label, typically the product pair, so
// several bots can share one channel.
func (d *DiscordSender) WithLabel(label string) *DiscordSender {
	d.label = label
	return d
}

// Send posts a message to the Discord webhook. The title is rendered in bold
// using Discord markdown syntax. Discord returns 204 No Content on success.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	payload := map[string]any{
		"content": fmt.Sprintf("**%s**\n%s", labeled(d.label, title), message),
	}

	if err := d.poster.post(ctx, d.webhookURL, payload); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
