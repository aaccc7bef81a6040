// Package chat provides a unified interface for notification sinks (Discord, Telegram, etc.)
package chat

import (
	"context"
)

// Notification is the rendered message for one playlist change
type Notification struct {
	Title       string
	Description string // already rendered in the sink's Markup
	// Optional fields, empty when absent
	ThumbnailURL    string
	SenderName      string
	SenderAvatarURL string
}

// Markup renders rich text for a specific chat platform
type Markup interface {
	// Link renders plain text as a hyperlink to url, escaping the text
	Link(text, url string) string
	// Underline emphasises already rendered markup
	Underline(s string) string
	// Escape makes plain text safe to embed
	Escape(s string) string
}

// Sink defines the unified interface for all notification destinations
type Sink interface {
	// Name identifies the sink in logs and metrics
	Name() string

	// Markup returns the rich-text dialect the sink understands
	Markup() Markup

	// Send delivers one notification. Delivery is fire-and-forget: no retries.
	Send(ctx context.Context, n *Notification) error
}
