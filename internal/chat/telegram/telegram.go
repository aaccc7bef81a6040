// Package telegram delivers notifications to a Telegram chat using the go-telegram/bot library.
package telegram

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"playlistnotify/internal/chat"
)

const (
	sinkName = "telegram"
	// maxCaptionLength is the Bot API limit for photo captions
	maxCaptionLength = 1024
)

// Config holds Telegram-specific configuration
type Config struct {
	BotToken       string
	ChatID         int64 // Chat ID of the group or channel to post into
	RequestTimeout time.Duration
	// ServerURL overrides the Bot API endpoint, empty means api.telegram.org
	ServerURL string
}

// Sink posts notifications as bot messages
type Sink struct {
	config *Config
	logger *zap.Logger
	bot    *bot.Bot
}

// NewSink creates the bot client. No request is made until the first Send.
func NewSink(config *Config, logger *zap.Logger) (*Sink, error) {
	opts := []bot.Option{
		bot.WithSkipGetMe(),
	}
	if config.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(config.ServerURL))
	}
	if config.RequestTimeout > 0 {
		// The sink never long-polls, so the poll timeout only needs to match
		opts = append(opts, bot.WithHTTPClient(config.RequestTimeout,
			&http.Client{Timeout: config.RequestTimeout}))
	}

	b, err := bot.New(config.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Sink{
		config: config,
		logger: logger,
		bot:    b,
	}, nil
}

func (s *Sink) Name() string {
	return sinkName
}

func (s *Sink) Markup() chat.Markup {
	return HTML{}
}

// Send posts the notification as a photo with caption when there is a thumbnail
// that fits the caption limit, as a plain message otherwise.
func (s *Sink) Send(ctx context.Context, n *chat.Notification) error {
	text := "<b>" + html.EscapeString(n.Title) + "</b>\n" + n.Description

	if n.ThumbnailURL != "" && utf8.RuneCountInString(text) <= maxCaptionLength {
		msg, err := s.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    s.config.ChatID,
			Photo:     &models.InputFileString{Data: n.ThumbnailURL},
			Caption:   text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			return fmt.Errorf("failed to send photo: %w", err)
		}
		s.logger.Debug("Telegram photo sent", zap.Int("messageID", msg.ID))
		return nil
	}

	// Spotify links preview poorly and the playlist link would dominate
	disabled := true
	msg, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    s.config.ChatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disabled,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.logger.Debug("Telegram message sent", zap.Int("messageID", msg.ID))
	return nil
}

// HTML renders the Bot API HTML parse mode
type HTML struct{}

func (HTML) Escape(s string) string {
	return html.EscapeString(s)
}

func (HTML) Link(text, url string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), html.EscapeString(text))
}

func (HTML) Underline(s string) string {
	return "<u>" + s + "</u>"
}
