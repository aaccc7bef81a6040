// Package discord delivers notifications through a Discord incoming webhook.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	discordapi "github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"go.uber.org/zap"

	"playlistnotify/internal/chat"
)

const (
	sinkName = "discord"
	// maxUsernameLength is the webhook username limit
	maxUsernameLength = 80
)

// Discord refuses webhook usernames containing these
var forbiddenUsernameParts = []string{"discord", "clyde"}

// Config holds Discord-specific configuration
type Config struct {
	WebhookURL     string
	RequestTimeout time.Duration
	// APIURL overrides the REST base URL, empty means Discord's API
	APIURL string
}

// Sink posts one embed per notification to the webhook
type Sink struct {
	config *Config
	client webhook.Client
	logger *zap.Logger
}

// NewSink parses the webhook URL and prepares the client. No request is made.
func NewSink(config *Config, logger *zap.Logger) (*Sink, error) {
	restOpts := []rest.ConfigOpt{
		rest.WithHTTPClient(&http.Client{Timeout: config.RequestTimeout}),
		// A 429 is a delivery failure like any other
		rest.WithRateLimiterConfigOpts(rest.WithMaxRetries(1)),
	}
	if config.APIURL != "" {
		restOpts = append(restOpts, rest.WithURL(config.APIURL))
	}

	client, err := webhook.NewWithURL(config.WebhookURL,
		webhook.WithLogger(slog.New(slog.DiscardHandler)),
		webhook.WithRestClientConfigOpts(restOpts...))
	if err != nil {
		return nil, fmt.Errorf("invalid discord webhook URL: %w", err)
	}

	return &Sink{
		config: config,
		client: client,
		logger: logger,
	}, nil
}

func (s *Sink) Name() string {
	return sinkName
}

func (s *Sink) Markup() chat.Markup {
	return Markdown{}
}

// Send posts the notification. When Discord rejects the sender identity the
// message is posted once more under the webhook's own name.
func (s *Sink) Send(ctx context.Context, n *chat.Notification) error {
	embed := discordapi.Embed{
		Title:       n.Title,
		Description: n.Description,
	}
	if n.ThumbnailURL != "" {
		embed.Thumbnail = &discordapi.EmbedResource{URL: n.ThumbnailURL}
	}

	message := discordapi.WebhookMessageCreate{
		Username:  sanitizeUsername(n.SenderName),
		AvatarURL: n.SenderAvatarURL,
		Embeds:    []discordapi.Embed{embed},
	}

	_, err := s.client.CreateMessage(message, rest.WithCtx(ctx))
	if err != nil && hasIdentity(message) && isBadRequest(err) {
		s.logger.Warn("Webhook rejected sender identity, posting without it",
			zap.String("username", message.Username),
			zap.Error(err))
		message.Username, message.AvatarURL = "", ""
		_, err = s.client.CreateMessage(message, rest.WithCtx(ctx))
	}
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}

	s.logger.Debug("Webhook delivered")
	return nil
}

// Close releases the client's idle connections.
func (s *Sink) Close(ctx context.Context) {
	s.client.Close(ctx)
}

func hasIdentity(message discordapi.WebhookMessageCreate) bool {
	return message.Username != "" || message.AvatarURL != ""
}

func isBadRequest(err error) bool {
	var apiErr rest.Error
	if errors.As(err, &apiErr) {
		return apiErr.Response != nil && apiErr.Response.StatusCode == http.StatusBadRequest
	}
	return false
}

// sanitizeUsername returns "" for names Discord would refuse, so the webhook's
// default name is used instead.
func sanitizeUsername(name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	for _, part := range forbiddenUsernameParts {
		if strings.Contains(lower, part) {
			return ""
		}
	}
	if lower == "everyone" || lower == "here" {
		return ""
	}

	if utf8.RuneCountInString(name) > maxUsernameLength {
		name = string([]rune(name)[:maxUsernameLength])
	}
	return name
}

// Markdown renders Discord's markdown flavour
type Markdown struct{}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
)

func (Markdown) Escape(s string) string {
	return markdownEscaper.Replace(s)
}

func (m Markdown) Link(text, url string) string {
	return fmt.Sprintf("[%s](%s)", m.Escape(text), url)
}

func (Markdown) Underline(s string) string {
	return "__" + s + "__"
}
