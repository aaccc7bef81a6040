package core

import (
	"fmt"
	"strings"
	"time"

	"playlistnotify/internal/i18n"
)

const (
	// DefaultPollInterval is how often the playlist is fetched
	DefaultPollInterval = 60 * time.Second
	// DefaultTokenRefreshInterval is used when the token endpoint reports no expiry.
	// Spotify app tokens live for an hour.
	DefaultTokenRefreshInterval = 30 * time.Minute
	// DefaultRequestTimeout bounds every outgoing HTTP request
	DefaultRequestTimeout = 15 * time.Second
	// DefaultCacheTTL is how long resolved track/user records are reused
	DefaultCacheTTL = 10 * time.Minute
	// DefaultCacheSize is the number of records kept per cache
	DefaultCacheSize = 512
	// DefaultMarket is the market used for playlist listings
	DefaultMarket = "JP"
	// DefaultServerPort of 0 disables the health/metrics server
	DefaultServerPort = 0
)

type Config struct {
	Spotify  SpotifyConfig
	Discord  DiscordConfig
	Telegram TelegramConfig
	Monitor  MonitorConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type SpotifyConfig struct {
	ClientID       string
	ClientSecret   string
	Market         string
	RequestTimeout time.Duration
	CacheTTL       time.Duration
	CacheSize      int
	// Overridable endpoints, empty means the public Spotify endpoints
	TokenURL   string
	APIBaseURL string
}

type DiscordConfig struct {
	WebhookURL     string
	RequestTimeout time.Duration
}

type TelegramConfig struct {
	BotToken       string
	ChatID         int64
	RequestTimeout time.Duration
}

// Enabled reports whether the Telegram sink should be created.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

type MonitorConfig struct {
	PlaylistID           string
	Interval             time.Duration
	TokenRefreshInterval time.Duration
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language          string
	UseSenderIdentity bool
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			Market:         DefaultMarket,
			RequestTimeout: DefaultRequestTimeout,
			CacheTTL:       DefaultCacheTTL,
			CacheSize:      DefaultCacheSize,
		},
		Discord: DiscordConfig{
			RequestTimeout: DefaultRequestTimeout,
		},
		Telegram: TelegramConfig{
			RequestTimeout: DefaultRequestTimeout,
		},
		Monitor: MonitorConfig{
			Interval:             DefaultPollInterval,
			TokenRefreshInterval: DefaultTokenRefreshInterval,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language: i18n.DefaultLanguage,
		},
	}
}

// ConfigError lists every missing or invalid setting.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	var problems []string

	if c.Spotify.ClientID == "" {
		problems = append(problems, "spotify client ID is required (SPOTIFY_CLIENT_ID)")
	}
	if c.Spotify.ClientSecret == "" {
		problems = append(problems, "spotify client secret is required (SPOTIFY_CLIENT_SECRET)")
	}
	if c.Discord.WebhookURL == "" {
		problems = append(problems, "discord webhook URL is required (DISCORD_WEBHOOK_URL)")
	}
	// http.Client treats zero as no timeout
	if c.Spotify.RequestTimeout <= 0 {
		problems = append(problems,
			fmt.Sprintf("spotify request timeout must be positive, got %s", c.Spotify.RequestTimeout))
	}
	if c.Discord.RequestTimeout <= 0 {
		problems = append(problems,
			fmt.Sprintf("discord request timeout must be positive, got %s", c.Discord.RequestTimeout))
	}
	if c.Telegram.Enabled() && c.Telegram.RequestTimeout <= 0 {
		problems = append(problems,
			fmt.Sprintf("telegram request timeout must be positive, got %s", c.Telegram.RequestTimeout))
	}
	if c.Monitor.PlaylistID == "" {
		problems = append(problems, "playlist ID is required")
	}
	if c.Monitor.Interval <= 0 {
		problems = append(problems, fmt.Sprintf("poll interval must be positive, got %s", c.Monitor.Interval))
	}
	if c.Monitor.TokenRefreshInterval <= 0 {
		problems = append(problems,
			fmt.Sprintf("token refresh interval must be positive, got %s", c.Monitor.TokenRefreshInterval))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server port out of range: %d", c.Server.Port))
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}
