// Package main provides the playlistnotify CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"playlistnotify/internal/chat"
	"playlistnotify/internal/chat/discord"
	"playlistnotify/internal/chat/telegram"
	"playlistnotify/internal/core"
	httpserver "playlistnotify/internal/http"
	"playlistnotify/internal/i18n"
	"playlistnotify/internal/spotify"
)

const (
	envPrefix         = "PLAYLISTNOTIFY"
	defaultServerHost = "0.0.0.0"
)

// Credentials keep the names the service has always been deployed with
var credentialEnv = map[string]string{
	"spotify-client-id":     "SPOTIFY_CLIENT_ID",
	"spotify-client-secret": "SPOTIFY_CLIENT_SECRET",
	"discord-webhook-url":   "DISCORD_WEBHOOK_URL",
}

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "playlistnotify <playlist-id>",
	Short: "playlistnotify - Spotify playlist change notifications",
	Long: `playlistnotify polls a Spotify playlist and posts a chat notification (Discord webhook,
optionally Telegram) whenever a track is added or removed.

Credentials are read from SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and DISCORD_WEBHOOK_URL.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("generate-env-example") {
			return nil
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runPlaylistNotify,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, console)")
	rootCmd.PersistentFlags().Duration("interval", core.DefaultPollInterval, "Playlist poll interval")
	rootCmd.PersistentFlags().Duration("token-refresh-interval", core.DefaultTokenRefreshInterval,
		"Token refresh interval when the token endpoint reports no expiry")
	rootCmd.PersistentFlags().Duration("request-timeout", core.DefaultRequestTimeout, "Timeout for outgoing HTTP requests")
	rootCmd.PersistentFlags().String("market", core.DefaultMarket, "Spotify market used for playlist listings")
	rootCmd.PersistentFlags().Duration("cache-ttl", core.DefaultCacheTTL, "How long track and user records are cached (0 disables)")
	rootCmd.PersistentFlags().Int("cache-size", core.DefaultCacheSize, "Number of cached track and user records")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	rootCmd.PersistentFlags().String("language", i18n.DefaultLanguage, fmt.Sprintf("Notification language (%s)", supportedLangs))
	rootCmd.PersistentFlags().Bool("sender-identity", false, "Post Discord notifications under the adder's name and avatar")
	rootCmd.PersistentFlags().String("telegram-bot-token", "", "Telegram bot token (enables the Telegram sink)")
	rootCmd.PersistentFlags().Int64("telegram-chat-id", 0, "Telegram chat ID to notify")
	rootCmd.PersistentFlags().String("server-host", defaultServerHost, "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", core.DefaultServerPort, "HTTP server port for health and metrics (0 disables)")
	rootCmd.PersistentFlags().Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		// Don't exit if .env file doesn't exist, just warn
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	bindEnvironment()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func bindEnvironment() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for key, env := range credentialEnv {
		if err := viper.BindEnv(key, env, flagToEnvVar(key)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to bind %s: %v\n", env, err)
		}
	}
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureSpotify(cfg)
	configureDiscord(cfg)
	configureTelegram(cfg)
	configureMonitor(cfg)
	configureServer(cfg)
	configureApp(cfg)

	return cfg
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.Market = viper.GetString("market")
	cfg.Spotify.RequestTimeout = viper.GetDuration("request-timeout")
	cfg.Spotify.CacheTTL = viper.GetDuration("cache-ttl")
	cfg.Spotify.CacheSize = viper.GetInt("cache-size")
}

func configureDiscord(cfg *core.Config) {
	cfg.Discord.WebhookURL = viper.GetString("discord-webhook-url")
	cfg.Discord.RequestTimeout = viper.GetDuration("request-timeout")
}

func configureTelegram(cfg *core.Config) {
	cfg.Telegram.BotToken = viper.GetString("telegram-bot-token")
	cfg.Telegram.ChatID = viper.GetInt64("telegram-chat-id")
	cfg.Telegram.RequestTimeout = viper.GetDuration("request-timeout")
}

func configureMonitor(cfg *core.Config) {
	cfg.Monitor.Interval = viper.GetDuration("interval")
	cfg.Monitor.TokenRefreshInterval = viper.GetDuration("token-refresh-interval")
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureApp(cfg *core.Config) {
	language := viper.GetString("language")
	if normalized, ok := i18n.Normalize(language); ok {
		cfg.App.Language = normalized
	} else {
		fmt.Printf("Warning: Unsupported language %q, using default (%s)\n", language, i18n.DefaultLanguage)
		cfg.App.Language = i18n.DefaultLanguage
	}
	cfg.App.UseSenderIdentity = viper.GetBool("sender-identity")
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runPlaylistNotify(cmd *cobra.Command, args []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}
	defer func() { _ = logger.Sync() }()

	config.Monitor.PlaylistID = args[0]

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting playlistnotify",
		zap.String("playlistID", config.Monitor.PlaylistID),
		zap.Duration("interval", config.Monitor.Interval),
		zap.String("language", config.App.Language),
		zap.Bool("telegram_enabled", config.Telegram.Enabled()))

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	return runServices(ctx, svcs)
}

type services struct {
	monitor    *core.Monitor
	httpServer *httpserver.Server
	sinks      []chat.Sink
}

// sinkCloser is implemented by sinks holding connections
type sinkCloser interface {
	Close(ctx context.Context)
}

func initializeServices(ctx context.Context) (*services, error) {
	sinks, err := createSinks()
	if err != nil {
		return nil, err
	}

	metrics := httpserver.NewMetrics()
	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	formatter := core.NewFormatter(config.Monitor.PlaylistID, i18n.NewLocalizer(config.App.Language),
		config.App.UseSenderIdentity)
	dispatcher := core.NewDispatcher(formatter, sinks, metrics, logger.Named("dispatcher"))
	monitor := core.NewMonitor(config.Monitor, spotifyClient, dispatcher, metrics, logger.Named("monitor"))

	// Without a first token nothing can work; fail the process instead of polling in vain
	if authErr := monitor.Authenticate(ctx); authErr != nil {
		return nil, fmt.Errorf("failed to authenticate with Spotify: %w", authErr)
	}

	svcs := &services{monitor: monitor, sinks: sinks}
	if config.Server.Port > 0 {
		svcs.httpServer = httpserver.NewServer(&config.Server, metrics, monitor, logger.Named("http"))
	}
	return svcs, nil
}

func createSinks() ([]chat.Sink, error) {
	discordSink, err := discord.NewSink(&discord.Config{
		WebhookURL:     config.Discord.WebhookURL,
		RequestTimeout: config.Discord.RequestTimeout,
	}, logger.Named("discord"))
	if err != nil {
		return nil, err
	}
	sinks := []chat.Sink{discordSink}

	if config.Telegram.Enabled() {
		sink, err := telegram.NewSink(&telegram.Config{
			BotToken:       config.Telegram.BotToken,
			ChatID:         config.Telegram.ChatID,
			RequestTimeout: config.Telegram.RequestTimeout,
		}, logger.Named("telegram"))
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
		logger.Info("Telegram sink enabled", zap.Int64("chat_id", config.Telegram.ChatID))
	} else if config.Telegram.BotToken != "" || config.Telegram.ChatID != 0 {
		logger.Warn("Telegram sink needs both a bot token and a chat ID, skipping")
	}

	return sinks, nil
}

func runServices(ctx context.Context, svcs *services) error {
	defer closeSinks(svcs.sinks)

	g, gCtx := errgroup.WithContext(ctx)

	if svcs.httpServer != nil {
		g.Go(func() error {
			return svcs.httpServer.Start(gCtx)
		})
	}

	g.Go(func() error {
		return svcs.monitor.Run(gCtx)
	})

	logger.Info("playlistnotify started successfully",
		zap.Bool("http_enabled", svcs.httpServer != nil))

	if err := g.Wait(); err != nil {
		logger.Error("playlistnotify stopped with error", zap.Error(err))
		return err
	}

	logger.Info("playlistnotify stopped gracefully")
	return nil
}

func closeSinks(sinks []chat.Sink) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, sink := range sinks {
		if closer, ok := sink.(sinkCloser); ok {
			closer.Close(ctx)
		}
	}
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# playlistnotify Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# Usage: playlistnotify <playlist-id>\n")
	content.WriteString("#\n\n")

	content.WriteString("# Required credentials\n")
	for _, key := range []string{"spotify-client-id", "spotify-client-secret", "discord-webhook-url"} {
		content.WriteString(credentialEnv[key] + "=\n")
	}
	content.WriteString("\n")

	content.WriteString("# Optional settings, shown with their defaults\n")
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "generate-env-example" {
			return
		}
		fmt.Fprintf(&content, "# %s\n%s=%s\n", f.Usage, flagToEnvVar(f.Name), f.DefValue)
	})

	return content.String()
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
