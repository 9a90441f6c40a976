package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recapbot/internal/bus"
	"recapbot/internal/channel"
	"recapbot/internal/command"
	"recapbot/internal/commands"
	"recapbot/internal/config"
	"recapbot/internal/dispatch"
	"recapbot/internal/domain"
	"recapbot/internal/enrich"
	"recapbot/internal/recording"
	"recapbot/internal/store"
	"recapbot/internal/summarize"
	"recapbot/internal/web"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "recapbot",
		Short: "recapbot: group chat recording and summary bot",
		Long:  "recapbot records group chat conversations on demand and replies with a summary and an enriched shopping list.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.recapbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config directory and defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				logger.Info("config already exists", "path", cfgPath)
				return nil
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("recapbot " + version)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and store status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				return nil
			}
			logger.Info("config", "path", cfgPath, "loaded", true)

			st, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
			if err != nil {
				logger.Warn("store unavailable", "path", cfg.Store.DBPath, "err", err)
				return nil
			}
			defer st.Close()

			chats, err := st.KnownChats(context.Background())
			if err != nil {
				return err
			}
			logger.Info("store", "path", cfg.Store.DBPath, "groups", len(chats))
			for _, c := range chats {
				logger.Info("group", "name", c.ChatName, "id", c.ChatID, "messages", c.MessageCount)
			}
			return nil
		},
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the bot (channels + dispatcher + web)",
		Long:  "Starts all enabled channels, the command dispatcher, and the web surface. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = buildLogger(cfg.General)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := bus.New(100, logger)

	st, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	summarizer := buildSummarizer(cfg.Summarizer)
	enricher := buildEnricher(cfg.Enricher)

	recorder := recording.NewRecorder(recording.RecorderConfig{
		Store:             st,
		Summarizer:        summarizer,
		Enricher:          enricher,
		RecentWindowLimit: cfg.Recording.RecentWindowLimit,
		ParallelLookups:   cfg.Recording.MaxParallelLookups,
		PendingMaxAge:     time.Duration(cfg.Recording.PendingMaxAgeSeconds) * time.Second,
		Logger:            logger,
	})

	registry := command.NewRegistry(logger)
	builtins := commands.New(commands.Deps{
		Store:    st,
		Registry: registry,
		Prefix:   cfg.General.CommandPrefix,
		Logger:   logger,
	})
	registry.SetSource(func() []domain.Command {
		cmds := append(builtins.All(), recorder.StartCommand(), recorder.StopCommand())
		manifest, err := command.LoadManifest(cfg.Commands.ManifestPath, logger)
		if err != nil {
			logger.Warn("command manifest unreadable, using built-ins as-is", "err", err)
			return cmds
		}
		return manifest.Apply(cmds)
	})
	registry.Reload()

	dispatcher := dispatch.New(dispatch.Config{
		Registry:    registry,
		Store:       st,
		Bus:         eventBus,
		Prefix:      cfg.General.CommandPrefix,
		Concurrency: cfg.General.MaxConcurrentEvents,
		Logger:      logger,
	})
	go dispatcher.Run(ctx)

	channels, mounts, joiner, broadcaster := startChannels(ctx, cfg, eventBus)

	var webSrv *web.Server
	if cfg.Web.Enabled {
		webSrv = web.NewServer(web.ServerConfig{
			Config:         cfg.Web,
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsPath:    cfg.Metrics.Endpoint,
			Joiner:         joiner,
			Broadcaster:    broadcaster,
			Mounts:         mounts,
			Logger:         logger,
		})
		go func() {
			if err := webSrv.Start(ctx); err != nil {
				logger.Error("web server error", "err", err)
			}
		}()
	}

	logger.Info("gateway started", "channels", len(channels), "prefix", cfg.General.CommandPrefix)

	<-ctx.Done()
	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ch := range channels {
			ch.Stop()
		}
		eventBus.Close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

// startChannels starts every enabled platform adapter and returns the
// running channels, webhook mounts for the web server, the first adapter
// able to join groups, and the broadcast target.
func startChannels(ctx context.Context, cfg *config.Config, eventBus domain.EventBus) ([]domain.Channel, map[string]http.Handler, domain.GroupJoiner, domain.Channel) {
	var channels []domain.Channel
	mounts := map[string]http.Handler{}
	var joiner domain.GroupJoiner
	var broadcaster domain.Channel

	if cfg.Channels.WhatsApp.Enabled {
		wa := channel.NewWhatsApp(channel.WhatsAppChannelConfig{
			Config: cfg.Channels.WhatsApp,
			Logger: logger,
		})
		// WhatsApp registers handlers synchronously; the webhook is served
		// by the web server's mux.
		if err := wa.Start(ctx, eventBus); err != nil {
			logger.Error("whatsapp channel error", "err", err)
		} else {
			webhookPath := cfg.Channels.WhatsApp.WebhookPath
			if webhookPath == "" {
				webhookPath = "/webhook/whatsapp"
			}
			mounts[webhookPath] = wa.Handler()
			channels = append(channels, wa)
			joiner = wa
			broadcaster = wa
		}
	}

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		tg := channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			ParseMode: cfg.Channels.Telegram.ParseMode,
			Logger:    logger,
		})
		go func() {
			if err := tg.Start(ctx, eventBus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		channels = append(channels, tg)
		if broadcaster == nil {
			broadcaster = tg
		}
	}

	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		dc := channel.NewDiscord(channel.DiscordConfig{
			Token:   cfg.Channels.Discord.Token,
			GuildID: cfg.Channels.Discord.GuildID,
			Logger:  logger,
		})
		go func() {
			if err := dc.Start(ctx, eventBus); err != nil {
				logger.Error("discord channel error", "err", err)
			}
		}()
		channels = append(channels, dc)
		if broadcaster == nil {
			broadcaster = dc
		}
	}

	if len(channels) == 0 {
		logger.Warn("no channels enabled; only the web surface is active")
	}
	return channels, mounts, joiner, broadcaster
}

func buildSummarizer(cfg config.SummarizerConfig) domain.Summarizer {
	switch cfg.Mode {
	case "api":
		return summarize.NewOpenAI(summarize.OpenAIConfig{
			APIKey:  cfg.APIKey,
			APIBase: cfg.APIBase,
			Model:   cfg.Model,
			Logger:  logger,
		})
	default:
		return summarize.NewStatic()
	}
}

func buildEnricher(cfg config.EnricherConfig) domain.Enricher {
	switch cfg.Mode {
	case "api":
		return enrich.NewAPI(enrich.APIConfig{
			APIBase:    cfg.APIBase,
			MaxResults: cfg.MaxResults,
			Logger:     logger,
		})
	case "browser":
		return enrich.NewBrowser(enrich.BrowserConfig{
			SearchURL:  cfg.SearchURL,
			ProfileDir: cfg.ProfileDir,
			MaxResults: cfg.MaxResults,
			Logger:     logger,
		})
	default:
		return enrich.NewDisabled()
	}
}

func buildLogger(cfg config.GeneralConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			out = f
		} else {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.LogFile, "err", err)
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
