package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:            "info",
			CommandPrefix:       "!",
			MaxConcurrentEvents: 5,
		},
		Channels: ChannelsConfig{
			WhatsApp: WhatsAppConfig{
				Enabled:     false,
				WebhookPath: "/webhook/whatsapp",
			},
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
			Discord: DiscordConfig{
				Enabled: false,
			},
		},
		Store: StoreConfig{
			DBPath: "~/.recapbot/recapbot.db",
		},
		Commands: CommandsConfig{},
		Recording: RecordingConfig{
			RecentWindowLimit:  100,
			MaxParallelLookups: 4,
		},
		Summarizer: SummarizerConfig{
			Mode:    "static",
			APIBase: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Enricher: EnricherConfig{
			Mode:       "off",
			MaxResults: 3,
		},
		Web: WebConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    3001,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}
