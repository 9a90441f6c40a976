package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for RecapBot.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Channels   ChannelsConfig   `json:"channels"`
	Store      StoreConfig      `json:"store"`
	Commands   CommandsConfig   `json:"commands"`
	Recording  RecordingConfig  `json:"recording"`
	Summarizer SummarizerConfig `json:"summarizer"`
	Enricher   EnricherConfig   `json:"enricher"`
	Web        WebConfig        `json:"web"`
	Metrics    MetricsConfig    `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel            string `json:"logLevel"`
	LogFile             string `json:"logFile,omitempty"`
	CommandPrefix       string `json:"commandPrefix"`
	MaxConcurrentEvents int    `json:"maxConcurrentEvents"`
}

type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord,omitempty"`
}

type WhatsAppConfig struct {
	Enabled       bool   `json:"enabled"`
	AppSecret     string `json:"appSecret,omitempty"`
	AccessToken   string `json:"accessToken,omitempty"`
	VerifyToken   string `json:"verifyToken,omitempty"`
	PhoneNumberID string `json:"phoneNumberId,omitempty"`
	WebhookPath   string `json:"webhookPath,omitempty"`
}

type TelegramConfig struct {
	Enabled   bool   `json:"enabled"`
	Token     string `json:"token"`
	ParseMode string `json:"parseMode"`
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	GuildID string `json:"guildId,omitempty"` // optional: restrict to specific guild
}

type StoreConfig struct {
	DBPath string `json:"dbPath"`
}

type CommandsConfig struct {
	// ManifestPath points to an optional YAML file with per-deployment
	// command overrides (disabled commands, extra aliases). It is the
	// re-registration source for registry reloads.
	ManifestPath string `json:"manifestPath,omitempty"`
}

type RecordingConfig struct {
	// RecentWindowLimit bounds the synthetic recording window built when
	// stop arrives without a prior start.
	RecentWindowLimit int `json:"recentWindowLimit"`
	// PendingMaxAgeSeconds expires stuck pending recordings: when > 0, a
	// pending record older than this is marked failed by the start guard
	// and a new recording is allowed. 0 disables expiry.
	PendingMaxAgeSeconds int `json:"pendingMaxAgeSeconds,omitempty"`
	MaxParallelLookups   int `json:"maxParallelLookups"`
}

type SummarizerConfig struct {
	Mode    string `json:"mode"` // "api" | "static"
	APIBase string `json:"apiBase,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

type EnricherConfig struct {
	Mode       string `json:"mode"` // "api" | "browser" | "off"
	APIBase    string `json:"apiBase,omitempty"`
	SearchURL  string `json:"searchUrl,omitempty"`  // browser mode: search page URL with %s placeholder
	ProfileDir string `json:"profileDir,omitempty"` // browser mode: Chrome user data dir
	MaxResults int    `json:"maxResults"`
}

type WebConfig struct {
	Enabled       bool   `json:"enabled"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	RewardBaseURL string `json:"rewardBaseUrl,omitempty"` // appended to broadcasts with a fresh reward code
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.recapbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recapbot"
	}
	return filepath.Join(home, ".recapbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Store.DBPath = expandPath(cfg.Store.DBPath)
	cfg.General.LogFile = expandPath(cfg.General.LogFile)
	cfg.Commands.ManifestPath = expandPath(cfg.Commands.ManifestPath)
	cfg.Enricher.ProfileDir = expandPath(cfg.Enricher.ProfileDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Save writes the config as indented JSON.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate checks configuration bounds and cross-field requirements.
func Validate(cfg *Config) error {
	if cfg.General.CommandPrefix == "" {
		return fmt.Errorf("general.commandPrefix must not be empty")
	}
	if cfg.General.MaxConcurrentEvents < 1 || cfg.General.MaxConcurrentEvents > 100 {
		return fmt.Errorf("general.maxConcurrentEvents must be 1-100, got %d", cfg.General.MaxConcurrentEvents)
	}
	if cfg.Recording.RecentWindowLimit < 1 {
		return fmt.Errorf("recording.recentWindowLimit must be >= 1, got %d", cfg.Recording.RecentWindowLimit)
	}
	if cfg.Recording.MaxParallelLookups < 1 {
		return fmt.Errorf("recording.maxParallelLookups must be >= 1, got %d", cfg.Recording.MaxParallelLookups)
	}
	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		return fmt.Errorf("web.port out of range: %d", cfg.Web.Port)
	}
	switch cfg.Summarizer.Mode {
	case "api", "static":
	default:
		return fmt.Errorf("summarizer.mode must be \"api\" or \"static\", got %q", cfg.Summarizer.Mode)
	}
	switch cfg.Enricher.Mode {
	case "api", "browser", "off":
	default:
		return fmt.Errorf("enricher.mode must be \"api\", \"browser\" or \"off\", got %q", cfg.Enricher.Mode)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		if len(groups) >= 3 {
			defaultVal = groups[2]
		}
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// expandPath resolves a leading ~/ against the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
