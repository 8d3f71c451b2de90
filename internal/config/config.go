package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/chatpeaks/internal/models"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Analysis models.AnalysisConfig `mapstructure:"analysis"`
	Storage  StorageConfig         `mapstructure:"storage"`
	Twitch   TwitchConfig          `mapstructure:"twitch"`
	Telegram TelegramConfig        `mapstructure:"telegram"`
	Server   ServerConfig          `mapstructure:"server"`
	Logging  LoggingConfig         `mapstructure:"logging"`
}

// StorageConfig selects the analysis database
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`    // file path for sqlite, connection string for postgres
}

// TwitchConfig holds chat export and Helix API configuration
type TwitchConfig struct {
	ClientID       string        `mapstructure:"client_id"`
	ClientSecret   string        `mapstructure:"client_secret"`
	ChatDir        string        `mapstructure:"chat_dir"`
	ChatBaseURL    string        `mapstructure:"chat_base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// HelixEnabled reports whether metadata should come from the Helix API.
func (t TwitchConfig) HelixEnabled() bool {
	return t.ClientID != "" && t.ClientSecret != ""
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	TopN           int           `mapstructure:"top_n"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release or test
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override, e.g. CHATPEAKS_TELEGRAM_BOT_TOKEN
	v.SetEnvPrefix("CHATPEAKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Analysis defaults
	a := models.DefaultAnalysisConfig()
	v.SetDefault("analysis.message_threshold", a.MessageThreshold)
	v.SetDefault("analysis.emote_threshold", a.EmoteThreshold)
	v.SetDefault("analysis.peak_window_size", a.PeakWindowSize)
	v.SetDefault("analysis.minimum_peak_distance", a.MinimumPeakDistance)
	v.SetDefault("analysis.sensitivity_mode", string(a.SensitivityMode))
	v.SetDefault("analysis.use_adaptive_thresholds", a.UseAdaptiveThresholds)
	v.SetDefault("analysis.multi_window_analysis", a.MultiWindowAnalysis)
	v.SetDefault("analysis.content_analysis", a.ContentAnalysis)
	v.SetDefault("analysis.window_sizes", a.WindowSizes)
	v.SetDefault("analysis.excitement_keywords", a.ExcitementKeywords)
	v.SetDefault("analysis.disallowed_terms", a.DisallowedTerms)

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "./data/chatpeaks.db")

	// Twitch defaults
	v.SetDefault("twitch.chat_dir", "./data/chats")
	v.SetDefault("twitch.timeout", "30s")
	v.SetDefault("twitch.max_retries", 3)
	v.SetDefault("twitch.retry_delay_base", "1s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.top_n", 5)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "2s")

	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if err := ValidateAnalysis(c.Analysis); err != nil {
		return err
	}

	// Validate Storage config
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("storage.driver must be one of: sqlite, postgres")
	}

	// Validate Twitch config
	if c.Twitch.ChatDir == "" && c.Twitch.ChatBaseURL == "" {
		return fmt.Errorf("twitch.chat_dir or twitch.chat_base_url is required")
	}
	if (c.Twitch.ClientID == "") != (c.Twitch.ClientSecret == "") {
		return fmt.Errorf("twitch.client_id and twitch.client_secret must be set together")
	}
	if c.Twitch.Timeout <= 0 {
		return fmt.Errorf("twitch.timeout must be positive")
	}
	if c.Twitch.MaxRetries < 1 {
		return fmt.Errorf("twitch.max_retries must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.TopN < 1 {
			return fmt.Errorf("telegram.top_n must be at least 1")
		}
	}

	// Validate Server config
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return fmt.Errorf("server.mode must be one of: debug, release, test")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// ValidateAnalysis checks analysis settings against their allowed ranges. Requests
// that carry their own settings are checked with it too.
func ValidateAnalysis(a models.AnalysisConfig) error {
	if a.MessageThreshold < 1 || a.MessageThreshold > 1000 {
		return fmt.Errorf("analysis.message_threshold must be between 1 and 1000")
	}
	if a.EmoteThreshold < 1 || a.EmoteThreshold > 100 {
		return fmt.Errorf("analysis.emote_threshold must be between 1 and 100")
	}
	if a.PeakWindowSize < 10 || a.PeakWindowSize > 300 {
		return fmt.Errorf("analysis.peak_window_size must be between 10 and 300 seconds")
	}
	if a.MinimumPeakDistance < 30 || a.MinimumPeakDistance > 600 {
		return fmt.Errorf("analysis.minimum_peak_distance must be between 30 and 600 seconds")
	}
	if !a.SensitivityMode.Valid() {
		return fmt.Errorf("analysis.sensitivity_mode must be one of: conservative, balanced, aggressive")
	}
	if a.MultiWindowAnalysis && len(a.WindowSizes) == 0 {
		return fmt.Errorf("analysis.window_sizes must not be empty when multi_window_analysis is on")
	}
	for _, w := range a.WindowSizes {
		if w < 10 || w > 300 {
			return fmt.Errorf("analysis.window_sizes entries must be between 10 and 300 seconds, got %d", w)
		}
	}
	return nil
}
