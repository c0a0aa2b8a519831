package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings. An empty token disables the Telegram transport.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// Enabled reports whether the Telegram transport should run.
func (t TelegramConfig) Enabled() bool {
	return strings.TrimSpace(t.Token) != ""
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// HTTPConfig configures the JSON chat endpoint. An empty listen address disables it.
type HTTPConfig struct {
	Listen                 string   `yaml:"listen" envconfig:"HTTP_LISTEN"`
	CORSOrigins            []string `yaml:"cors_origins" envconfig:"HTTP_CORS_ORIGINS"`
	ReadTimeoutSeconds     int      `yaml:"read_timeout_seconds" envconfig:"HTTP_READ_TIMEOUT_SECONDS"`
	WriteTimeoutSeconds    int      `yaml:"write_timeout_seconds" envconfig:"HTTP_WRITE_TIMEOUT_SECONDS"`
	ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds" envconfig:"HTTP_SHUTDOWN_TIMEOUT_SECONDS"`
}

// Enabled reports whether the HTTP transport should run.
func (h HTTPConfig) Enabled() bool {
	return strings.TrimSpace(h.Listen) != ""
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	File        string `yaml:"file"`
	// MaxSizeMB, MaxBackups and MaxAgeDays control rotation of the log file.
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// RateLimitConfig holds the minimum interval between two messages of one user.
// ExcludeUpdates lists update kinds ("command", "message") that bypass the limit.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// LoadDotEnv loads variables from .env files when present. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Decode reads a YAML file into dst and overlays environment variables.
// dst must be a pointer to a struct carrying yaml and envconfig tags.
// An empty path reads the environment only.
func Decode(path string, dst any) error {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// Load reads the core configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RequireTransport fails unless at least one of the HTTP and Telegram transports is enabled.
func (c *Config) RequireTransport() error {
	if !c.HTTP.Enabled() && !c.Telegram.Enabled() {
		return fmt.Errorf("no transport configured: set http.listen or telegram.token")
	}
	return nil
}

// Normalize performs basic validation of configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.HTTP.ReadTimeoutSeconds < 0 || cfg.HTTP.WriteTimeoutSeconds < 0 || cfg.HTTP.ShutdownTimeoutSeconds < 0 {
		return fmt.Errorf("http timeouts must be >= 0")
	}
	if cfg.HTTP.ReadTimeoutSeconds == 0 {
		cfg.HTTP.ReadTimeoutSeconds = 15
	}
	if cfg.HTTP.WriteTimeoutSeconds == 0 {
		cfg.HTTP.WriteTimeoutSeconds = 60
	}
	if cfg.HTTP.ShutdownTimeoutSeconds == 0 {
		cfg.HTTP.ShutdownTimeoutSeconds = 10
	}
	origins := cfg.HTTP.CORSOrigins[:0]
	for _, o := range cfg.HTTP.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.HTTP.CORSOrigins = origins

	if cfg.Telegram.Enabled() {
		rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
		if rm == "" || rm == "polling" { // accept alias
			rm = RunModeLongpoll
		}
		switch rm {
		case RunModeWebhook:
			if strings.TrimSpace(cfg.Webhook.URL) == "" {
				return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
			}
			if cfg.Webhook.Port <= 0 {
				return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
			}
		case RunModeLongpoll:
			if cfg.Telegram.LongPollTimeoutSeconds < 0 {
				return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
			}
		default:
			return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
		}
		cfg.Telegram.RunMode = rm
	}

	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 10
	}
	if cfg.Logging.MaxBackups < 0 || cfg.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging.max_backups and logging.max_age_days must be >= 0")
	}
	return nil
}
