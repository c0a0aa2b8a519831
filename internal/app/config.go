package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/minerva/core/config"
	coredatabase "github.com/m3rciful/minerva/core/database"
	"github.com/m3rciful/minerva/internal/delivery"
	"github.com/m3rciful/minerva/internal/dialogue"
	"github.com/m3rciful/minerva/internal/intent"
)

// SessionConfig controls conversation expiry.
type SessionConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"SESSION_TIMEOUT_SECONDS"`
	// SweepAfterSeconds drops sessions idle for longer than this; it must exceed the timeout.
	SweepAfterSeconds int `yaml:"sweep_after_seconds" envconfig:"SESSION_SWEEP_AFTER_SECONDS"`
}

// IntentConfig tunes the keyword matcher.
type IntentConfig struct {
	StrongThreshold   float64 `yaml:"strong_threshold" envconfig:"INTENT_STRONG_THRESHOLD"`
	ModerateThreshold float64 `yaml:"moderate_threshold" envconfig:"INTENT_MODERATE_THRESHOLD"`
	ResetKeyword      string  `yaml:"reset_keyword" envconfig:"INTENT_RESET_KEYWORD"`
}

// CatalogConfig points at an alternative catalog file. Empty uses the embedded catalog.
type CatalogConfig struct {
	Path string `yaml:"path" envconfig:"CATALOG_PATH"`
}

// DeliveryConfig controls the PDF proxy.
type DeliveryConfig struct {
	CacheTTLSeconds int   `yaml:"cache_ttl_seconds" envconfig:"DELIVERY_CACHE_TTL_SECONDS"`
	MaxBytes        int64 `yaml:"max_bytes" envconfig:"DELIVERY_MAX_BYTES"`
}

// Config is the application configuration: the reusable core sections plus the bot's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Session  SessionConfig       `yaml:"session"`
	Intent   IntentConfig        `yaml:"intent"`
	Catalog  CatalogConfig       `yaml:"catalog"`
	Delivery DeliveryConfig      `yaml:"delivery"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads path (optional) and the environment, then normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	if c.Session.TimeoutSeconds < 0 || c.Session.SweepAfterSeconds < 0 {
		return fmt.Errorf("session timeouts must be >= 0")
	}
	if c.Session.TimeoutSeconds == 0 {
		c.Session.TimeoutSeconds = int(dialogue.DefaultTimeout / time.Second)
	}
	if c.Session.SweepAfterSeconds == 0 {
		c.Session.SweepAfterSeconds = max(3600, 2*c.Session.TimeoutSeconds)
	}
	if c.Session.SweepAfterSeconds <= c.Session.TimeoutSeconds {
		return fmt.Errorf("session.sweep_after_seconds (%d) must exceed session.timeout_seconds (%d)",
			c.Session.SweepAfterSeconds, c.Session.TimeoutSeconds)
	}

	def := intent.DefaultThresholds()
	if c.Intent.StrongThreshold == 0 {
		c.Intent.StrongThreshold = def.Strong
	}
	if c.Intent.ModerateThreshold == 0 {
		c.Intent.ModerateThreshold = def.Moderate
	}
	for name, v := range map[string]float64{
		"intent.strong_threshold":   c.Intent.StrongThreshold,
		"intent.moderate_threshold": c.Intent.ModerateThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, v)
		}
	}
	if c.Intent.ModerateThreshold > c.Intent.StrongThreshold {
		return fmt.Errorf("intent.moderate_threshold must not exceed intent.strong_threshold")
	}
	c.Intent.ResetKeyword = intent.Normalize(c.Intent.ResetKeyword)
	if c.Intent.ResetKeyword == "" {
		c.Intent.ResetKeyword = dialogue.DefaultResetKeyword
	}

	c.Catalog.Path = strings.TrimSpace(c.Catalog.Path)

	if c.Delivery.CacheTTLSeconds < 0 || c.Delivery.MaxBytes < 0 {
		return fmt.Errorf("delivery limits must be >= 0")
	}
	if c.Delivery.CacheTTLSeconds == 0 {
		c.Delivery.CacheTTLSeconds = int(delivery.DefaultCacheTTL / time.Second)
	}
	if c.Delivery.MaxBytes == 0 {
		c.Delivery.MaxBytes = delivery.DefaultMaxBytes
	}
	return nil
}

// Timeout returns the session idle timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Session.TimeoutSeconds) * time.Second
}

// SweepAfter returns the idle period after which sessions are dropped from memory.
func (c *Config) SweepAfter() time.Duration {
	return time.Duration(c.Session.SweepAfterSeconds) * time.Second
}

// Thresholds returns the matcher thresholds.
func (c *Config) Thresholds() intent.Thresholds {
	return intent.Thresholds{Strong: c.Intent.StrongThreshold, Moderate: c.Intent.ModerateThreshold}
}
