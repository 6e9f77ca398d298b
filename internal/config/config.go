package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"neurobot/internal/domain"
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Sources  []SourceConfig `yaml:"sources"`
	Run      RunConfig      `yaml:"run"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`
	LogLevel string         `yaml:"log_level"`
}

type TelegramConfig struct {
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
	TopicID string `yaml:"topic_id"`
}

// SourceConfig describes one configured source. Read-only to the pipeline.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"` // "website" or "api"
	URL      string            `yaml:"url"`
	Params   map[string]string `yaml:"params"`
	Category domain.Category   `yaml:"category"`
	MaxPages int               `yaml:"max_pages"`
}

type RunConfig struct {
	IntervalMinutes     int `yaml:"run_interval_minutes"`
	MessageDelaySeconds int `yaml:"message_delay_seconds"`
	LogRetentionDays    int `yaml:"log_retention_days"`
}

func (r RunConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

func (r RunConfig) MessageDelay() time.Duration {
	return time.Duration(r.MessageDelaySeconds) * time.Second
}

type StorageConfig struct {
	LedgerPath       string `yaml:"ledger_path"`
	StatusPath       string `yaml:"status_path"`
	URLRetentionDays int    `yaml:"url_retention_days"`
	MaxStoredURLs    int    `yaml:"max_stored_urls"`
}

type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings without which no run may start.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" || IsPlaceholder(c.Telegram.Token) {
		return fmt.Errorf("telegram token is missing or a placeholder")
	}
	if c.Telegram.ChatID == "" || IsPlaceholder(c.Telegram.ChatID) {
		return fmt.Errorf("telegram chat_id is missing or a placeholder")
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if src.Type != "website" && src.Type != "api" {
			return fmt.Errorf("source %q: unknown type %q", src.Name, src.Type)
		}
		if src.URL == "" {
			return fmt.Errorf("source %q: url is required", src.Name)
		}
	}
	return nil
}

// IsPlaceholder reports whether a credential value was left at its
// template default and must not be sent anywhere.
func IsPlaceholder(v string) bool {
	return strings.HasPrefix(v, "YOUR_") || v == "PLACEHOLDER"
}

func (c *Config) setDefaults() {
	if c.Run.IntervalMinutes == 0 {
		c.Run.IntervalMinutes = 30
	}
	if c.Run.MessageDelaySeconds == 0 {
		c.Run.MessageDelaySeconds = 3
	}
	if c.Run.LogRetentionDays == 0 {
		c.Run.LogRetentionDays = 30
	}
	if c.Storage.LedgerPath == "" {
		c.Storage.LedgerPath = "posted_urls.txt"
	}
	if c.Storage.StatusPath == "" {
		c.Storage.StatusPath = "status.json"
	}
	if c.Storage.URLRetentionDays == 0 {
		c.Storage.URLRetentionDays = 90
	}
	if c.Storage.MaxStoredURLs == 0 {
		c.Storage.MaxStoredURLs = 5000
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 10 * time.Second
	}
	if c.HTTP.Retry.MaxAttempts == 0 {
		c.HTTP.Retry.MaxAttempts = 3
	}
	if c.HTTP.Retry.InitialBackoff == 0 {
		c.HTTP.Retry.InitialBackoff = 1 * time.Second
	}
	if c.HTTP.Retry.MaxBackoff == 0 {
		c.HTTP.Retry.MaxBackoff = 30 * time.Second
	}
	for i := range c.Sources {
		if c.Sources[i].MaxPages == 0 {
			c.Sources[i].MaxPages = 3
		}
		if c.Sources[i].Category == "" {
			c.Sources[i].Category = domain.CategoryNews
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
