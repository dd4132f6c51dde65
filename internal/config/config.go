package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	ProviderAlphaVantage = "alphavantage"
	ProviderYahoo        = "yahoo"

	// DefaultPath is used when CONFIG_PATH is unset.
	DefaultPath = "configs/config.yaml"
)

// Config holds all application configuration.
type Config struct {
	Upstream struct {
		Provider string `yaml:"provider"`
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"upstream"`
	Symbols []string `yaml:"symbols"`
	Cache   struct {
		HistoryDays int           `yaml:"history_days"`
		FreshTTL    time.Duration `yaml:"fresh_ttl"`
		PaceDelay   time.Duration `yaml:"pace_delay"`
		MinRows     int           `yaml:"min_rows"`
	} `yaml:"cache"`
	Schedule struct {
		PrefetchCron string `yaml:"prefetch_cron"`
		ReportCron   string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// Path returns the config file location from CONFIG_PATH.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// A missing .env is fine; real environment variables take precedence.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("UPSTREAM_PROVIDER"); v != "" {
		c.Upstream.Provider = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("CRON_PREFETCH"); v != "" {
		c.Schedule.PrefetchCron = v
	}
	if v := os.Getenv("FRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FRESH_TTL: %w", err)
		}
		c.Cache.FreshTTL = d
	}
	if v := os.Getenv("PACE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PACE_DELAY: %w", err)
		}
		c.Cache.PaceDelay = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Upstream.Provider = strings.ToLower(strings.TrimSpace(c.Upstream.Provider))
	if c.Upstream.Provider == "" {
		c.Upstream.Provider = ProviderAlphaVantage
	}

	symbols := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	c.Symbols = symbols
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"AAPL", "MSFT", "IBM"}
	}

	if c.Cache.HistoryDays == 0 {
		c.Cache.HistoryDays = 60
	}
	if c.Cache.FreshTTL == 0 {
		c.Cache.FreshTTL = 15 * time.Minute
	}
	if c.Cache.PaceDelay == 0 {
		c.Cache.PaceDelay = 12 * time.Second
	}
	if c.Cache.MinRows == 0 {
		c.Cache.MinRows = 20
	}
	if c.Schedule.PrefetchCron == "" {
		c.Schedule.PrefetchCron = "0 */15 * * * 1-5"
	}
	if c.Schedule.ReportCron == "" {
		c.Schedule.ReportCron = "0 0 22 * * 1-5"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
}

// TelegramEnabled reports whether chat notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != ""
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Upstream.Provider {
	case ProviderAlphaVantage:
		if c.Upstream.APIKey == "" {
			return fmt.Errorf("upstream.api_key is required for %s", ProviderAlphaVantage)
		}
	case ProviderYahoo:
	default:
		return fmt.Errorf("upstream.provider %q is not supported", c.Upstream.Provider)
	}
	if c.Cache.HistoryDays < 1 {
		return fmt.Errorf("cache.history_days must be positive")
	}
	if c.Cache.FreshTTL < 0 || c.Cache.PaceDelay < 0 {
		return fmt.Errorf("cache durations must not be negative")
	}
	if c.Cache.MinRows < 1 {
		return fmt.Errorf("cache.min_rows must be positive")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.prefetch_cron": c.Schedule.PrefetchCron,
		"schedule.report_cron":   c.Schedule.ReportCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.TelegramEnabled() && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}
