package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"MetalSentinel/internal/forecast"
	"MetalSentinel/internal/logger"
	"MetalSentinel/internal/model"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Data providers selectable via data_source.provider.
const (
	ProviderYahoo = "yahoo"
	ProviderREST  = "rest"
	ProviderMock  = "mock"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider  string        `yaml:"provider"`
		BaseURL   string        `yaml:"base_url"`
		APIKey    string        `yaml:"api_key"`
		StartDate string        `yaml:"start_date"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Instruments struct {
		Gold   string `yaml:"gold"`
		Silver string `yaml:"silver"`
		FX     string `yaml:"fx"`
		// Currency labels prices converted through FX.
		Currency string `yaml:"currency"`
		// Grams is the display unit for converted prices.
		Grams float64 `yaml:"grams"`
	} `yaml:"instruments"`
	Forecast struct {
		forecast.Options `yaml:",inline"`
		TrainTimeout     time.Duration `yaml:"train_timeout"`
		DigestDays       int           `yaml:"digest_days"`
	} `yaml:"forecast"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		DigestCron  string `yaml:"digest_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Log   logger.Options `yaml:"log"`
	Proxy string         `yaml:"proxy"`
}

// Load reads an optional .env file and the YAML config, then applies environment variable
// overrides and defaults. Missing files are not an error.
func Load(path, envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := &Config{}
	cfg.Forecast.Options = forecast.DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("START_DATE"); v != "" {
		cfg.DataSource.StartDate = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("CRON_DIGEST"); v != "" {
		cfg.Schedule.DigestCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DISPLAY_GRAMS"); v != "" {
		if g, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Instruments.Grams = g
		}
	}
	if v := os.Getenv("TRAIN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Forecast.TrainTimeout = d
		}
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = ProviderYahoo
	}
	if cfg.DataSource.StartDate == "" {
		cfg.DataSource.StartDate = "2020-01-01"
	}
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = 30 * time.Second
	}
	if cfg.Instruments.Gold == "" {
		cfg.Instruments.Gold = "GC=F"
	}
	if cfg.Instruments.Silver == "" {
		cfg.Instruments.Silver = "SI=F"
	}
	if cfg.Instruments.FX == "" {
		cfg.Instruments.FX = "USDINR=X"
	}
	if cfg.Instruments.Currency == "" {
		cfg.Instruments.Currency = "INR"
	}
	if cfg.Instruments.Grams == 0 {
		cfg.Instruments.Grams = 1
	}
	if cfg.Forecast.TrainTimeout == 0 {
		cfg.Forecast.TrainTimeout = 2 * time.Minute
	}
	if cfg.Forecast.DigestDays == 0 {
		cfg.Forecast.DigestDays = 30
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 30 6 * * 1-5"
	}
	if cfg.Schedule.DigestCron == "" {
		cfg.Schedule.DigestCron = "0 0 8 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/metal_sentinel.db"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 6 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 30
	}

	return cfg, nil
}

// Start returns the first date of history to load.
func (c *Config) Start() (time.Time, error) {
	return model.ParseDate(c.DataSource.StartDate)
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case ProviderYahoo, ProviderMock:
	case ProviderREST:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, mock", c.DataSource.Provider)
	}
	if _, err := c.Start(); err != nil {
		return fmt.Errorf("data_source.start_date: %w", err)
	}
	if c.Instruments.Gold == "" || c.Instruments.Silver == "" || c.Instruments.FX == "" {
		return fmt.Errorf("instruments.gold, instruments.silver and instruments.fx are required")
	}
	if c.Instruments.Grams <= 0 {
		return fmt.Errorf("instruments.grams must be positive")
	}
	if err := c.Forecast.Options.Validate(); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	if c.Forecast.DigestDays <= 0 {
		return fmt.Errorf("forecast.digest_days must be positive")
	}
	return nil
}

// ValidateServe additionally checks what the long-running bot needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, expr := range map[string]string{
		"schedule.refresh_cron": c.Schedule.RefreshCron,
		"schedule.digest_cron":  c.Schedule.DigestCron,
	} {
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
