package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cryptopulse/internal/model"
)

// InstrumentConfig describes one tracked asset. Per-provider symbols default
// to the instrument's own identifiers when omitted.
type InstrumentConfig struct {
	ID         string `yaml:"id"`
	Symbol     string `yaml:"symbol"`
	BookSymbol string `yaml:"book_symbol"`
	HistoryID  string `yaml:"history_id"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	News struct {
		NewsAPIKey string `yaml:"newsapi_key"`
		GNewsKey   string `yaml:"gnews_key"`
		MaxItems   int    `yaml:"max_items"`
	} `yaml:"news"`
	Market struct {
		CoinbaseURL  string `yaml:"coinbase_url"`
		CoinGeckoURL string `yaml:"coingecko_url"`
		HistoryDays  int    `yaml:"history_days"`
	} `yaml:"market"`
	Schedule struct {
		TickCron        string `yaml:"tick_cron"`
		Timezone        string `yaml:"timezone"`
		WindowStartHour int    `yaml:"window_start_hour"`
		WindowEndHour   int    `yaml:"window_end_hour"`
		WindowEndMinute int    `yaml:"window_end_minute"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Instruments []InstrumentConfig `yaml:"instruments"`
	Proxy       string             `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing file is not an error, defaults still apply.
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

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		cfg.News.NewsAPIKey = v
	}
	if v := os.Getenv("GNEWS_API_KEY"); v != "" {
		cfg.News.GNewsKey = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.News.MaxItems == 0 {
		cfg.News.MaxItems = 3
	}
	if cfg.Market.HistoryDays == 0 {
		cfg.Market.HistoryDays = 3
	}
	if cfg.Schedule.TickCron == "" {
		cfg.Schedule.TickCron = "5 0 * * * *"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "America/Bogota"
	}
	if cfg.Schedule.WindowStartHour == 0 {
		cfg.Schedule.WindowStartHour = 6
	}
	if cfg.Schedule.WindowEndHour == 0 {
		cfg.Schedule.WindowEndHour = 21
	}
	if cfg.Schedule.WindowEndMinute == 0 {
		cfg.Schedule.WindowEndMinute = 30
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Instruments) == 0 {
		cfg.Instruments = []InstrumentConfig{
			{ID: "bitcoin", Symbol: "BTC"},
			{ID: "ethereum", Symbol: "ETH"},
			{ID: "ripple", Symbol: "XRP"},
		}
	}
	for i := range cfg.Instruments {
		if cfg.Instruments[i].BookSymbol == "" {
			cfg.Instruments[i].BookSymbol = cfg.Instruments[i].Symbol
		}
		if cfg.Instruments[i].HistoryID == "" {
			cfg.Instruments[i].HistoryID = cfg.Instruments[i].ID
		}
	}

	return cfg, nil
}

// Validate checks that all required fields are set and well formed.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if c.Schedule.WindowStartHour < 0 || c.Schedule.WindowStartHour > 23 ||
		c.Schedule.WindowEndHour < 0 || c.Schedule.WindowEndHour > 23 ||
		c.Schedule.WindowEndMinute < 0 || c.Schedule.WindowEndMinute > 59 {
		return fmt.Errorf("schedule window out of range")
	}
	if c.Schedule.WindowStartHour > c.Schedule.WindowEndHour {
		return fmt.Errorf("schedule window start must not be after its end")
	}
	if c.Market.HistoryDays <= 0 {
		return fmt.Errorf("market.history_days must be positive")
	}
	if c.News.MaxItems < 0 {
		return fmt.Errorf("news.max_items must not be negative")
	}
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for _, inst := range c.Instruments {
		if inst.ID == "" || inst.Symbol == "" {
			return fmt.Errorf("instrument entries need id and symbol")
		}
	}
	return nil
}

// InstrumentList converts the configured instruments into model instruments,
// preserving their order.
func (c *Config) InstrumentList() []model.Instrument {
	out := make([]model.Instrument, 0, len(c.Instruments))
	for _, ic := range c.Instruments {
		out = append(out, model.Instrument{
			ID:         ic.ID,
			Symbol:     ic.Symbol,
			BookSymbol: ic.BookSymbol,
			HistoryID:  ic.HistoryID,
		})
	}
	return out
}
