package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	WS       WSConfig       `yaml:"ws"`
	State    StateConfig    `yaml:"state"`
	Markets  []MarketConfig `yaml:"markets"`
	Strategy StrategyConfig `yaml:"strategy"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Journal  JournalConfig  `yaml:"journal"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type WSConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	SubmitTimeout  time.Duration `yaml:"submit_timeout"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MarketConfig struct {
	ID      int    `yaml:"id"`
	Name    string `yaml:"name"`
	Tick    int64  `yaml:"tick"`
	Private bool   `yaml:"private"`
}

type StrategyConfig struct {
	PublicMarket  int    `yaml:"public_market"`
	PrivateMarket int    `yaml:"private_market"`
	Counterparty  string `yaml:"counterparty"`
	Threshold     int64  `yaml:"threshold"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	Queue   int    `yaml:"queue"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.WS.ReconnectDelay == 0 {
		cfg.WS.ReconnectDelay = 3 * time.Second
	}
	if cfg.WS.PingInterval == 0 {
		cfg.WS.PingInterval = 15 * time.Second
	}
	if cfg.WS.SubmitTimeout == 0 {
		cfg.WS.SubmitTimeout = 5 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/fm-arb-bot.db"
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
	if cfg.Journal.Queue == 0 {
		cfg.Journal.Queue = 256
	}
	for i := range cfg.Markets {
		if cfg.Markets[i].Tick == 0 {
			cfg.Markets[i].Tick = 1
		}
	}
}

func validate(cfg *Config) error {
	if cfg.WS.URL == "" {
		return errors.New("ws.url is required")
	}
	if len(cfg.Markets) == 0 {
		return errors.New("markets must list the session markets")
	}
	for _, m := range cfg.Markets {
		if m.ID <= 0 {
			return fmt.Errorf("markets: %q has invalid id %d", m.Name, m.ID)
		}
	}
	if cfg.Strategy.PublicMarket <= 0 {
		return errors.New("strategy.public_market is required")
	}
	if cfg.Strategy.PrivateMarket <= 0 {
		return errors.New("strategy.private_market is required")
	}
	if cfg.Strategy.PublicMarket == cfg.Strategy.PrivateMarket {
		return errors.New("strategy.public_market and strategy.private_market must differ")
	}
	if cfg.Strategy.Counterparty == "" {
		return errors.New("strategy.counterparty is required")
	}
	if cfg.Strategy.Threshold < 0 {
		return errors.New("strategy.threshold must be >= 0")
	}
	if cfg.Journal.Enabled && cfg.Journal.DSN == "" {
		return errors.New("journal.dsn is required when journal.enabled")
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram.enabled")
	}
	return nil
}
