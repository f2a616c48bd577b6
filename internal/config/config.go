package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Spot      EndpointConfig  `yaml:"spot"`
	Futures   EndpointConfig  `yaml:"futures"`
	HTTP      HTTPConfig      `yaml:"http"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Journal   JournalConfig   `yaml:"journal"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type EndpointConfig struct {
	RESTBaseURL string        `yaml:"rest_base_url"`
	WSBaseURL   string        `yaml:"ws_base_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
}

type StrategyConfig struct {
	Symbol string `yaml:"symbol"`
	// TickSize is the spot price increment for the symbol.
	TickSize float64 `yaml:"tick_size"`
	// AmountTarget is the base quantity each slot aims to buy.
	AmountTarget      float64       `yaml:"amount_target"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	KeepAliveInterval time.Duration `yaml:"keepalive_interval"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type TimescaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DSN       string `yaml:"dsn"`
	Schema    string `yaml:"schema"`
	QueueSize int    `yaml:"queue_size"`
}

// Load reads the yaml config when a path is given, applies defaults and the
// BINANCE_*/HTTP_BIND environment overrides, then validates. An empty path
// yields a pure defaults-plus-environment configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Spot.RESTBaseURL == "" {
		cfg.Spot.RESTBaseURL = "https://api.binance.com/api"
	}
	if cfg.Spot.WSBaseURL == "" {
		cfg.Spot.WSBaseURL = "wss://stream.binance.com:9443"
	}
	if cfg.Spot.Timeout == 0 {
		cfg.Spot.Timeout = 10 * time.Second
	}
	if cfg.Futures.RESTBaseURL == "" {
		cfg.Futures.RESTBaseURL = "https://fapi.binance.com"
	}
	if cfg.Futures.WSBaseURL == "" {
		cfg.Futures.WSBaseURL = "wss://fstream.binance.com"
	}
	if cfg.Futures.Timeout == 0 {
		cfg.Futures.Timeout = 10 * time.Second
	}
	if cfg.HTTP.Bind == "" {
		cfg.HTTP.Bind = "0.0.0.0:3000"
	}
	if cfg.Strategy.Symbol == "" {
		cfg.Strategy.Symbol = "ACTUSDT"
	}
	if cfg.Strategy.TickSize == 0 {
		cfg.Strategy.TickSize = 0.0001
	}
	if cfg.Strategy.AmountTarget == 0 {
		cfg.Strategy.AmountTarget = 500
	}
	if cfg.Strategy.ReconnectDelay == 0 {
		cfg.Strategy.ReconnectDelay = 5 * time.Second
	}
	if cfg.Strategy.KeepAliveInterval == 0 {
		cfg.Strategy.KeepAliveInterval = 30 * time.Minute
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = "data/bn-ladder-bot.db"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BINANCE_REST_BASE_URL"); v != "" {
		cfg.Spot.RESTBaseURL = v
	}
	if v := os.Getenv("BINANCE_WS_BASE_URL"); v != "" {
		cfg.Spot.WSBaseURL = v
	}
	if v := os.Getenv("BINANCE_FUTURES_REST_BASE_URL"); v != "" {
		cfg.Futures.RESTBaseURL = v
	}
	if v := os.Getenv("BINANCE_FUTURES_WS_BASE_URL"); v != "" {
		cfg.Futures.WSBaseURL = v
	}
	if v := os.Getenv("HTTP_BIND"); v != "" {
		cfg.HTTP.Bind = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
}

func validate(cfg *Config) error {
	if cfg.Strategy.Symbol == "" {
		return errors.New("strategy.symbol is required")
	}
	if cfg.Strategy.TickSize <= 0 {
		return errors.New("strategy.tick_size must be > 0")
	}
	if cfg.Strategy.AmountTarget <= 0 {
		return errors.New("strategy.amount_target must be > 0")
	}
	return nil
}

type Credentials struct {
	APIKey    string
	APISecret string
}

// CredentialsFromEnv reads the required exchange keys. Missing keys are a
// fatal startup error.
func CredentialsFromEnv() (Credentials, error) {
	key := os.Getenv("BINANCE_API_KEY")
	if key == "" {
		return Credentials{}, errors.New("BINANCE_API_KEY is required")
	}
	secret := os.Getenv("BINANCE_API_SECRET")
	if secret == "" {
		return Credentials{}, errors.New("BINANCE_API_SECRET is required")
	}
	return Credentials{APIKey: key, APISecret: secret}, nil
}
