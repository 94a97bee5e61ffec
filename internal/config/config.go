// Package config loads session configuration from YAML with environment
// variable overrides, following the two-pass Load/applyEnvOverrides shape
// used across the platform.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"gbmwave/internal/domain"
)

// Config is the top-level configuration for a gbmwave session.
type Config struct {
	Session SessionConfig `yaml:"session"`
	Storage Storage       `yaml:"storage"`
	Server  Server        `yaml:"server"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Logging Logging       `yaml:"logging"`
}

// SessionConfig holds the engine parameters recognized at session start.
type SessionConfig struct {
	Ticker                 string  `yaml:"ticker"`
	StartingPrice          string  `yaml:"starting_price"`
	NumPaths               int     `yaml:"num_paths"`
	Tolerance              float64 `yaml:"tolerance"`
	ForecastHorizonMinutes int     `yaml:"forecast_horizon_minutes"`
	UpdateIntervalSeconds  int     `yaml:"update_interval_seconds"`
	HistoryDays            int     `yaml:"history_days"`
	Seed                   *uint64 `yaml:"seed"`
	TopKZones              int     `yaml:"top_k_zones"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// defaults applies the spec's documented defaults before a YAML file is
// unmarshaled on top of them.
func defaults() *Config {
	return &Config{
		Session: SessionConfig{
			NumPaths:               500,
			Tolerance:              0.01,
			ForecastHorizonMinutes: 10080,
			UpdateIntervalSeconds:  60,
			HistoryDays:            30,
			TopKZones:              5,
		},
		Storage: Storage{
			DataDir:    "./data",
			SQLitePath: "./data/bars.db",
		},
		Server: Server{
			HTTPAddr: ":8080",
			GRPCAddr: ":9090",
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads the YAML configuration file at path on top of the documented
// defaults, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GBM_TICKER"); v != "" {
		cfg.Session.Ticker = v
	}
	if v := os.Getenv("GBM_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Session.Seed = &seed
		}
	}
	if v := os.Getenv("GBM_TOLERANCE"); v != "" {
		if tol, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Session.Tolerance = tol
		}
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("GBM_HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("GBM_GRPC_ADDR"); v != "" {
		cfg.Server.GRPCAddr = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	// Standard Alpaca env vars take priority — canonical names used by the SDK.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate rejects configuration errors — bad tolerance, non-positive
// horizon, missing ticker, unparsable starting_price — before the loop
// starts, per the ConfigError taxonomy: these are fatal and never recovered
// mid-session.
func Validate(cfg *Config) error {
	if cfg.Session.Ticker == "" {
		return fmt.Errorf("%w: ticker is required", domain.ErrConfig)
	}
	if cfg.Session.Tolerance <= 0 || cfg.Session.Tolerance >= 1 {
		return fmt.Errorf("%w: tolerance must be in (0, 1), got %v", domain.ErrConfig, cfg.Session.Tolerance)
	}
	if cfg.Session.NumPaths < 1 {
		return fmt.Errorf("%w: num_paths must be >= 1, got %d", domain.ErrConfig, cfg.Session.NumPaths)
	}
	if cfg.Session.ForecastHorizonMinutes < 1 {
		return fmt.Errorf("%w: forecast_horizon_minutes must be >= 1, got %d", domain.ErrConfig, cfg.Session.ForecastHorizonMinutes)
	}
	if cfg.Session.UpdateIntervalSeconds < 1 {
		return fmt.Errorf("%w: update_interval_seconds must be >= 1, got %d", domain.ErrConfig, cfg.Session.UpdateIntervalSeconds)
	}
	if cfg.Session.HistoryDays < 1 {
		return fmt.Errorf("%w: history_days must be >= 1, got %d", domain.ErrConfig, cfg.Session.HistoryDays)
	}
	switch cfg.Session.StartingPrice {
	case "", "weekly-open", "daily-open":
	default:
		if _, err := strconv.ParseFloat(cfg.Session.StartingPrice, 64); err != nil {
			return fmt.Errorf("%w: starting_price must be \"weekly-open\", \"daily-open\", or a numeric literal, got %q", domain.ErrConfig, cfg.Session.StartingPrice)
		}
	}
	return nil
}
