package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"ReplayDesk/internal/model"
)

// Config holds all application configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Server  struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Session struct {
		Symbol      string  `yaml:"symbol"`
		Timeframe   string  `yaml:"timeframe"`
		Cursor      int     `yaml:"cursor"`
		Zoom        int     `yaml:"zoom"`
		Balance     float64 `yaml:"balance"`
		OrderSize   float64 `yaml:"order_size"`
		MaxOverlays int     `yaml:"max_overlays"`
	} `yaml:"session"`
	Playback struct {
		SpeedMS           int `yaml:"speed_ms"`
		MinSpeedMS        int `yaml:"min_speed_ms"`
		MaxSpeedMS        int `yaml:"max_speed_ms"`
		SubstepsPerCandle int `yaml:"substeps_per_candle"`
	} `yaml:"playback"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Harvest struct {
		RawDir     string   `yaml:"raw_dir"`
		SourceRoot string   `yaml:"source_root"`
		Pairs      []string `yaml:"pairs"`
		YearFrom   int      `yaml:"year_from"`
		YearTo     int      `yaml:"year_to"`
		Cron       string   `yaml:"cron"`
	} `yaml:"harvest"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Cursor 0 (start at the first bar) is a valid setting, so its default
	// cannot key off the zero value.
	cfg.Session.Cursor = -1

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
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.Session.Symbol = v
	}
	if v := os.Getenv("STARTING_BALANCE"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Session.Balance = b
		}
	}

	// Defaults
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8457"
	}
	if cfg.Session.Symbol == "" {
		cfg.Session.Symbol = "EURUSD"
	}
	if cfg.Session.Timeframe == "" {
		cfg.Session.Timeframe = "1H"
	}
	if cfg.Session.Cursor == -1 {
		cfg.Session.Cursor = 500
	}
	if cfg.Session.Zoom == 0 {
		cfg.Session.Zoom = 150
	}
	if cfg.Session.Balance == 0 {
		cfg.Session.Balance = 10000
	}
	if cfg.Session.OrderSize == 0 {
		cfg.Session.OrderSize = 100000
	}
	if cfg.Session.MaxOverlays == 0 {
		cfg.Session.MaxOverlays = 4
	}
	if cfg.Playback.SpeedMS == 0 {
		cfg.Playback.SpeedMS = 200
	}
	if cfg.Playback.MinSpeedMS == 0 {
		cfg.Playback.MinSpeedMS = 50
	}
	if cfg.Playback.MaxSpeedMS == 0 {
		cfg.Playback.MaxSpeedMS = 1000
	}
	if cfg.Playback.SubstepsPerCandle == 0 {
		cfg.Playback.SubstepsPerCandle = 6
	}
	if cfg.Harvest.RawDir == "" {
		cfg.Harvest.RawDir = filepath.Join(cfg.DataDir, "raw")
	}
	if cfg.Harvest.SourceRoot == "" {
		cfg.Harvest.SourceRoot = filepath.Join(cfg.DataDir, "raw_incoming", "ASCII")
	}
	if len(cfg.Harvest.Pairs) == 0 {
		cfg.Harvest.Pairs = []string{"eurusd", "gbpusd", "audusd", "usdjpy", "usdchf"}
	}
	if cfg.Harvest.YearFrom == 0 {
		cfg.Harvest.YearFrom = 2015
	}
	if cfg.Harvest.YearTo == 0 {
		cfg.Harvest.YearTo = 2024
	}

	return cfg, nil
}

// Validate checks that all required fields are coherent.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if _, err := model.ParseTimeframe(c.Session.Timeframe); err != nil {
		return fmt.Errorf("session.timeframe: %w", err)
	}
	if c.Session.Cursor < 0 {
		return fmt.Errorf("session.cursor must not be negative")
	}
	if c.Session.Zoom <= 0 {
		return fmt.Errorf("session.zoom must be positive")
	}
	if c.Session.OrderSize <= 0 {
		return fmt.Errorf("session.order_size must be positive")
	}
	if c.Playback.MinSpeedMS <= 0 || c.Playback.MaxSpeedMS < c.Playback.MinSpeedMS {
		return fmt.Errorf("playback speed bounds are invalid")
	}
	if c.Playback.SpeedMS < c.Playback.MinSpeedMS || c.Playback.SpeedMS > c.Playback.MaxSpeedMS {
		return fmt.Errorf("playback.speed_ms must be within [%d, %d]",
			c.Playback.MinSpeedMS, c.Playback.MaxSpeedMS)
	}
	if c.Harvest.YearTo < c.Harvest.YearFrom {
		return fmt.Errorf("harvest.year_to must not precede harvest.year_from")
	}
	return nil
}
