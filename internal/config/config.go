// Package config provides configuration management for the trading journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Journal       JournalConfig      `mapstructure:"journal"`
	Paper         PaperConfig        `mapstructure:"paper"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
	// Created is set when a template was written because no config existed.
	Created bool `mapstructure:"-"`
}

// JournalConfig holds journal storage and account configuration.
type JournalConfig struct {
	DBPath         string  `mapstructure:"db_path"`
	InitialBalance float64 `mapstructure:"initial_balance"`
	Currency       string  `mapstructure:"currency"`
}

// PaperConfig holds paper trading simulator configuration.
type PaperConfig struct {
	MaxOpenTrades int           `mapstructure:"max_open_trades"`
	DefaultTPPips float64       `mapstructure:"default_tp_pips"`
	DefaultSLPips float64       `mapstructure:"default_sl_pips"`
	MaxDuration   time.Duration `mapstructure:"max_duration"`
	WarningAfter  time.Duration `mapstructure:"warning_after"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	PriceJitter   float64       `mapstructure:"price_jitter"`
}

// DefaultPaperConfig returns the simulator defaults.
func DefaultPaperConfig() PaperConfig {
	return PaperConfig{
		MaxOpenTrades: 5,
		DefaultTPPips: 100,
		DefaultSLPips: 50,
		MaxDuration:   8 * time.Hour,
		WarningAfter:  7*time.Hour + 30*time.Minute,
		TickInterval:  time.Second,
		PriceJitter:   0.0005,
	}
}

// Validate checks the simulator limits.
func (p PaperConfig) Validate() error {
	if p.MaxOpenTrades <= 0 {
		return fmt.Errorf("max_open_trades must be positive")
	}
	if p.DefaultTPPips < 0 || p.DefaultSLPips < 0 {
		return fmt.Errorf("default_tp_pips and default_sl_pips must be non-negative")
	}
	if p.MaxDuration <= 0 {
		return fmt.Errorf("max_duration must be positive")
	}
	if p.WarningAfter <= 0 || p.WarningAfter >= p.MaxDuration {
		return fmt.Errorf("warning_after must be positive and shorter than max_duration")
	}
	if p.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if p.PriceJitter < 0 || p.PriceJitter >= 1 {
		return fmt.Errorf("price_jitter must be in [0, 1)")
	}
	return nil
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"` // all, trades_only, errors_only
	Color   bool   `mapstructure:"color"`
	Bell    bool   `mapstructure:"bell"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trading-journal"
	}
	return filepath.Join(home, ".config", "trading-journal")
}

// ConfigPath returns the config file path inside configDir.
func ConfigPath(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config file is replaced by a template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// .env files only fill variables that are not already set
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	_ = godotenv.Load()

	cfg := &Config{Dir: configDir}

	created, err := loadConfigFile(configDir, "config", cfg)
	if err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}
	cfg.Created = created

	applyEnvOverrides(cfg)

	if cfg.Journal.DBPath == "" {
		cfg.Journal.DBPath = filepath.Join(configDir, "journal.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	paper := DefaultPaperConfig()

	v.SetDefault("journal.db_path", "")
	v.SetDefault("journal.initial_balance", 10000.0)
	v.SetDefault("journal.currency", "USD")

	v.SetDefault("paper.max_open_trades", paper.MaxOpenTrades)
	v.SetDefault("paper.default_tp_pips", paper.DefaultTPPips)
	v.SetDefault("paper.default_sl_pips", paper.DefaultSLPips)
	v.SetDefault("paper.max_duration", paper.MaxDuration)
	v.SetDefault("paper.warning_after", paper.WarningAfter)
	v.SetDefault("paper.tick_interval", paper.TickInterval)
	v.SetDefault("paper.price_jitter", paper.PriceJitter)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 30)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.level", "all")
	v.SetDefault("notifications.color", true)
	v.SetDefault("notifications.bell", false)
}

func loadConfigFile(configDir, name string, target interface{}) (bool, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	created := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return false, err
		}
		// Config file not found, create template and continue on defaults
		if _, err := createTemplateConfig(configDir, name); err != nil {
			return false, err
		}
		created = true
	}

	return created, v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNAL_DB_PATH"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("JOURNAL_INITIAL_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Journal.InitialBalance = f
		}
	}
	if v := os.Getenv("JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Journal.InitialBalance < 0 {
		return fmt.Errorf("initial_balance must be non-negative")
	}

	if err := c.Paper.Validate(); err != nil {
		return err
	}

	switch c.Notifications.Level {
	case "", "all", "trades_only", "errors_only":
	default:
		return fmt.Errorf("invalid notification level: %s (must be all, trades_only or errors_only)", c.Notifications.Level)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// LogFilePath returns the rotated log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Dir, "logs", "journal.log")
}
