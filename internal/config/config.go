// Package config handles configuration management with validation
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"trendgrid/internal/core"
	apperrors "trendgrid/pkg/errors"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path
const EnvConfigPath = "TGS_CONFIG"

// DefaultConfigPath is used when neither the flag nor the environment provide a path
const DefaultConfigPath = "configs/trendgrid.yaml"

// Config represents the complete configuration structure
type Config struct {
	Market    MarketConfig    `yaml:"market"`
	Log       LogConfig       `yaml:"log"`
	Coin      CoinsConfig     `yaml:"coin"`
	Runner    RunnerConfig    `yaml:"runner"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// MarketConfig contains exchange connectivity settings
type MarketConfig struct {
	Driver     string        `yaml:"driver"`   // rest or sdk
	BaseURL    string        `yaml:"base_url"` // Optional override for API URL
	Proxy      string        `yaml:"proxy"`
	APIKey     Secret        `yaml:"api_key"`
	SecretKey  Secret        `yaml:"secret_key"`
	RecvWindow int64         `yaml:"recv_window"` // milliseconds
	Timeout    time.Duration `yaml:"timeout"`
	RateLimit  float64       `yaml:"rate_limit"` // requests per second shared by all symbols
	Paper      bool          `yaml:"paper"`      // fill at ticker price without sending orders
}

// LogConfig contains logger settings
type LogConfig struct {
	Level         string `yaml:"level"`
	EnableLogFile bool   `yaml:"enable_log_file"`
	Path          string `yaml:"path"`
	Rotation      string `yaml:"rotation"` // hourly, daily or never
	MaxSizeMB     int    `yaml:"max_size_mb"`
	MaxBackups    int    `yaml:"max_backups"`
	MaxAgeDays    int    `yaml:"max_age_days"`
}

// CoinConfig holds the initial grid for one coin.
// Ratios are fractions, 0.02 means 2%.
type CoinConfig struct {
	BuyPrice         float64 `yaml:"buy_price"`
	SellPrice        float64 `yaml:"sell_price"`
	ProfitRatio      float64 `yaml:"profit_ratio"`
	DoubleThrowRatio float64 `yaml:"double_throw_ratio"`
	Quantity         float64 `yaml:"quantity"`
}

// CoinsConfig lists the optional per-coin grids
type CoinsConfig struct {
	ETH *CoinConfig `yaml:"eth"`
	BTC *CoinConfig `yaml:"btc"`
	BNB *CoinConfig `yaml:"bnb"`
}

// CoinEntry pairs a configured coin with its symbol
type CoinEntry struct {
	Symbol core.Symbol
	Coin   CoinConfig
}

// RunnerConfig contains symbol loop timing
type RunnerConfig struct {
	Cooldown        time.Duration `yaml:"cooldown"`
	ErrorBackoff    time.Duration `yaml:"error_backoff"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	KlineInterval   core.Interval `yaml:"kline_interval"`
	KlineLimit      int           `yaml:"kline_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	EnableMetrics bool `yaml:"enable_metrics"`
	MetricsPort   int  `yaml:"metrics_port"`
	HealthPort    int  `yaml:"health_port"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

func (e ValidationError) Unwrap() error {
	return apperrors.ErrConfig
}

// ResolvePath picks the config file path: flag value, then TGS_CONFIG, then the default
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w: %w", apperrors.ErrConfig, err)
	}
	return Parse(data)
}

// Parse decodes YAML content on top of DefaultConfig and validates it
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w: %w", apperrors.ErrConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errs []error

	if err := c.validateMarketConfig(); err != nil {
		errs = append(errs, err)
	}
	if err := c.validateLogConfig(); err != nil {
		errs = append(errs, err)
	}
	for _, entry := range c.Coin.Enabled() {
		if err := entry.Coin.Validate(strings.ToLower(entry.Symbol.String())); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.validateRunnerConfig(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Config) validateMarketConfig() error {
	if !contains([]string{"rest", "sdk"}, c.Market.Driver) {
		return ValidationError{
			Field:   "market.driver",
			Value:   c.Market.Driver,
			Message: "must be one of: rest, sdk",
		}
	}
	if c.Market.Paper {
		return nil
	}
	if c.Market.APIKey == "" {
		return ValidationError{
			Field:   "market.api_key",
			Message: "API key is required",
		}
	}
	if c.Market.SecretKey == "" {
		return ValidationError{
			Field:   "market.secret_key",
			Message: "secret key is required",
		}
	}
	return nil
}

func (c *Config) validateLogConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.Log.Level)) {
		return ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	if !contains([]string{"hourly", "daily", "never"}, strings.ToLower(c.Log.Rotation)) {
		return ValidationError{
			Field:   "log.rotation",
			Value:   c.Log.Rotation,
			Message: "must be one of: hourly, daily, never",
		}
	}
	if c.Log.EnableLogFile && c.Log.Path == "" {
		return ValidationError{
			Field:   "log.path",
			Message: "path is required when enable_log_file is set",
		}
	}
	return nil
}

func (c *Config) validateRunnerConfig() error {
	if c.Runner.Cooldown < 60*time.Second || c.Runner.Cooldown > 120*time.Second {
		return ValidationError{
			Field:   "runner.cooldown",
			Value:   c.Runner.Cooldown,
			Message: "must be between 60s and 120s",
		}
	}
	if c.Runner.ErrorBackoff <= 0 {
		return ValidationError{
			Field:   "runner.error_backoff",
			Value:   c.Runner.ErrorBackoff,
			Message: "must be positive",
		}
	}
	if !c.Runner.KlineInterval.Valid() {
		return ValidationError{
			Field:   "runner.kline_interval",
			Value:   c.Runner.KlineInterval,
			Message: "unsupported kline interval",
		}
	}
	if c.Runner.KlineLimit < 1 || c.Runner.KlineLimit > 1000 {
		return ValidationError{
			Field:   "runner.kline_limit",
			Value:   c.Runner.KlineLimit,
			Message: "must be between 1 and 1000",
		}
	}
	return nil
}

// Validate checks one coin grid; field names are prefixed with coin.<name>
func (cc CoinConfig) Validate(name string) error {
	field := func(f string) string { return fmt.Sprintf("coin.%s.%s", name, f) }

	if cc.BuyPrice <= 0 {
		return ValidationError{Field: field("buy_price"), Value: cc.BuyPrice, Message: "must be positive"}
	}
	if cc.SellPrice <= cc.BuyPrice {
		return ValidationError{Field: field("sell_price"), Value: cc.SellPrice, Message: "must be greater than buy_price"}
	}
	if cc.ProfitRatio < 0 || cc.ProfitRatio >= 1 {
		return ValidationError{Field: field("profit_ratio"), Value: cc.ProfitRatio, Message: "must be a fraction in [0, 1)"}
	}
	if cc.DoubleThrowRatio < 0 || cc.DoubleThrowRatio >= 1 {
		return ValidationError{Field: field("double_throw_ratio"), Value: cc.DoubleThrowRatio, Message: "must be a fraction in [0, 1)"}
	}
	if cc.Quantity <= 0 {
		return ValidationError{Field: field("quantity"), Value: cc.Quantity, Message: "must be positive"}
	}
	return nil
}

// Enabled returns the configured coins in a stable order
func (c CoinsConfig) Enabled() []CoinEntry {
	var entries []CoinEntry
	for _, s := range core.AllSymbols {
		if cc := c.get(s); cc != nil {
			entries = append(entries, CoinEntry{Symbol: s, Coin: *cc})
		}
	}
	return entries
}

func (c CoinsConfig) get(s core.Symbol) *CoinConfig {
	switch s {
	case core.ETH:
		return c.ETH
	case core.BTC:
		return c.BTC
	case core.BNB:
		return c.BNB
	}
	return nil
}

// String returns a string representation of the configuration (with sensitive data masked)
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns the configuration used for absent keys
func DefaultConfig() *Config {
	return &Config{
		Market: MarketConfig{
			Driver:     "rest",
			BaseURL:    "https://api.binance.com",
			RecvWindow: 5000,
			Timeout:    10 * time.Second,
			RateLimit:  10,
		},
		Log: LogConfig{
			Level:      "INFO",
			Path:       "logs/trendgrid.log",
			Rotation:   "daily",
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
		Runner: RunnerConfig{
			Cooldown:        90 * time.Second,
			ErrorBackoff:    time.Second,
			KlineInterval:   core.Interval1h,
			KlineLimit:      24,
			ShutdownTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			MetricsPort: 9090,
			HealthPort:  8080,
		},
	}
}
