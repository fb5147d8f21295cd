// Package config loads the budget tool's settings from flags, environment,
// an optional YAML file and a .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"budget-ledger/internal/engine"
)

// EnvPrefix is prepended to every environment override, e.g. BUDGET_SOURCE.
const EnvPrefix = "BUDGET"

// Supported snapshot backends.
const (
	BackendCSV    = "csv"
	BackendYNAB4  = "ynab4"
	BackendSQLite = "sqlite"
)

// Supported report formats.
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CarryoverConfig selects the month-to-month carry-over policy.
type CarryoverConfig struct {
	Mode                 string `mapstructure:"mode"`
	FiscalYearStartMonth int    `mapstructure:"fiscal_year_start_month"`
}

// CacheConfig bounds the snapshot cache.
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// Config is the fully resolved tool configuration.
type Config struct {
	Backend          string          `mapstructure:"backend"`
	Source           string          `mapstructure:"source"`
	Budget           string          `mapstructure:"budget"` // stored budget name, sqlite only
	Format           string          `mapstructure:"format"`
	Pool             string          `mapstructure:"pool"`
	Locale           string          `mapstructure:"locale"`
	InterestKeywords []string        `mapstructure:"interest_keywords"`
	Carryover        CarryoverConfig `mapstructure:"carryover"`
	Cache            CacheConfig     `mapstructure:"cache"`
	Logging          LoggingConfig   `mapstructure:"logging"`
}

// SetDefaults registers every key with its default value. Keys must be known
// to viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendCSV)
	v.SetDefault("source", ".")
	v.SetDefault("budget", "")
	v.SetDefault("format", FormatJSON)
	v.SetDefault("pool", "on-budget")
	v.SetDefault("locale", "")
	v.SetDefault("interest_keywords", []string{})
	v.SetDefault("carryover.mode", engine.CarryAlways.String())
	v.SetDefault("carryover.fiscal_year_start_month", 1)
	v.SetDefault("cache.size", 8)
	v.SetDefault("cache.ttl", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// NewViper returns a viper instance with defaults and BUDGET_* environment
// overrides wired in.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; existing variables are never overwritten.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(ExpandPath(p))
	}
}

// ReadFile reads the config file if one is set or found. A missing file in
// the search path is not an error.
func ReadFile(v *viper.Viper, path string, searchDirs ...string) error {
	if path != "" {
		v.SetConfigFile(ExpandPath(path))
	} else {
		for _, dir := range searchDirs {
			v.AddConfigPath(ExpandPath(dir))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Source = ExpandPath(c.Source)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCSV, BackendYNAB4, BackendSQLite:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	switch c.Format {
	case FormatJSON, FormatTable:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	if c.Source == "" {
		return fmt.Errorf("%w: source is required", ErrInvalidConfig)
	}
	if c.Backend != BackendSQLite && c.Budget != "" {
		return fmt.Errorf("%w: budget only applies to the sqlite backend", ErrInvalidConfig)
	}
	if _, err := engine.ParseSelector(c.Pool); err != nil {
		return fmt.Errorf("%w: pool: %v", ErrInvalidConfig, err)
	}
	if _, err := c.CarryoverPolicy(); err != nil {
		return err
	}
	if c.Cache.Size < 1 {
		return fmt.Errorf("%w: cache.size must be positive", ErrInvalidConfig)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// CarryoverPolicy converts the carry-over settings into the engine policy.
func (c *Config) CarryoverPolicy() (engine.CarryoverPolicy, error) {
	mode, err := engine.ParseCarryoverMode(c.Carryover.Mode)
	if err != nil {
		return engine.CarryoverPolicy{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	start := c.Carryover.FiscalYearStartMonth
	if start == 0 {
		start = 1
	}
	if start < 1 || start > 12 {
		return engine.CarryoverPolicy{}, fmt.Errorf("%w: fiscal year start month %d", ErrInvalidConfig, start)
	}
	return engine.CarryoverPolicy{Mode: mode, FiscalYearStartMonth: start}, nil
}
