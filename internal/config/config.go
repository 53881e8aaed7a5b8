// Package config handles configuration loading for investorfolio.
// It supports YAML config files, .env files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seenimoa/investorfolio/pkg/utils"
)

// Config represents the complete application configuration.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"  yaml:"source"  json:"source"`
	View    ViewConfig    `mapstructure:"view"    yaml:"view"    json:"view"`
	Export  ExportConfig  `mapstructure:"export"  yaml:"export"  json:"export"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"     json:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-" yaml:"-" json:"config_file,omitempty"`
}

// SourceConfig holds the portfolio row server settings.
type SourceConfig struct {
	BaseURL        string  `mapstructure:"base_url"         yaml:"base_url"         json:"base_url"`
	TimeoutSec     int     `mapstructure:"timeout_sec"      yaml:"timeout_sec"      json:"timeout_sec"`
	RequestsPerSec float64 `mapstructure:"requests_per_sec" yaml:"requests_per_sec" json:"requests_per_sec"` // 0 disables limiting
}

// Timeout returns the request timeout as a duration.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// ViewConfig holds table layout settings.
type ViewConfig struct {
	HistoryQuarters int `mapstructure:"history_quarters" yaml:"history_quarters" json:"history_quarters"`
}

// ExportConfig holds spreadsheet export settings.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// Addr returns host:port for net/http.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.investorfolio/config.yaml (home directory)
//  3. /etc/investorfolio/config.yaml (system)
//
// A .env file in the working directory is loaded first, if present.
// Environment variables override config file values.
// Format: INVESTORFOLIO_<SECTION>_<KEY>, e.g., INVESTORFOLIO_SOURCE_BASE_URL
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".investorfolio"))
	v.AddConfigPath("/etc/investorfolio")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("INVESTORFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Row source
	v.SetDefault("source.base_url", "http://localhost:5000")
	v.SetDefault("source.timeout_sec", 30)
	v.SetDefault("source.requests_per_sec", 2.0)

	// Table layout
	v.SetDefault("view.history_quarters", 8)

	// Export
	v.SetDefault("export.dir", ".")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:5173"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv honours SERVER_URL (and the Vite-prefixed form the browser
// build used) unless the namespaced variable is set.
func overrideFromEnv(cfg *Config) {
	if os.Getenv("INVESTORFOLIO_SOURCE_BASE_URL") != "" {
		return
	}
	for _, name := range []string{"SERVER_URL", "VITE_SERVER_URL"} {
		if u := os.Getenv(name); u != "" {
			cfg.Source.BaseURL = u
			return
		}
	}
}

// Validate checks values that would otherwise fail far from their origin.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Source.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid source.base_url %q: must be an absolute URL", c.Source.BaseURL)
	}
	if c.Source.TimeoutSec <= 0 {
		return fmt.Errorf("invalid source.timeout_sec %d: must be positive", c.Source.TimeoutSec)
	}
	if c.Source.RequestsPerSec < 0 {
		return fmt.Errorf("invalid source.requests_per_sec %g: must not be negative", c.Source.RequestsPerSec)
	}
	if c.View.HistoryQuarters < 0 || c.View.HistoryQuarters > utils.MaxPrecedingQuarters {
		return fmt.Errorf("invalid view.history_quarters %d: must be between 0 and %d",
			c.View.HistoryQuarters, utils.MaxPrecedingQuarters)
	}
	return nil
}

// loadDotEnv loads ./.env without overriding variables already set.
func loadDotEnv() {
	_ = godotenv.Load() // missing .env is fine
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
