// Package config holds runtime settings for feedsync.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full set of settings. Zero values are filled from Default.
type Config struct {
	Addr            string   `toml:"addr"`
	Database        string   `toml:"database"`
	ProxyURL        string   `toml:"proxy_url"`
	RefreshInterval Duration `toml:"refresh_interval"`
	Language        string   `toml:"language"`
	LogLevel        string   `toml:"log_level"`
	LogFormat       string   `toml:"log_format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:            ":8080",
		Database:        "feedsync.db",
		ProxyURL:        "https://api.allorigins.win/get",
		RefreshInterval: Duration{5 * time.Second},
		Language:        "en",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadConfig reads a TOML file on top of the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the app cannot run with.
func (c *Config) Validate() error {
	if c.RefreshInterval.Duration <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %s", c.RefreshInterval)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
