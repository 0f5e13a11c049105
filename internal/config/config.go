// Package config reads the server's TOML configuration file, the way
// internal/parser/toml reads a schema file: decode into a plain struct
// via BurntSushi/toml, then validate.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level server configuration document.
type Config struct {
	Database Database          `toml:"database"`
	Server   Server            `toml:"server"`
	Auth     map[string]string `toml:"auth"`
	Logging  Logging           `toml:"logging"`
}

// Database holds the connection string for the backing store.
type Database struct {
	DSN string `toml:"dsn"`
}

// Server holds the HTTP listener settings.
type Server struct {
	ListenAddr           string `toml:"listen_addr"`
	AllowAnonymousReads  bool   `toml:"allow_anonymous_reads"`
}

// Logging controls the structured logger (internal/logging).
type Logging struct {
	Level       string `toml:"level"`
	Environment string `toml:"environment"` // "production" or "development"
}

// Load reads and validates the TOML document at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("config: database.dsn is required")
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Environment == "" {
		c.Logging.Environment = "production"
	}
	return nil
}
