// Package config loads settings of the Metal Tracker terminal client.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A JSON file named by -c / -config.
//  3. METALTRACKER_* environment variables.
//  4. Command-line flags.
//
// Flags must precede the command; everything after the first positional
// argument is returned to the caller untouched.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/filex"
)

type Config struct {
	ServerURL      string        `env:"SERVER_URL"`
	DatabasePath   string        `env:"CLIENT_DB"`
	APIKey         string        `env:"API_KEY"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8000"
	c.DatabasePath = filex.UserDataPath("metaltracker", "client.db")
	c.RequestTimeout = 15 * time.Second
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("server url must start with http:// or https://, got %q", c.ServerURL)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

// LoadConfig builds a Config from args (without the program name) and the
// environment. It returns the positional arguments that follow the flags.
func LoadConfig(args []string) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, nil, err
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}
