package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/metaltracker/internal/flagx"
	"github.com/dmitrijs2005/metaltracker/internal/timex"
)

// JsonConfig is the file form of Config. API keys are never read from
// files.
type JsonConfig struct {
	ServerURL      *string         `json:"server_url"`
	DatabasePath   *string         `json:"database_path"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
