package config

import (
	"flag"
	"io"
)

// parseFlags applies the client's flags and returns the arguments after
// them:
//
//	-s string        server base URL
//	-d string        local SQLite file holding the session
//	-api-key string  API key sent instead of the stored session token
//	-timeout dur     per-request timeout
//
// -c / -config are accepted here only so they do not end flag parsing; the
// file itself is read by parseJson.
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "server URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "request timeout")
	var ignored string
	fs.StringVar(&ignored, "c", "", "config file")
	fs.StringVar(&ignored, "config", "", "config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
