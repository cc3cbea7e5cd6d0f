package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/flagx"
)

// parseFlags applies the server's command-line flags:
//
//	-a string   HTTP bind address (":8000")
//	-d string   PostgreSQL DSN
//	-r string   Redis URL (empty keeps denylist and rate limits in memory)
//	-s string   JWT HMAC secret
//	-k string   API key pepper
//	-e string   environment ("development", "production")
//	-l string   log level
//	-t int      access token validity, minutes
//	-p string   price source URL
//	-b string   S3 bucket for exports
//
// Only these flags are taken from args, so -c/-config and flags owned by
// other layers do not collide.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-r", "-s", "-k", "-e", "-l", "-t", "-p", "-b"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.RedisURL, "r", cfg.RedisURL, "redis URL")
	fs.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "JWT secret")
	fs.StringVar(&cfg.APIKeyPepper, "k", cfg.APIKeyPepper, "API key pepper")
	fs.StringVar(&cfg.Environment, "e", cfg.Environment, "environment")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	accessTokenMinutes := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&cfg.PriceSourceURL, "p", cfg.PriceSourceURL, "price source URL")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 export bucket")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.AccessTokenValidityDuration = time.Duration(*accessTokenMinutes) * time.Minute
		}
	})
	return nil
}
