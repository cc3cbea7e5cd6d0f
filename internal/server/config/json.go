package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/flagx"
	"github.com/dmitrijs2005/metaltracker/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "5m" or integer
// nanoseconds. Only keys present in the file override the current values.
type JsonConfig struct {
	Environment                  *string         `json:"environment"`
	LogLevel                     *string         `json:"log_level"`
	HTTPAddr                     *string         `json:"http_addr"`
	ShutdownTimeout              *timex.Duration `json:"shutdown_timeout"`
	FrontendURL                  *string         `json:"frontend_url"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	RedisURL                     *string         `json:"redis_url"`
	JWTSecret                    *string         `json:"jwt_secret"`
	APIKeyPepper                 *string         `json:"api_key_pepper"`
	SessionKey                   *string         `json:"session_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	TokenLeeway                  *timex.Duration `json:"token_leeway"`
	BcryptCost                   *int            `json:"bcrypt_cost"`
	AuthRateLimit                *string         `json:"auth_rate_limit"`
	TrustForwardHeader           *bool           `json:"trust_forward_header"`
	GoogleClientID               *string         `json:"google_client_id"`
	GoogleClientSecret           *string         `json:"google_client_secret"`
	GoogleRedirectURL            *string         `json:"google_redirect_url"`
	PriceSourceURL               *string         `json:"price_source_url"`
	PriceCacheTTL                *timex.Duration `json:"price_cache_ttl"`
	PriceFetchTimeout            *timex.Duration `json:"price_fetch_timeout"`
	SnapshotSchedule             *string         `json:"snapshot_schedule"`
	SnapshotTimezone             *string         `json:"snapshot_timezone"`
	S3AccessKey                  *string         `json:"s3_access_key"`
	S3SecretKey                  *string         `json:"s3_secret_key"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	ExportURLTTL                 *timex.Duration `json:"export_url_ttl"`
}

// parseJson overlays the file named by -c/-config in args. No flag means no
// file; an unreadable or invalid file is an error.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	c.apply(cfg)
	return nil
}

func (c *JsonConfig) apply(cfg *Config) {
	setString(&cfg.Environment, c.Environment)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setDuration(&cfg.ShutdownTimeout, c.ShutdownTimeout)
	setString(&cfg.FrontendURL, c.FrontendURL)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.RedisURL, c.RedisURL)
	setString(&cfg.JWTSecret, c.JWTSecret)
	setString(&cfg.APIKeyPepper, c.APIKeyPepper)
	setString(&cfg.SessionKey, c.SessionKey)
	setDuration(&cfg.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&cfg.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&cfg.TokenLeeway, c.TokenLeeway)
	if c.BcryptCost != nil {
		cfg.BcryptCost = *c.BcryptCost
	}
	setString(&cfg.AuthRateLimit, c.AuthRateLimit)
	if c.TrustForwardHeader != nil {
		cfg.TrustForwardHeader = *c.TrustForwardHeader
	}
	setString(&cfg.GoogleClientID, c.GoogleClientID)
	setString(&cfg.GoogleClientSecret, c.GoogleClientSecret)
	setString(&cfg.GoogleRedirectURL, c.GoogleRedirectURL)
	setString(&cfg.PriceSourceURL, c.PriceSourceURL)
	setDuration(&cfg.PriceCacheTTL, c.PriceCacheTTL)
	setDuration(&cfg.PriceFetchTimeout, c.PriceFetchTimeout)
	setString(&cfg.SnapshotSchedule, c.SnapshotSchedule)
	setString(&cfg.SnapshotTimezone, c.SnapshotTimezone)
	setString(&cfg.S3AccessKey, c.S3AccessKey)
	setString(&cfg.S3SecretKey, c.S3SecretKey)
	setString(&cfg.S3Bucket, c.S3Bucket)
	setString(&cfg.S3Region, c.S3Region)
	setString(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&cfg.ExportURLTTL, c.ExportURLTTL)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
