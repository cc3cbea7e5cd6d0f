package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var strongSecret = strings.Repeat("s", MinSecretLength)

// withSecrets returns defaults that pass the secret checks.
func withSecrets() *Config {
	c := &Config{}
	c.LoadDefaults()
	c.JWTSecret, c.APIKeyPepper, c.SessionKey = strongSecret, strongSecret, strongSecret
	return c
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, EnvProduction, c.Environment)
	assert.False(t, c.IsDevelopment())
	assert.Equal(t, ":8000", c.HTTPAddr)
	assert.Equal(t, 60*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 30*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, bcrypt.DefaultCost, c.BcryptCost)
	assert.Equal(t, "https://api.edelmetalle.de/public.json", c.PriceSourceURL)
	assert.Equal(t, 5*time.Minute, c.PriceCacheTTL)
	assert.Equal(t, "20-M", c.AuthRateLimit)
	assert.Empty(t, c.JWTSecret, "secrets must not have compiled-in defaults")
	assert.Empty(t, c.APIKeyPepper)
	assert.Empty(t, c.SessionKey)
}

func TestValidate_ProductionRequiresSecrets(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "short" }},
		{"missing pepper", func(c *Config) { c.APIKeyPepper = "" }},
		{"missing session key", func(c *Config) { c.SessionKey = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Config{}
			c.LoadDefaults()
			c.Environment = EnvProduction
			c.JWTSecret, c.APIKeyPepper, c.SessionKey = strongSecret, strongSecret, strongSecret
			tc.mutate(c)

			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrorValidation))
		})
	}
}

func TestValidate_ProductionWithSecrets(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()
	c.Environment = EnvProduction
	c.JWTSecret, c.APIKeyPepper, c.SessionKey = strongSecret, strongSecret, strongSecret

	require.NoError(t, c.Validate())
	assert.Empty(t, c.GeneratedSecrets)
}

func TestValidate_DefaultsWithoutSecretsFail(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	assert.ErrorIs(t, c.Validate(), common.ErrorValidation)
	assert.Empty(t, c.JWTSecret)
	assert.Empty(t, c.GeneratedSecrets)
}

func TestValidate_DevelopmentGeneratesMissingSecrets(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()
	c.Environment = EnvDevelopment
	c.APIKeyPepper = "dev-pepper"

	require.NoError(t, c.Validate())
	assert.Len(t, c.JWTSecret, 2*MinSecretLength)
	assert.Len(t, c.SessionKey, 2*MinSecretLength)
	assert.Equal(t, "dev-pepper", c.APIKeyPepper, "explicit values are kept even when short")
	assert.ElementsMatch(t, []string{"jwt secret", "session key"}, c.GeneratedSecrets)
}

func TestValidate_Formats(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad rate", func(c *Config) { c.AuthRateLimit = "lots" }},
		{"bad schedule", func(c *Config) { c.SnapshotSchedule = "every day" }},
		{"bad timezone", func(c *Config) { c.SnapshotTimezone = "Mars/Olympus" }},
		{"bcrypt too low", func(c *Config) { c.BcryptCost = 1 }},
		{"zero access ttl", func(c *Config) { c.AccessTokenValidityDuration = 0 }},
		{"negative leeway", func(c *Config) { c.TokenLeeway = -time.Second }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := withSecrets()
			require.NoError(t, c.Validate())
			tc.mutate(c)
			assert.ErrorIs(t, c.Validate(), common.ErrorValidation)
		})
	}
}

func TestValidate_EmptyScheduleDisablesScheduler(t *testing.T) {
	c := withSecrets()
	c.SnapshotSchedule = ""
	assert.NoError(t, c.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"http_addr":    ":9000",
		"database_dsn": "postgres://json",
		"log_level":    "debug",
	})
	t.Setenv("METALTRACKER_DATABASE_DSN", "postgres://env")
	t.Setenv("METALTRACKER_HTTP_ADDR", ":9100")
	t.Setenv("METALTRACKER_ENVIRONMENT", EnvDevelopment)

	cfg, err := load([]string{"-c", path, "-a", ":9200"})
	require.NoError(t, err)

	assert.Equal(t, ":9200", cfg.HTTPAddr, "flags override env")
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN, "env overrides json")
	assert.Equal(t, "debug", cfg.LogLevel, "json overrides defaults")
}

func TestLoad_ProductionWithoutSecretsFails(t *testing.T) {
	t.Setenv("METALTRACKER_ENVIRONMENT", EnvProduction)

	_, err := load(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_UnsetEnvironmentWithoutSecretsFails(t *testing.T) {
	unsetenv(t, "METALTRACKER_ENVIRONMENT", "METALTRACKER_JWT_SECRET",
		"METALTRACKER_API_KEY_PEPPER", "METALTRACKER_SESSION_KEY")

	_, err := load(nil)
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestLoad_DevelopmentOptIn(t *testing.T) {
	t.Setenv("METALTRACKER_ENVIRONMENT", EnvDevelopment)

	cfg, err := load(nil)
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.GeneratedSecrets)
}
