// Package config loads settings for the fluentive binaries from the
// environment, with an optional .env file for local development. All
// variables carry the FLUENTIVE_ prefix.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds the settings shared by the CLI and the devserver binary.
type Config struct {
	v *viper.Viper
}

// Load builds a Config from defaults, an optional .env file and the
// FLUENTIVE_ environment.
func Load(logger zerolog.Logger) *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("baseURL", "http://localhost:8080")
	v.SetDefault("email", "")
	v.SetDefault("password", "")
	v.SetDefault("tokenFile", defaultTokenFile())
	v.SetDefault("redisAddr", "")
	v.SetDefault("httpTimeout", 30*time.Second)

	v.SetDefault("port", "8080")
	v.SetDefault("jwtSecret", "fluentive-dev-secret")
	v.SetDefault("accessTokenTTL", 15*time.Minute)
	v.SetDefault("refreshTokenTTL", 30*24*time.Hour)

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			logger.Warn().Err(err).Msg("could not load .env")
		}
	}

	v.SetEnvPrefix("FLUENTIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// BaseURL is the platform API origin.
func (c *Config) BaseURL() string { return strings.TrimRight(c.v.GetString("baseURL"), "/") }

// Email and Password are the CLI login credentials.
func (c *Config) Email() string    { return c.v.GetString("email") }
func (c *Config) Password() string { return c.v.GetString("password") }

// TokenFile is where the CLI persists its access token between runs.
func (c *Config) TokenFile() string { return c.v.GetString("tokenFile") }

// RedisAddr enables cross-process session broadcast when non-empty.
func (c *Config) RedisAddr() string { return c.v.GetString("redisAddr") }

// HTTPTimeout bounds each CLI request.
func (c *Config) HTTPTimeout() time.Duration { return c.v.GetDuration("httpTimeout") }

// Port is the devserver listen port, without a colon.
func (c *Config) Port() string { return strings.TrimPrefix(c.v.GetString("port"), ":") }

// JWTSecret signs devserver access tokens.
func (c *Config) JWTSecret() string { return c.v.GetString("jwtSecret") }

// AccessTokenTTL and RefreshTokenTTL set the devserver token lifetimes.
func (c *Config) AccessTokenTTL() time.Duration  { return c.v.GetDuration("accessTokenTTL") }
func (c *Config) RefreshTokenTTL() time.Duration { return c.v.GetDuration("refreshTokenTTL") }

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fluentive-token"
	}
	return home + "/.fluentive/token"
}
