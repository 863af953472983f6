// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Debug       bool     `env:"DEBUG" envDefault:"false"`
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	AppName     string   `env:"APP_NAME" envDefault:"drop-live"`

	// Empty DatabaseURL selects in-memory stores.
	DatabaseURL string `env:"DATABASE_URL"`
	// Empty RedisURL selects the in-process nonce store.
	RedisURL string `env:"REDIS_URL"`

	SolanaRPCURL     string `env:"SOLANA_RPC_URL" envDefault:"https://api.mainnet-beta.solana.com"`
	LaunchpadBaseURL string `env:"LAUNCHPAD_BASE_URL"`
	LaunchpadAPIKey  string `env:"LAUNCHPAD_API_KEY"`
	PrizePoolWallet  string `env:"PRIZE_POOL_WALLET"`

	Session struct {
		TTL           time.Duration `env:"SESSION_TTL" envDefault:"168h"`
		NonceTTL      time.Duration `env:"NONCE_TTL" envDefault:"5m"`
		TouchInterval time.Duration `env:"SESSION_TOUCH_INTERVAL" envDefault:"5m"`
		SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`
		CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"true"`
	}

	Gate struct {
		CacheTTL      time.Duration `env:"BALANCE_CACHE_TTL" envDefault:"15s"`
		QueryTimeout  time.Duration `env:"BALANCE_QUERY_TIMEOUT" envDefault:"5s"`
		TokenDecimals int           `env:"TOKEN_DECIMALS" envDefault:"9"`
	}

	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"20s"`
	MessageMaxLength int           `env:"MESSAGE_MAX_LENGTH" envDefault:"200"`
	ProfanityWords   []string      `env:"PROFANITY_WORDS" envSeparator:","`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings required to serve traffic.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}
	if c.SolanaRPCURL == "" {
		errs = append(errs, errors.New("SOLANA_RPC_URL is required"))
	}
	if c.LaunchpadBaseURL == "" {
		errs = append(errs, errors.New("LAUNCHPAD_BASE_URL is required"))
	}
	if c.PrizePoolWallet == "" {
		errs = append(errs, errors.New("PRIZE_POOL_WALLET is required"))
	}
	if c.Session.TTL <= 0 || c.Session.NonceTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL and NONCE_TTL must be positive"))
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.Gate.CacheTTL < 0 || c.Gate.QueryTimeout <= 0 || c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("BALANCE_CACHE_TTL, BALANCE_QUERY_TIMEOUT and UPSTREAM_TIMEOUT must be positive"))
	}
	if c.Gate.TokenDecimals < 0 || c.Gate.TokenDecimals > 18 {
		errs = append(errs, errors.New("TOKEN_DECIMALS must be between 0 and 18"))
	}
	if c.MessageMaxLength <= 0 {
		errs = append(errs, errors.New("MESSAGE_MAX_LENGTH must be positive"))
	}
	return errors.Join(errs...)
}
