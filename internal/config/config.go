// Package config loads client configuration from Viper and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/kakeibolab/kakeibo-sync/internal/common"
	"github.com/kakeibolab/kakeibo-sync/internal/query"
)

// Config carries everything the client needs to reach a kakeibo server and
// run its cache.
type Config struct {
	API   API
	Cache Cache
	Retry Retry
}

// API configures the HTTP client.
type API struct {
	BaseURL string
	Timeout time.Duration
}

// Cache configures the in-memory store and its on-disk snapshot.
type Cache struct {
	SnapshotPath string
	StaleAfter   time.Duration
	EvictAfter   time.Duration
}

// Retry configures backoff for retryable fetch failures.
type Retry struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:3000/api",
			Timeout: 10 * time.Second,
		},
		Cache: Cache{
			SnapshotPath: DefaultSnapshotPath(),
			StaleAfter:   5 * time.Minute,
			EvictAfter:   30 * time.Minute,
		},
		Retry: Retry{
			InitialDelay: query.DefaultRetryOptions.InitialDelay,
			MaxDelay:     query.DefaultRetryOptions.MaxDelay,
			Multiplier:   query.DefaultRetryOptions.Multiplier,
			MaxAttempts:  query.DefaultRetryOptions.MaxAttempts,
		},
	}
}

// Load assembles configuration from Viper and environment variables.
// It follows this precedence:
// 1. Viper configuration (from config file or KSYNC_ env vars)
// 2. Direct environment variables (KAKEIBO_*)
// 3. Default values
func Load() (*Config, error) {
	cfg := Default()

	// Load from Viper first
	if v := viper.GetString("api.base_url"); v != "" {
		cfg.API.BaseURL = v
	} else if v := os.Getenv("KAKEIBO_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := viper.GetDuration("api.timeout"); v > 0 {
		cfg.API.Timeout = v
	}

	if v := viper.GetString("cache.snapshot_path"); v != "" {
		cfg.Cache.SnapshotPath = ExpandPath(v)
	}
	if v := viper.GetDuration("cache.stale_after"); v > 0 {
		cfg.Cache.StaleAfter = v
	}
	if v := viper.GetDuration("cache.evict_after"); v > 0 {
		cfg.Cache.EvictAfter = v
	}

	if v := viper.GetInt("retry.max_attempts"); v > 0 {
		cfg.Retry.MaxAttempts = v
	}
	if v := viper.GetDuration("retry.initial_delay"); v > 0 {
		cfg.Retry.InitialDelay = v
	}
	if v := viper.GetDuration("retry.max_delay"); v > 0 {
		cfg.Retry.MaxDelay = v
	}
	if v := viper.GetFloat64("retry.multiplier"); v > 0 {
		cfg.Retry.Multiplier = v
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the assembled configuration for values the client cannot
// run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url", common.ErrMissingConfig)
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api.base_url %q is not an absolute URL", common.ErrInvalidConfig, c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("%w: api.timeout must be positive", common.ErrInvalidConfig)
	}
	if c.Cache.StaleAfter <= 0 {
		return fmt.Errorf("%w: cache.stale_after must be positive", common.ErrInvalidConfig)
	}
	if c.Cache.EvictAfter <= c.Cache.StaleAfter {
		return fmt.Errorf("%w: cache.evict_after must exceed cache.stale_after", common.ErrInvalidConfig)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("%w: retry.multiplier must be at least 1", common.ErrInvalidConfig)
	}
	return nil
}

// RetryOptions converts the retry section into the form the query layer
// accepts.
func (c *Config) RetryOptions() common.RetryOptions {
	return common.RetryOptions{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: c.Retry.InitialDelay,
		MaxDelay:     c.Retry.MaxDelay,
		Multiplier:   c.Retry.Multiplier,
	}
}
