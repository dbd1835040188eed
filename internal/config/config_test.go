package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kakeibolab/kakeibo-sync/internal/common"
)

// resetViper isolates each test from the global Viper state. Tests here must
// not run in parallel for the same reason.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)
	t.Setenv("KAKEIBO_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.StaleAfter)
	assert.Equal(t, 30*time.Minute, cfg.Cache.EvictAfter)
	assert.NotEmpty(t, cfg.Cache.SnapshotPath)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
}

func TestLoad_ViperWinsOverEnvironment(t *testing.T) {
	resetViper(t)
	t.Setenv("KAKEIBO_BASE_URL", "https://env.example/api")
	viper.Set("api.base_url", "https://configured.example/api")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://configured.example/api", cfg.API.BaseURL)
}

func TestLoad_EnvironmentFallback(t *testing.T) {
	resetViper(t)
	t.Setenv("KAKEIBO_BASE_URL", "https://env.example/api")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example/api", cfg.API.BaseURL)
}

func TestLoad_RetrySection(t *testing.T) {
	resetViper(t)
	t.Setenv("KAKEIBO_BASE_URL", "")
	viper.Set("retry.max_attempts", 6)
	viper.Set("retry.initial_delay", "500ms")
	viper.Set("retry.max_delay", "10s")
	viper.Set("retry.multiplier", 1.5)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, common.RetryOptions{
		MaxAttempts:  6,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   1.5,
	}, cfg.RetryOptions())
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		set     map[string]any
		name    string
		wantErr error
	}{
		{
			name:    "relative base url",
			set:     map[string]any{"api.base_url": "localhost:3000/api"},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name: "evict window inside stale window",
			set: map[string]any{
				"cache.stale_after": "10m",
				"cache.evict_after": "5m",
			},
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			t.Setenv("KAKEIBO_BASE_URL", "")
			for k, v := range tt.set {
				viper.Set(k, v)
			}

			_, err := Load()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	require.NoError(t, valid.Validate())

	tests := []struct {
		mutate  func(*Config)
		wantErr error
		name    string
	}{
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.API.Timeout = 0 },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "zero stale window",
			mutate:  func(c *Config) { c.Cache.StaleAfter = 0 },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "no attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "shrinking backoff",
			mutate:  func(c *Config) { c.Retry.Multiplier = 0.5 },
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KSYNC_TEST_DIR", "/var/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "bare tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/ksync/cache.db", want: filepath.Join(home, "ksync", "cache.db")},
		{name: "env var", in: "$KSYNC_TEST_DIR/cache.db", want: "/var/data/cache.db"},
		{name: "plain path", in: "/tmp/cache.db", want: "/tmp/cache.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
