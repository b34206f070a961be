package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageFile, cfg.Storage.Backend)
	assert.Equal(t, LockLocal, cfg.Lock.Backend)
	assert.Equal(t, 3*time.Second, cfg.Lock.Wait)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, int64(1), cfg.IDs.Node)
	assert.Equal(t, 20, cfg.Redis.PoolSize)
	assert.Equal(t, time.Second, cfg.Redis.ReadTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOCK_WAIT", "500ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Backend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.Lock.Wait)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{Backend: StorageFile},
			Lock:    LockConfig{Backend: LockLocal},
			Auth:    AuthConfig{JWTSecret: "secret"},
			IDs:     IDConfig{Node: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "sqlite" }, true},
		{"redis lock without redis", func(c *Config) { c.Lock.Backend = LockRedis }, true},
		{"redis lock with redis", func(c *Config) { c.Lock.Backend = LockRedis; c.Redis.Enabled = true }, false},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"node out of range", func(c *Config) { c.IDs.Node = 1024 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
