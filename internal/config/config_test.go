package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

const minimal = `
server:
  port: "9090"
  mode: debug
database:
  driver: sqlite
  path: ":memory:"
jwt:
  secret: short
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, LockBackendMemory, cfg.Engine.LockBackend)
	assert.Equal(t, 5, cfg.Engine.MaxCASRetries)
	assert.Equal(t, 50, cfg.Engine.ActivityLogCap)
	assert.Equal(t, "@every 1m", cfg.Engine.ReconcileSpec)
	assert.Equal(t, 10*time.Second, cfg.Engine.LockTTL())
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_MAX_CAS_RETRIES", "9")
	t.Setenv("ASSESS_ENGINE_ENGINE_ACTIVITY_LOG_CAP", "20")

	cfg, err := LoadConfig(writeConfig(t, minimal))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Engine.MaxCASRetries)
	assert.Equal(t, 20, cfg.Engine.ActivityLogCap)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Mode: "debug"},
			RateLimit: RateLimitConfig{MaxRequests: 10, WindowMinutes: 1},
			Engine:    EngineConfig{LockBackend: LockBackendMemory, MaxCASRetries: 3, ActivityLogCap: 50},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"weak secret in release": func(c *Config) { c.Server.Mode = "release"; c.JWT.Secret = "short" },
		"redis lock without redis": func(c *Config) { c.Engine.LockBackend = LockBackendRedis },
		"unknown lock backend":     func(c *Config) { c.Engine.LockBackend = "etcd" },
		"no retries":               func(c *Config) { c.Engine.MaxCASRetries = 0 },
		"no activity log":          func(c *Config) { c.Engine.ActivityLogCap = 0 },
		"no rate limit":            func(c *Config) { c.RateLimit.MaxRequests = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	c := valid()
	c.Engine.LockBackend = LockBackendRedis
	c.Redis.Enabled = true
	assert.Error(t, c.Validate(), "redis locks need a lease")
	c.Engine.LockTTLSeconds = 10
	assert.NoError(t, c.Validate())
}
