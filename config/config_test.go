package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ratelimit "github.com/Dzaakk/redis-rate-limiter/limiter"
)

const sampleYAML = `
server:
  addr: ":9090"
  shutdown_timeout: 3s
redis:
  addrs: ["redis-1:6379"]
  db: 2
log:
  level: debug
  format: text
middleware:
  fail_open: true
  key_header: X-Client-ID
policies:
  - id: login
    algorithm: token_bucket
    capacity: 5
    rate: 1
    period: 1m
  - id: feed
    algorithm: sliding_window_counter
    limit: 100
    window: 1m
    sub_window: 10s
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"REDIS_ADDR", "RATELIMIT_REDIS_ADDR", "RATELIMIT_SERVER_ADDR", "RATELIMIT_REDIS_DB", "RATELIMIT_LOG_LEVEL", "RATELIMIT_FAIL_OPEN"} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeFile(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout, "default applied")
	assert.Equal(t, []string{"redis-1:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Middleware.FailOpen)
	assert.Equal(t, "X-Client-ID", cfg.Middleware.KeyHeader)

	require.Len(t, cfg.Policies, 2)
	assert.Equal(t, ratelimit.Policy{
		ID: "login", Algorithm: ratelimit.AlgorithmTokenBucket, Capacity: 5, Rate: 1, Period: time.Minute,
	}, cfg.Policies[0])
	assert.Equal(t, 10*time.Second, cfg.Policies[1].SubWindow)
}

func TestLoad_Default(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Redis.Addrs)
	assert.Len(t, cfg.Policies, len(ratelimit.Algorithms()))
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RATELIMIT_SERVER_ADDR", ":7070")
	t.Setenv("RATELIMIT_REDIS_ADDR", "a:6379, b:6379")
	t.Setenv("RATELIMIT_REDIS_DB", "4")
	t.Setenv("RATELIMIT_LOG_LEVEL", "WARN")
	t.Setenv("RATELIMIT_FAIL_OPEN", "true")

	cfg, err := Load(writeFile(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, []string{"a:6379", "b:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Middleware.FailOpen)
}

func TestLoad_LegacyRedisAddr(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_ADDR", "legacy:6379")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy:6379"}, cfg.Redis.Addrs)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown field",
			content: "server:\n  port: 80\n",
		},
		{
			name:    "bad duration",
			content: "policies:\n  - id: a\n    algorithm: fixed_window\n    limit: 1\n    window: soon\n",
		},
		{
			name:    "unknown algorithm",
			content: "policies:\n  - id: a\n    algorithm: gcra\n",
		},
		{
			name:    "duplicate policy",
			content: "policies:\n  - {id: a, algorithm: fixed_window, limit: 1, window: 1s}\n  - {id: a, algorithm: fixed_window, limit: 1, window: 1s}\n",
		},
		{
			name:    "bad log level",
			content: "log:\n  level: loud\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse([]byte("# nothing configured\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicies, cfg.Policies)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestDefaultPoliciesAreValid(t *testing.T) {
	for _, p := range DefaultPolicies {
		assert.NoError(t, p.Validate(), p.ID)
	}
}
