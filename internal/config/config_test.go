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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingDefaultFileGivesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "./hueaction.sqlite", cfg.Database.Path)
	assert.Equal(t, "https://discovery.meethue.com", cfg.Hue.DiscoveryURL)
	assert.Equal(t, "@mr-smith/smith-hue", cfg.Hue.DeviceType)
	assert.Equal(t, 10*time.Second, cfg.Hue.LinkWait.Duration())
	assert.Equal(t, 10.0, cfg.Hue.RateLimitRPS)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, 30*24*time.Hour, cfg.Ledger.Retention())
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Duration())
}

func TestLoad_NegativeDisablesPacingAndPruning(t *testing.T) {
	path := writeConfig(t, `
hue:
  rate_limit_rps: -1
ledger:
  retention_days: -1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, -1.0, cfg.Hue.RateLimitRPS)
	assert.Equal(t, -1, cfg.Ledger.RetentionDays)
	assert.Zero(t, cfg.Ledger.Retention())
}

func TestLoad_ExplicitPacingAndRetention(t *testing.T) {
	path := writeConfig(t, `
hue:
  rate_limit_rps: 2.5
ledger:
  retention_days: 7
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Hue.RateLimitRPS)
	assert.Equal(t, 7*24*time.Hour, cfg.Ledger.Retention())
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileWithExpansion(t *testing.T) {
	t.Setenv("TEST_BRIDGE_IP", "10.0.0.7")
	path := writeConfig(t, `
hue:
  address: http://${TEST_BRIDGE_IP}/api/${TEST_BRIDGE_USER:abc}
  link_wait: 30s
  timeout: 2s
log:
  level: debug
  json: true
server:
  port: 8081
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.7/api/abc", cfg.Hue.Address)
	assert.Equal(t, 30*time.Second, cfg.Hue.LinkWait.Duration())
	assert.Equal(t, 2*time.Second, cfg.Hue.Timeout.Duration())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HUEACTION_ADDRESS", "http://10.0.0.9/api/env")
	t.Setenv("HUEACTION_LOG_LEVEL", "warn")
	t.Setenv("HUEACTION_DB_PATH", "/tmp/env.sqlite")
	t.Setenv("HUEACTION_SERVER_PORT", "7000")
	path := writeConfig(t, `
hue:
  address: http://10.0.0.1/api/file
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.9/api/env", cfg.Hue.Address)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/env.sqlite", cfg.Database.Path)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "hue:\n  link_wait: soon\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_SET", "value")
	assert.Equal(t, "a=value b=fallback c=", expandEnvVars("a=${TEST_SET} b=${TEST_UNSET_VAR:fallback} c=${TEST_UNSET_VAR}"))
}
