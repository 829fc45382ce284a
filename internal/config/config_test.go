package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
server:
  host: "0.0.0.0"
  port: 18090

database:
  dsn: "host=localhost user=mixpool password=mixpool dbname=mixpool port=5432 sslmode=disable"
  driver: "postgres"

storage:
  mode: "postgres"

nats:
  url: "nats://localhost:4222"
  timeout: 5
  reconnect_wait: 2
  max_reconnects: -1
  enable_jetstream: true

mixer:
  scheme: "secret_reveal"
  minDelay: "24h"
  denominations:
    - "1000000000000000000000000"
    - "10000000000000000000000000"
  autoInit: true
  owner: "0x6f3995e2e40ca58adcbd47a2edad192e43d98638"
  feeBasisPoints: 75

settlement:
  baseUrl: "http://localhost:18091"
  timeout: 30
  interval: 15
  batchSize: 50

cors:
  allowedOrigins:
    - "https://pool.example.org"
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTestConfig(t, testConfigYAML)
	require.NoError(t, LoadConfig(path))

	assert.Equal(t, 18090, AppConfig.Server.Port)
	assert.Equal(t, "postgres", AppConfig.Storage.Mode)
	assert.Equal(t, "secret_reveal", AppConfig.Mixer.Scheme)
	assert.Equal(t, []string{"1000000000000000000000000", "10000000000000000000000000"}, AppConfig.Mixer.Denominations)
	assert.True(t, AppConfig.Mixer.AutoInit)
	assert.Equal(t, "0x6f3995e2e40ca58adcbd47a2edad192e43d98638", AppConfig.Mixer.Owner)
	assert.Equal(t, uint16(75), AppConfig.Mixer.FeeBasisPoints)
	assert.True(t, AppConfig.NATS.EnableJetStream)
	assert.Equal(t, []string{"https://pool.example.org"}, AppConfig.CORS.AllowedOrigins)

	delay, err := AppConfig.Mixer.ParseMinDelay()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, delay)
}

func TestLoadConfigEnvOverridesWin(t *testing.T) {
	t.Setenv("SERVER_PORT", "19000")
	t.Setenv("STORAGE_MODE", "memory")
	t.Setenv("MIXER_SCHEME", "nullifier_proof")
	t.Setenv("MIXER_MIN_DELAY", "1h")
	t.Setenv("MIXER_DENOMINATIONS", " 1000000000000000000000000 ,2000000000000000000000000")
	t.Setenv("MIXER_AUTO_INIT", "false")
	t.Setenv("MIXER_FEE_BASIS_POINTS", "250")
	t.Setenv("SETTLEMENT_BASE_URL", "http://settlement:9999")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.org, https://b.example.org")

	path := writeTestConfig(t, testConfigYAML)
	require.NoError(t, LoadConfig(path))

	assert.Equal(t, 19000, AppConfig.Server.Port)
	assert.Equal(t, "memory", AppConfig.Storage.Mode)
	assert.Equal(t, "nullifier_proof", AppConfig.Mixer.Scheme)
	assert.Equal(t, "1h", AppConfig.Mixer.MinDelay)
	assert.Equal(t, []string{"1000000000000000000000000", "2000000000000000000000000"}, AppConfig.Mixer.Denominations)
	assert.False(t, AppConfig.Mixer.AutoInit)
	assert.Equal(t, uint16(250), AppConfig.Mixer.FeeBasisPoints)
	assert.Equal(t, "http://settlement:9999", AppConfig.Settlement.BaseURL)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, AppConfig.CORS.AllowedOrigins)
	assert.Equal(t, "http://settlement:9999", GetSettlementURL())
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTestConfig(t, "server:\n  host: \"0.0.0.0\"\n")
	require.NoError(t, LoadConfig(path))

	assert.Equal(t, 18090, AppConfig.Server.Port)
	assert.Equal(t, "postgres", AppConfig.Storage.Mode)
	assert.Equal(t, "nullifier_proof", AppConfig.Mixer.Scheme)
	assert.Equal(t, "24h", AppConfig.Mixer.MinDelay)
	assert.Equal(t, 50, AppConfig.Settlement.BatchSize)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	path := writeTestConfig(t, "storage:\n  mode: \"redis\"\n")
	assert.Error(t, LoadConfig(path))

	path = writeTestConfig(t, "mixer:\n  minDelay: \"soon\"\n")
	assert.Error(t, LoadConfig(path))

	path = writeTestConfig(t, "mixer:\n  autoInit: true\n")
	assert.Error(t, LoadConfig(path))

	assert.Error(t, LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")))
}
