package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
environment: test
server:
  port: 9090
  read_timeout: 5s
  write_timeout: 5s
  shutdown_timeout: 10s
store:
  dir: /tmp/sigpull-test
scanner:
  scan_interval: 10m
  refresh_interval: 15s
  coins_per_scan: 5
analysis:
  timeframes: ["1h", "4h"]
  candle_limit: 120
  min_confidence: 65
coingecko:
  base_url: "https://example.test/api/v3"
  timeout: 5s
kafka:
  enabled: false
clickhouse:
  enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Scanner.ScanInterval)
	assert.Equal(t, 15*time.Second, cfg.Scanner.RefreshInterval)
	assert.Equal(t, []string{"1h", "4h"}, cfg.Analysis.Timeframes)
	assert.Equal(t, 65.0, cfg.Analysis.MinConfidence)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing environment", "server:\n  port: 8080\n"},
		{"missing port", "environment: test\n"},
		{"kafka without brokers", "environment: test\nserver:\n  port: 8080\nkafka:\n  enabled: true\n  topic: t\n"},
		{"clickhouse without host", "environment: test\nserver:\n  port: 8080\nclickhouse:\n  enabled: true\n"},
		{"stream without symbols", "environment: test\nserver:\n  port: 8080\nbinance:\n  stream_enabled: true\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STORE_DIR", "/var/lib/sigpull")

	cfg, err := LoadWithEnv(writeConfig(t, testYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "/var/lib/sigpull", cfg.Store.Dir)
}
