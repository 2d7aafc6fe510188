package main

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
	path := filepath.Join(t.TempDir(), "scoreboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, defaultConfig(), cfg)
	assert.Equal(t, driverMemory, cfg.Store.Driver)
	assert.Equal(t, int64(60), cfg.Timer.DefaultDurationSec)
	assert.Equal(t, "Unknown", cfg.Match.DefaultName)
	assert.Zero(t, cfg.WS.ReadTimeout)
}

func TestLoadConfig_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
addr: ":9000"
log_level: debug
timer:
  default_duration_sec: 120
match:
  default_name: Player
  persist_timeout: 5s
store:
  driver: sqlite
  sqlite_path: /tmp/matches.db
ws:
  ping_interval: 15s
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(120), cfg.Timer.DefaultDurationSec)
	assert.Equal(t, "Player", cfg.Match.DefaultName)
	assert.Equal(t, 5*time.Second, cfg.Match.PersistTimeout)
	assert.Equal(t, driverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/matches.db", cfg.Store.SQLitePath)
	assert.Equal(t, 15*time.Second, cfg.WS.PingInterval)
	// untouched keys keep their defaults
	assert.Equal(t, defaultConfig().WS.WriteTimeout, cfg.WS.WriteTimeout)
}

func TestLoadConfig_EnvironmentWins(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: sqlite\n")
	t.Setenv("SCOREBOARD_STORE_DRIVER", "memory")
	t.Setenv("SCOREBOARD_TIMER_DEFAULT_DURATION_SEC", "90")
	t.Setenv("SCOREBOARD_EVENTS_NATS_URL", "nats://localhost:4222")

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, driverMemory, cfg.Store.Driver)
	assert.Equal(t, int64(90), cfg.Timer.DefaultDurationSec)
	assert.Equal(t, "nats://localhost:4222", cfg.jetStreamConfig().URL)
}

func TestLoadConfig_PortFallback(t *testing.T) {
	t.Setenv("PORT", "3000")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr)

	t.Setenv("SCOREBOARD_ADDR", "127.0.0.1:4000")
	cfg, err = loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4000", cfg.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "unknown driver", body: "store:\n  driver: mongo\n"},
		{name: "sqlite without path", body: "store:\n  driver: sqlite\n  sqlite_path: \"\"\n"},
		{name: "zero duration", body: "timer:\n  default_duration_sec: 0\n"},
		{name: "negative persist timeout", body: "match:\n  persist_timeout: -1s\n"},
		{name: "bad log level", body: "log_level: loud\n"},
		{name: "zero ping interval", body: "ws:\n  ping_interval: 0s\n"},
		{name: "malformed yaml", body: "store: [\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Projections(t *testing.T) {
	cfg := defaultConfig()
	cfg.WS.SendBufferSize = 8
	cfg.Match.PersistTimeout = time.Second

	assert.Equal(t, 8, cfg.connectionConfig().SendBufferSize)
	assert.Equal(t, time.Second, cfg.sessionConfig().PersistTimeout)
	assert.Equal(t, "SCOREBOARD_EVENTS", cfg.jetStreamConfig().StreamName)
}
