package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	assert.Equal(t, DefaultDBName, cfg.DBPath)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Timezone)
	assert.Equal(t, 5, cfg.Alarm.SnoozeMinutes)
	assert.Equal(t, 180, cfg.Alarm.TimeoutSeconds)
	assert.Equal(t, 2000, cfg.Gesture.LightThreshold)
	assert.Equal(t, 5000, cfg.Gesture.DoubleSwipeMs)
	assert.Len(t, cfg.NTP.Servers, 3)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "reminders/", cfg.MQTT.TopicPrefix)
}

func TestLoadOrCreateRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	_, err := LoadOrCreate(path)
	require.NoError(t, err)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadOrCreateReadsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	data := `
db_path = "/var/lib/remindbox/r.db"
timezone = "UTC"

[mqtt]
enabled = true
broker = "tcp://broker.local:1883"

[alarm]
snooze_minutes = 10

[gesture]
light_threshold = 1500
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/remindbox/r.db", cfg.DBPath)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTT.Broker)
	assert.Equal(t, 10, cfg.Alarm.SnoozeMinutes)
	assert.Equal(t, 1500, cfg.Gesture.LightThreshold)
	// Unset sections keep their defaults.
	assert.Equal(t, 180, cfg.Alarm.TimeoutSeconds)
}

func TestLoadOrCreateFixesBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	data := `
db_path = ""

[alarm]
snooze_minutes = 0
timeout_seconds = -5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDBName, cfg.DBPath)
	assert.Equal(t, 5, cfg.Alarm.SnoozeMinutes)
	assert.Equal(t, 180, cfg.Alarm.TimeoutSeconds)
}

func TestRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o644))

	_, err := LoadOrCreate(path)
	assert.Error(t, err)
}
