package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://127.0.0.1:8001", cfg.API.BaseURL)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Device)
	assert.Equal(t, string(PolicyIntervalAverage), cfg.Playback.Mode)
	assert.Equal(t, "/tmp/chewsync.sock", cfg.IPC.SocketPath)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigFile_MergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
serial:
  device: /dev/ttyUSB3
playback:
  mode: fixed
  fixed_seconds: 2.5
logging:
  level: debug
  format: json
`)

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/dev/ttyUSB3", cfg.Serial.Device)
	assert.Equal(t, defaultSerialBaud, cfg.Serial.Baud) // untouched default
	assert.Equal(t, string(PolicyFixed), cfg.Playback.Mode)
	assert.Equal(t, 2.5, cfg.Playback.FixedSeconds)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigFile_RejectsUnknownFields(t *testing.T) {
	path := writeConfigFile(t, `
serial:
  devcie: /dev/ttyUSB3
`)
	_, err := LoadConfigFile(path)
	require.Error(t, err)
}

func TestLoadConfigFile_RejectsTrailingDocument(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: info
---
logging:
  level: debug
`)
	_, err := LoadConfigFile(path)
	require.Error(t, err)
}

func TestFlagOverrides_ApplyOnlySetFields(t *testing.T) {
	cfg := DefaultConfig()
	device := "/dev/ttyS9"
	mode := string(PolicyFixed)

	FlagOverrides{
		SerialDevice: &device,
		PlaybackMode: &mode,
	}.Apply(&cfg)

	assert.Equal(t, "/dev/ttyS9", cfg.Serial.Device)
	assert.Equal(t, string(PolicyFixed), cfg.Playback.Mode)
	assert.Equal(t, "http://127.0.0.1:8001", cfg.API.BaseURL) // untouched
}

func TestConfigValidate_CatchesBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"zero timeout", func(c *Config) { c.API.TimeoutMS = 0 }},
		{"empty serial device", func(c *Config) { c.Serial.Device = "" }},
		{"zero baud", func(c *Config) { c.Serial.Baud = 0 }},
		{"zero dispatch poll", func(c *Config) { c.Serial.DispatchPollMS = 0 }},
		{"empty asset path", func(c *Config) { c.Audio.AssetPath = "" }},
		{"bad playback mode", func(c *Config) { c.Playback.Mode = "sometimes" }},
		{"inverted duration bounds", func(c *Config) { c.Playback.MinSeconds = 9; c.Playback.MaxSeconds = 1 }},
		{"empty ipc socket", func(c *Config) { c.IPC.SocketPath = "" }},
		{"status enabled without addr", func(c *Config) { c.Status.Addr = "" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_TrimTransform(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.TrimTransform())

	cfg.Audio.TrimCommand = []string{"ffmpeg", "-i", "{in}", "{out}"}
	trim := cfg.TrimTransform()
	require.NotNil(t, trim)
	assert.Equal(t, cfg.Audio.TrimCommand, trim.Command)
	assert.Positive(t, trim.Timeout)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x.yaml"), ExpandPath("~/x.yaml"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/etc/chewsync.yaml", ExpandPath("/etc/chewsync.yaml"))
	assert.Equal(t, "", ExpandPath(""))
}
