package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the chewsync daemon.
//
// The config file is the primary configuration surface; flags exist for small
// overrides and for environments where a file is awkward. Defaults and
// validation are centralized here so the rest of the code can assume a
// well-formed config.
type Config struct {
	// Identification scanner configuration
	Scanner ScannerConfig `yaml:"scanner"`

	// Remote asset/parameter service configuration
	API APIConfig `yaml:"api"`

	// Serial device configuration
	Serial SerialConfig `yaml:"serial"`

	// Audio asset and playback configuration
	Audio AudioConfig `yaml:"audio"`

	// Playback duration policy
	Playback PlaybackConfig `yaml:"playback"`

	// IPC configuration (chewsync-ctl and scripted injection)
	IPC IPCConfig `yaml:"ipc"`

	// Status websocket / metrics HTTP server
	Status StatusConfig `yaml:"status"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type ScannerConfig struct {
	// Command is the scanner adapter argv. It must print one identification
	// per line to stdout as "<text> <area>". Empty disables the scanner
	// (identifications then only arrive over IPC).
	Command []string `yaml:"command,omitempty"`
	MinArea float64  `yaml:"min_area"`
}

type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
	// DispatchPollMS is the control-line drain interval.
	DispatchPollMS int `yaml:"dispatch_poll_ms"`
}

type AudioConfig struct {
	// AssetPath is where fetched audio is installed and played from.
	AssetPath string `yaml:"asset_path"`
	// TrimCommand optionally post-processes a fetched asset before install.
	// "{in}" and "{out}" placeholders are replaced with temp file paths.
	TrimCommand   []string `yaml:"trim_command,omitempty"`
	TrimTimeoutMS int      `yaml:"trim_timeout_ms,omitempty"`
}

type PlaybackConfig struct {
	Mode            string  `yaml:"mode"` // "interval_average" or "fixed"
	FixedSeconds    float64 `yaml:"fixed_seconds"`
	FallbackSeconds float64 `yaml:"fallback_seconds"`
	MinSeconds      float64 `yaml:"min_seconds"`
	MaxSeconds      float64 `yaml:"max_seconds"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and current CLI defaults.
func DefaultConfig() Config {
	return Config{
		Scanner: ScannerConfig{
			MinArea: defaultScannerMinArea,
		},
		API: APIConfig{
			BaseURL:   "http://127.0.0.1:8001",
			TimeoutMS: defaultFetchTimeoutMS,
		},
		Serial: SerialConfig{
			Device:         "/dev/ttyACM0",
			Baud:           defaultSerialBaud,
			DispatchPollMS: defaultDispatchPollMS,
		},
		Audio: AudioConfig{
			AssetPath: "/tmp/chewsync-asset.wav",
		},
		Playback: PlaybackConfig{
			Mode:            string(PolicyIntervalAverage),
			FixedSeconds:    defaultFixedSeconds,
			FallbackSeconds: defaultFallbackSeconds,
			MinSeconds:      defaultMinSeconds,
			MaxSeconds:      defaultMaxSeconds,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/chewsync.sock",
		},
		Status: StatusConfig{
			Enabled: true,
			Addr:    "127.0.0.1:3002",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies flag values on top of a loaded config. Flags pass
// pointers; an override is only applied when the pointer is non-nil, so a
// flag left at its default does not clobber the file.
type FlagOverrides struct {
	APIBaseURL   *string
	SerialDevice *string
	SerialBaud   *int
	AssetPath    *string
	PlaybackMode *string
	IPCSocket    *string
	StatusAddr   *string
	LogLevel     *string
	LogFormat    *string
}

func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.APIBaseURL != nil {
		cfg.API.BaseURL = *o.APIBaseURL
	}
	if o.SerialDevice != nil {
		cfg.Serial.Device = *o.SerialDevice
	}
	if o.SerialBaud != nil {
		cfg.Serial.Baud = *o.SerialBaud
	}
	if o.AssetPath != nil {
		cfg.Audio.AssetPath = *o.AssetPath
	}
	if o.PlaybackMode != nil {
		cfg.Playback.Mode = *o.PlaybackMode
	}
	if o.IPCSocket != nil {
		cfg.IPC.SocketPath = *o.IPCSocket
	}
	if o.StatusAddr != nil {
		cfg.Status.Addr = *o.StatusAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Scanner
	if c.Scanner.MinArea < 0 {
		return errors.New("scanner.min_area must be >= 0")
	}

	// API
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must not be empty")
	}
	if c.API.TimeoutMS <= 0 {
		return errors.New("api.timeout_ms must be > 0")
	}

	// Serial
	if c.Serial.Device == "" {
		return errors.New("serial.device must not be empty")
	}
	if c.Serial.Baud <= 0 {
		return errors.New("serial.baud must be > 0")
	}
	if c.Serial.DispatchPollMS <= 0 {
		return errors.New("serial.dispatch_poll_ms must be > 0")
	}

	// Audio
	if c.Audio.AssetPath == "" {
		return errors.New("audio.asset_path must not be empty")
	}
	if len(c.Audio.TrimCommand) > 0 && c.Audio.TrimTimeoutMS < 0 {
		return errors.New("audio.trim_timeout_ms must be >= 0")
	}

	// Playback
	if err := c.ToDurationPolicy().Validate(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Status
	if c.Status.Enabled && c.Status.Addr == "" {
		return errors.New("status.enabled is true but status.addr is empty")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return errors.New(`logging.format must be "text" or "json"`)
	}

	return nil
}

// ToDurationPolicy converts the playback section into the internal policy.
func (c *Config) ToDurationPolicy() DurationPolicy {
	return DurationPolicy{
		Mode:            PolicyMode(c.Playback.Mode),
		FixedSeconds:    c.Playback.FixedSeconds,
		FallbackSeconds: c.Playback.FallbackSeconds,
		MinSeconds:      c.Playback.MinSeconds,
		MaxSeconds:      c.Playback.MaxSeconds,
	}
}

// FetchTimeout returns the remote service timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.API.TimeoutMS) * time.Millisecond
}

// TrimTransform builds the optional asset post-processing step, or nil.
func (c *Config) TrimTransform() *TrimTransform {
	if len(c.Audio.TrimCommand) == 0 {
		return nil
	}
	timeout := time.Duration(c.Audio.TrimTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TrimTransform{Command: c.Audio.TrimCommand, Timeout: timeout}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
