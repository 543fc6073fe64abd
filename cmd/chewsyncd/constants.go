package main

import "time"

// Parameter scale bounds. Chewiness and firmness are 1..10 integers; anything
// the service sends outside that range is clamped, and garbage coerces to the
// midpoint default.
const (
	scaleMin     = 1
	scaleMax     = 10
	scaleDefault = 5
)

// Playback duration derivation defaults
const (
	defaultIntervalWindow  = 3    // open->close samples kept for the moving average
	defaultFallbackSeconds = 0.5  // used when the history is empty
	defaultMinSeconds      = 0.05 // derived duration clamp (lower)
	defaultMaxSeconds      = 5.0  // derived duration clamp (upper)
	defaultFixedSeconds    = 1.0  // fixed-mode segment length
)

// I/O cadence and recovery tuning
const (
	defaultDispatchPollMS    = 20 // control-line drain interval
	defaultSerialReadTimeout = 500 * time.Millisecond
	defaultSerialBaud        = 115200
	serialReconnectDelay     = 2 * time.Second
	scannerRestartDelay      = 2 * time.Second
	defaultFetchTimeoutMS    = 10000
	shutdownGrace            = 2 * time.Second
	playbackPollInterval     = 5 * time.Millisecond
)

// Scanner gate: decoded regions with an area at or below this are treated as
// spurious zero-confidence reads and dropped.
const defaultScannerMinArea = 1.0

// Area reported for identifications injected over IPC, which carry no scan
// geometry. Comfortably above any sane gate threshold.
const injectedScanArea = 1e6
