package main

import (
	"fmt"
	"sync"
)

// IntervalHistory is a bounded FIFO of the most recent open->close durations
// in seconds. Appending beyond capacity evicts the oldest sample. The serial
// event worker is the only writer; the IPC status command reads it from other
// goroutines, hence the lock.
type IntervalHistory struct {
	mu       sync.Mutex
	samples  []float64
	capacity int
}

func NewIntervalHistory(capacity int) *IntervalHistory {
	if capacity <= 0 {
		capacity = defaultIntervalWindow
	}
	return &IntervalHistory{
		samples:  make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Append records a new interval, evicting the oldest sample when full.
func (h *IntervalHistory) Append(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.samples) == h.capacity {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:len(h.samples)-1]
	}
	h.samples = append(h.samples, seconds)
}

// Average returns the arithmetic mean of the recorded intervals.
// ok is false when the history is empty.
func (h *IntervalHistory) Average() (avg float64, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.samples) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range h.samples {
		sum += s
	}
	return sum / float64(len(h.samples)), true
}

func (h *IntervalHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

// Samples returns a copy for diagnostics.
func (h *IntervalHistory) Samples() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.samples))
	copy(out, h.samples)
	return out
}

// ============================================================================
// Playback duration policy
// ============================================================================

// PolicyMode selects how the playback segment length is derived.
type PolicyMode string

const (
	// PolicyFixed plays a fixed-length segment on every close event and
	// ignores open/close pairing entirely.
	PolicyFixed PolicyMode = "fixed"

	// PolicyIntervalAverage derives the segment length from the moving
	// average of recent open->close intervals.
	PolicyIntervalAverage PolicyMode = "interval_average"
)

// DurationPolicy derives a playback duration from the interval history.
// Both modes go through the same clamp so a misconfigured fixed duration
// cannot exceed the derivation bounds either.
type DurationPolicy struct {
	Mode            PolicyMode
	FixedSeconds    float64
	FallbackSeconds float64
	MinSeconds      float64
	MaxSeconds      float64
}

// Duration returns the clamped playback duration in seconds.
func (p DurationPolicy) Duration(h *IntervalHistory) float64 {
	var d float64
	switch p.Mode {
	case PolicyFixed:
		d = p.FixedSeconds
	default:
		if avg, ok := h.Average(); ok {
			d = avg
		} else {
			d = p.FallbackSeconds
		}
	}
	if d < p.MinSeconds {
		d = p.MinSeconds
	}
	if d > p.MaxSeconds {
		d = p.MaxSeconds
	}
	return d
}

// Validate checks the policy invariants at startup.
func (p DurationPolicy) Validate() error {
	if p.Mode != PolicyFixed && p.Mode != PolicyIntervalAverage {
		return fmt.Errorf("playback mode must be %q or %q", PolicyFixed, PolicyIntervalAverage)
	}
	if p.MinSeconds <= 0 || p.MaxSeconds < p.MinSeconds {
		return fmt.Errorf("playback duration bounds invalid: min=%.3f max=%.3f", p.MinSeconds, p.MaxSeconds)
	}
	if p.Mode == PolicyFixed && p.FixedSeconds <= 0 {
		return fmt.Errorf("playback fixed_seconds must be > 0")
	}
	if p.Mode == PolicyIntervalAverage && p.FallbackSeconds <= 0 {
		return fmt.Errorf("playback fallback_seconds must be > 0")
	}
	return nil
}
