package main

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIntervalHistory_EmptyAverage(t *testing.T) {
	h := NewIntervalHistory(3)
	if _, ok := h.Average(); ok {
		t.Error("Average() ok = true on empty history")
	}
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}

func TestIntervalHistory_FIFOEviction(t *testing.T) {
	h := NewIntervalHistory(3)
	h.Append(1.0)
	h.Append(2.0)
	h.Append(3.0)
	h.Append(4.0) // evicts 1.0

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}
	samples := h.Samples()
	want := []float64{2.0, 3.0, 4.0}
	for i := range want {
		if !almostEqual(samples[i], want[i]) {
			t.Errorf("samples[%d] = %v, want %v", i, samples[i], want[i])
		}
	}
	if avg, ok := h.Average(); !ok || !almostEqual(avg, 3.0) {
		t.Errorf("Average() = %v, %v; want 3.0, true", avg, ok)
	}
}

func TestIntervalHistory_NegativeClampsToZero(t *testing.T) {
	h := NewIntervalHistory(3)
	h.Append(-1.5)
	if avg, ok := h.Average(); !ok || avg != 0 {
		t.Errorf("Average() = %v, %v; want 0, true", avg, ok)
	}
}

func TestDurationPolicy_IntervalAverage(t *testing.T) {
	p := DurationPolicy{
		Mode:            PolicyIntervalAverage,
		FallbackSeconds: 0.5,
		MinSeconds:      0.05,
		MaxSeconds:      5.0,
	}

	h := NewIntervalHistory(3)
	if got := p.Duration(h); !almostEqual(got, 0.5) {
		t.Errorf("empty history: Duration() = %v, want fallback 0.5", got)
	}

	h.Append(1.0)
	h.Append(2.0)
	if got := p.Duration(h); !almostEqual(got, 1.5) {
		t.Errorf("Duration() = %v, want 1.5", got)
	}
}

func TestDurationPolicy_ClampsBothModes(t *testing.T) {
	h := NewIntervalHistory(3)
	h.Append(100.0)

	avg := DurationPolicy{
		Mode:            PolicyIntervalAverage,
		FallbackSeconds: 0.5,
		MinSeconds:      0.05,
		MaxSeconds:      5.0,
	}
	if got := avg.Duration(h); !almostEqual(got, 5.0) {
		t.Errorf("interval_average clamp high: Duration() = %v, want 5.0", got)
	}

	tiny := NewIntervalHistory(3)
	tiny.Append(0.001)
	if got := avg.Duration(tiny); !almostEqual(got, 0.05) {
		t.Errorf("interval_average clamp low: Duration() = %v, want 0.05", got)
	}

	fixed := DurationPolicy{
		Mode:         PolicyFixed,
		FixedSeconds: 30.0,
		MinSeconds:   0.05,
		MaxSeconds:   5.0,
	}
	if got := fixed.Duration(h); !almostEqual(got, 5.0) {
		t.Errorf("fixed clamp: Duration() = %v, want 5.0", got)
	}
}

func TestDurationPolicy_FixedIgnoresHistory(t *testing.T) {
	p := DurationPolicy{
		Mode:         PolicyFixed,
		FixedSeconds: 1.0,
		MinSeconds:   0.05,
		MaxSeconds:   5.0,
	}
	h := NewIntervalHistory(3)
	h.Append(3.0)
	if got := p.Duration(h); !almostEqual(got, 1.0) {
		t.Errorf("Duration() = %v, want 1.0", got)
	}
}

func TestDurationPolicy_Validate(t *testing.T) {
	good := DurationPolicy{Mode: PolicyIntervalAverage, FallbackSeconds: 0.5, MinSeconds: 0.05, MaxSeconds: 5.0}
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	bad := []DurationPolicy{
		{Mode: "random", MinSeconds: 0.05, MaxSeconds: 5.0},
		{Mode: PolicyFixed, FixedSeconds: 0, MinSeconds: 0.05, MaxSeconds: 5.0},
		{Mode: PolicyIntervalAverage, FallbackSeconds: 0, MinSeconds: 0.05, MaxSeconds: 5.0},
		{Mode: PolicyIntervalAverage, FallbackSeconds: 0.5, MinSeconds: 0, MaxSeconds: 5.0},
		{Mode: PolicyIntervalAverage, FallbackSeconds: 0.5, MinSeconds: 1.0, MaxSeconds: 0.5},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("case %d: Validate() = nil, want error", i)
		}
	}
}
