package main

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGateScan(t *testing.T) {
	cases := []struct {
		text    string
		area    float64
		minArea float64
		want    bool
	}{
		{"target", 20, 1.0, true},
		{"target", 1.0, 1.0, false}, // gate is strictly greater-than
		{"target", 0.5, 1.0, false},
		{"", 20, 1.0, false},
		{"target", 0, -1, true}, // negative min_area admits zero-area scans
	}
	for _, tc := range cases {
		if got := gateScan(tc.text, tc.area, tc.minArea); got != tc.want {
			t.Errorf("gateScan(%q, %v, %v) = %v, want %v", tc.text, tc.area, tc.minArea, got, tc.want)
		}
	}
}

func TestExecScanner_FullQueueCountsDrop(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	s := &execScanner{
		command: []string{"echo", "gummy-7 50"},
		minArea: 1.0,
		metrics: metrics,
		logger:  testLogger(),
		scans:   make(chan Scan), // no consumer, the send cannot proceed
	}

	if err := s.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}
	if got := testutil.ToFloat64(metrics.ScansDropped); got != 1 {
		t.Errorf("dropped scans = %v, want 1", got)
	}
}

func TestExecScanner_ParseLine(t *testing.T) {
	s := &execScanner{minArea: 1.0, logger: testLogger()}

	cases := []struct {
		line string
		want Scan
		ok   bool
	}{
		{"gummy-7 150.5", Scan{Text: "gummy-7", Area: 150.5}, true},
		{"  gummy-7   150.5  ", Scan{Text: "gummy-7", Area: 150.5}, true},
		{"gummy-7", Scan{}, false},     // no area parses as zero, gated out
		{"gummy-7 n/a", Scan{}, false}, // unparseable area parses as zero
		{"", Scan{}, false},
		{"   ", Scan{}, false},
		{"gummy-7 0.5", Scan{}, false}, // under the gate
	}
	for _, tc := range cases {
		got, ok := s.parseLine(tc.line)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseLine(%q) = %+v, %v; want %+v, %v", tc.line, got, ok, tc.want, tc.ok)
		}
	}
}
