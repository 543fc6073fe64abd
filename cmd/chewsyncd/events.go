package main

import (
	"encoding/json"
	"time"
)

// ============================================================================
// Status events
// ============================================================================
// Every externally observable state change is published as a typed event.
// Events fan out to the websocket status hub and, in verbose runs, to the
// log. The wire form is a flat JSON object with a "type" discriminator and a
// millisecond timestamp, same shape the ctl tool and probe expect.
// ============================================================================

type StatusEvent interface {
	EventType() string
}

type ScanDetectedEvent struct {
	ScanID string  `json:"scan_id"`
	Text   string  `json:"text"`
	Area   float64 `json:"area"`
}

func (ScanDetectedEvent) EventType() string { return "scan_detected" }

type AssetReloadedEvent struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

func (AssetReloadedEvent) EventType() string { return "asset_reloaded" }

type ParametersAppliedEvent struct {
	ID        string `json:"id"`
	Chewiness int    `json:"chewiness"`
	Firmness  int    `json:"firmness"`
	Line      string `json:"line"`
}

func (ParametersAppliedEvent) EventType() string { return "parameters_applied" }

type ControlLineSentEvent struct {
	Line string `json:"line"`
}

func (ControlLineSentEvent) EventType() string { return "control_line_sent" }

type DeviceLineEvent struct {
	Line string `json:"line"`
}

func (DeviceLineEvent) EventType() string { return "device_line" }

type PlaybackStartedEvent struct {
	Seconds float64 `json:"seconds"`
	Frames  int64   `json:"frames"`
}

func (PlaybackStartedEvent) EventType() string { return "playback_started" }

type PlaybackFinishedEvent struct {
	Seconds float64 `json:"seconds"`
}

func (PlaybackFinishedEvent) EventType() string { return "playback_finished" }

type FetchFailedEvent struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

func (FetchFailedEvent) EventType() string { return "fetch_failed" }

// EventSink receives every published status event. The websocket hub is the
// production sink; tests use a recording sink.
type EventSink interface {
	Publish(ev StatusEvent)
}

// nopSink keeps workers unconditional about publishing.
type nopSink struct{}

func (nopSink) Publish(StatusEvent) {}

// MarshalStatusEvent produces the wire envelope for ev.
func MarshalStatusEvent(ev StatusEvent) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	fields["type"] = ev.EventType()
	fields["ts"] = time.Now().UnixMilli()
	return json.Marshal(fields)
}
