package main

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestMarshalStatusEvent_Envelope(t *testing.T) {
	data, err := MarshalStatusEvent(ParametersAppliedEvent{
		ID:        "target-1",
		Chewiness: 3,
		Firmness:  8,
		Line:      "50,100,33,70,56",
	})
	if err != nil {
		t.Fatalf("MarshalStatusEvent() error = %v", err)
	}

	if got := gjson.GetBytes(data, "type").String(); got != "parameters_applied" {
		t.Errorf("type = %q", got)
	}
	if got := gjson.GetBytes(data, "id").String(); got != "target-1" {
		t.Errorf("id = %q", got)
	}
	if got := gjson.GetBytes(data, "chewiness").Int(); got != 3 {
		t.Errorf("chewiness = %d", got)
	}
	if got := gjson.GetBytes(data, "line").String(); got != "50,100,33,70,56" {
		t.Errorf("line = %q", got)
	}
	if !gjson.GetBytes(data, "ts").Exists() {
		t.Error("envelope missing ts")
	}
}

func TestMarshalStatusEvent_TypesAreDistinct(t *testing.T) {
	events := []StatusEvent{
		ScanDetectedEvent{},
		AssetReloadedEvent{},
		ParametersAppliedEvent{},
		ControlLineSentEvent{},
		DeviceLineEvent{},
		PlaybackStartedEvent{},
		PlaybackFinishedEvent{},
		FetchFailedEvent{},
	}
	seen := make(map[string]bool)
	for _, ev := range events {
		typ := ev.EventType()
		if seen[typ] {
			t.Errorf("duplicate event type %q", typ)
		}
		seen[typ] = true

		data, err := MarshalStatusEvent(ev)
		if err != nil {
			t.Fatalf("MarshalStatusEvent(%q) error = %v", typ, err)
		}
		if got := gjson.GetBytes(data, "type").String(); got != typ {
			t.Errorf("marshaled type = %q, want %q", got, typ)
		}
	}
}
