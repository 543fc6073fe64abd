package main

import "testing"

func TestSharedState_ReloadConsumeOnce(t *testing.T) {
	s := NewSharedState()

	if s.ConsumeReload() {
		t.Error("ConsumeReload() = true before any signal")
	}

	s.SignalReload()
	s.SignalReload() // signalling twice still yields one consume

	if !s.ConsumeReload() {
		t.Error("ConsumeReload() = false after signal")
	}
	if s.ConsumeReload() {
		t.Error("ConsumeReload() = true on second consume")
	}
}

func TestSharedState_ControlLineLastWriteWins(t *testing.T) {
	s := NewSharedState()

	if _, ok := s.PopControlLine(); ok {
		t.Error("PopControlLine() ok = true on empty state")
	}

	s.SetControlLine(mapParameters(1, 1))
	s.SetControlLine(mapParameters(10, 10))

	line, ok := s.PopControlLine()
	if !ok {
		t.Fatal("PopControlLine() ok = false after set")
	}
	if got, want := line.String(), mapParameters(10, 10).String(); got != want {
		t.Errorf("popped line = %q, want the newer %q", got, want)
	}

	if _, ok := s.PopControlLine(); ok {
		t.Error("PopControlLine() ok = true after pop")
	}
}

func TestSharedState_ParamsSnapshot(t *testing.T) {
	s := NewSharedState()

	if _, _, ok := s.ParamsSnapshot(); ok {
		t.Error("ParamsSnapshot() ok = true before any set")
	}

	s.SetParams("target-a", Params{Chewiness: 3, Firmness: 7})
	s.SetParams("target-b", Params{Chewiness: 8, Firmness: 2})

	id, p, ok := s.ParamsSnapshot()
	if !ok || id != "target-b" || p.Chewiness != 8 || p.Firmness != 2 {
		t.Errorf("ParamsSnapshot() = %q, %+v, %v", id, p, ok)
	}

	// Snapshot does not consume.
	if _, _, ok := s.ParamsSnapshot(); !ok {
		t.Error("ParamsSnapshot() ok = false on second read")
	}
}
