package main

import "sync"

// ============================================================================
// Shared coordination state
// ============================================================================
// One mutex-guarded mailbox shared by the fetch worker (producer), the serial
// event worker (reload/param consumer) and the dispatcher (control-line
// consumer). Each method is an atomic step over its own fields only: callers
// must not assume any cross-field ordering beyond what the individual methods
// promise. In particular a reload signal and a control line set for the same
// identification may be observed in either order by the two consumers.
// ============================================================================

// Params is the per-identification parameter snapshot, clamped to 1..10.
type Params struct {
	Chewiness int `json:"chewiness"`
	Firmness  int `json:"firmness"`
}

// SharedState is created once at startup and lives for the process lifetime.
type SharedState struct {
	mu sync.Mutex

	reloadPending bool

	latestID     string
	latestParams Params
	hasParams    bool

	pendingLine ControlLine
	hasLine     bool
}

func NewSharedState() *SharedState {
	return &SharedState{}
}

// SignalReload marks the live asset file as replaced. Only the consumer clears
// it, via ConsumeReload.
func (s *SharedState) SignalReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadPending = true
}

// ConsumeReload atomically reads and clears the reload flag.
func (s *SharedState) ConsumeReload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.reloadPending {
		return false
	}
	s.reloadPending = false
	return true
}

// SetParams stores the latest identification and its clamped parameters.
func (s *SharedState) SetParams(id string, p Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestID = id
	s.latestParams = p
	s.hasParams = true
}

// ParamsSnapshot returns the latest identification and parameters, if any.
// The snapshot is advisory: consumers use it for logging/diagnostics only.
func (s *SharedState) ParamsSnapshot() (string, Params, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestID, s.latestParams, s.hasParams
}

// SetControlLine queues a control line for the dispatcher. At most one line is
// pending: a newer line overwrites an unconsumed older one (last-write-wins).
func (s *SharedState) SetControlLine(l ControlLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingLine = l
	s.hasLine = true
}

// PopControlLine atomically takes and clears the pending control line.
func (s *SharedState) PopControlLine() (ControlLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasLine {
		return ControlLine{}, false
	}
	s.hasLine = false
	return s.pendingLine, true
}
