package timer

import (
	"github.com/jonboulle/clockwork"
)

// DefaultDurationSec is the countdown length used when nothing else was configured
const DefaultDurationSec int64 = 60

// Snapshot type tags. The tag names the request that produced the state.
const (
	TagSync  = "timer-sync"
	TagStart = "timer-start"
	TagPause = "timer-pause"
	TagReset = "timer-reset"
)

// Phase is the active phase of the countdown
type Phase int

const (
	PhaseReset Phase = iota
	PhaseRunning
	PhasePaused
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	default:
		return "reset"
	}
}

// State is the full timer snapshot sent to clients.
// Times are epoch milliseconds, Duration is seconds.
type State struct {
	Type                string `json:"type"`
	IsRunning           bool   `json:"isRunning"`
	StartTime           int64  `json:"startTime"`
	ElapsedTime         int64  `json:"elapsedTime"`
	Duration            int64  `json:"duration"`
	PausedTime          int64  `json:"pausedTime"`
	PausedTimeRemaining int64  `json:"pausedTimeRemaining"`
}

// StartOptions carries the optional client-supplied fields of a start request
type StartOptions struct {
	Duration    *int64
	StartTime   *int64
	ElapsedTime *int64
}

// PauseOptions carries the optional client-supplied fields of a pause request
type PauseOptions struct {
	PausedTime          *int64
	PausedTimeRemaining *int64
}

// Machine is the countdown state machine. Values from clients are taken verbatim;
// there is no cross-client authority check.
// It is not safe for concurrent use; the owning session serializes access.
type Machine struct {
	clock clockwork.Clock
	phase Phase
	state State
}

// NewMachine creates a timer in the Reset phase with the given default duration
func NewMachine(clock clockwork.Clock, defaultDurationSec int64) *Machine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if defaultDurationSec <= 0 {
		defaultDurationSec = DefaultDurationSec
	}
	return &Machine{
		clock: clock,
		phase: PhaseReset,
		state: State{
			Type:                TagSync,
			Duration:            defaultDurationSec,
			PausedTime:          defaultDurationSec * 1000,
			PausedTimeRemaining: defaultDurationSec * 1000,
		},
	}
}

// Phase returns the active phase
func (m *Machine) Phase() Phase {
	return m.phase
}

// Snapshot returns the current state
func (m *Machine) Snapshot() State {
	return m.state
}

// Start moves to Running from any phase
func (m *Machine) Start(opts StartOptions) State {
	duration := m.state.Duration
	if opts.Duration != nil {
		duration = *opts.Duration
	}
	startTime := m.nowMillis()
	if opts.StartTime != nil {
		startTime = *opts.StartTime
	}
	var elapsed int64
	if opts.ElapsedTime != nil {
		elapsed = *opts.ElapsedTime
	}

	m.phase = PhaseRunning
	m.state = State{
		Type:        TagStart,
		IsRunning:   true,
		StartTime:   startTime,
		ElapsedTime: elapsed,
		Duration:    duration,
	}
	return m.state
}

// Pause moves to Paused from any phase. The remaining time is taken from the
// explicit pausedTime, then pausedTimeRemaining, then derived from the recorded
// start time, and finally falls back to the full duration.
func (m *Machine) Pause(opts PauseOptions) State {
	var remaining int64
	switch {
	case opts.PausedTime != nil:
		remaining = *opts.PausedTime
	case opts.PausedTimeRemaining != nil:
		remaining = *opts.PausedTimeRemaining
	case m.state.StartTime > 0:
		elapsed := m.nowMillis() - m.state.StartTime
		remaining = max(0, m.state.Duration*1000-elapsed)
	default:
		remaining = m.state.Duration * 1000
	}

	m.phase = PhasePaused
	m.state.Type = TagPause
	m.state.IsRunning = false
	m.state.PausedTime = remaining
	m.state.PausedTimeRemaining = remaining
	return m.state
}

// Reset moves to Reset from any phase and replaces the prior state entirely
func (m *Machine) Reset(durationSec *int64) State {
	duration := m.state.Duration
	if durationSec != nil {
		duration = *durationSec
	}

	m.phase = PhaseReset
	m.state = State{
		Type:                TagReset,
		Duration:            duration,
		PausedTime:          duration * 1000,
		PausedTimeRemaining: duration * 1000,
	}
	return m.state
}

func (m *Machine) nowMillis() int64 {
	return m.clock.Now().UnixMilli()
}
