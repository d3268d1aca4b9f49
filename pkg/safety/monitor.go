// Package safety pauses actuation when the pose signal degrades.
//
// Losing the face mid-drive must never leave keys stuck down: once the
// signal has been gone longer than the configured delay the monitor forces
// a neutral intent and the actuator releases everything. Resuming requires
// the face to stay detected for a minimum number of consecutive ticks, so a
// single flickery detection cannot yank control back on.
package safety

import (
	"time"

	"github.com/teslashibe/go-facedrive/pkg/control"
)

// State is the monitor's externally visible condition.
type State int

// Monitor states.
const (
	// StateActive passes intent through untouched.
	StateActive State = iota
	// StateSignalLost pauses actuation because the face disappeared.
	StateSignalLost
	// StateManualPause pauses actuation on user command.
	StateManualPause
)

// String renders the state for logs and telemetry.
func (s State) String() string {
	switch s {
	case StateSignalLost:
		return "signal-lost"
	case StateManualPause:
		return "paused"
	default:
		return "active"
	}
}

// Params holds the monitor tunables.
type Params struct {
	// EnableAutoPause turns the signal-loss pause on.
	EnableAutoPause bool
	// PauseDelay is how long the signal may be absent before pausing.
	PauseDelay time.Duration
	// ResumeStableTicks is how many consecutive face-found ticks are
	// required before actuation resumes.
	ResumeStableTicks int
}

// Monitor tracks signal quality across ticks.
type Monitor struct {
	params Params

	state         State
	lastGoodAt    time.Time
	clockStarted  bool
	stableTicks   int
	releaseNeeded bool
}

// New creates a monitor in the active state.
func New(params Params) *Monitor {
	return &Monitor{params: params}
}

// SetParams swaps the tunables without touching pause state.
func (m *Monitor) SetParams(params Params) {
	m.params = params
}

// State returns the current condition.
func (m *Monitor) State() State {
	return m.state
}

// TogglePause flips the manual pause. It reports the resulting state.
// Manual resume still goes through the stability window if the signal is
// currently absent.
func (m *Monitor) TogglePause(now time.Time) State {
	switch m.state {
	case StateManualPause:
		m.state = StateActive
		m.lastGoodAt = now
		m.clockStarted = true
		m.stableTicks = 0
	default:
		m.state = StateManualPause
		m.releaseNeeded = true
	}
	return m.state
}

// Observe consumes this tick's signal quality. faceFound reports whether a
// valid sample with a detected face arrived; now is the tick time.
//
// It returns the resulting state and whether held keys must be released on
// this tick. The release flag fires exactly once per pause, keeping the
// release side effects idempotent.
func (m *Monitor) Observe(faceFound bool, now time.Time) (State, bool) {
	if !m.clockStarted {
		// First tick of the session starts the loss clock even if no face
		// has been seen yet, so a camera that never finds one still pauses.
		m.lastGoodAt = now
		m.clockStarted = true
	}
	if faceFound {
		m.lastGoodAt = now
	}

	switch m.state {
	case StateManualPause:
		// Manual pause holds until explicitly toggled.

	case StateSignalLost:
		if faceFound {
			m.stableTicks++
			if m.stableTicks >= m.params.ResumeStableTicks {
				m.state = StateActive
				m.stableTicks = 0
			}
		} else {
			m.stableTicks = 0
		}

	default: // StateActive
		if m.params.EnableAutoPause && now.Sub(m.lastGoodAt) > m.params.PauseDelay {
			m.state = StateSignalLost
			m.stableTicks = 0
			m.releaseNeeded = true
		}
	}

	release := false
	if m.releaseNeeded && m.state != StateActive {
		release = true
		m.releaseNeeded = false
	}
	return m.state, release
}

// Gate applies the monitor's override: while paused the tick's intent is
// replaced with neutral. This is the single exception to the pipeline's
// strictly downstream data flow.
func (m *Monitor) Gate(intent control.Intent) control.Intent {
	if m.state != StateActive {
		return control.Neutral
	}
	return intent
}
