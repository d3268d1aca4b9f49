package actuate

import (
	"math"
	"time"

	"github.com/teslashibe/go-facedrive/pkg/control"
)

// CruiseMode selects how the forward key is held.
type CruiseMode int

// Cruise modes.
const (
	// CruiseContinuous holds the forward key steadily once engaged,
	// ignoring small throttle fluctuations.
	CruiseContinuous CruiseMode = iota
	// CruisePulsed re-emits short presses with a duty cycle proportional
	// to throttle, for games with gradual response curves.
	CruisePulsed
)

// ParseCruiseMode maps a config string to a CruiseMode.
func ParseCruiseMode(s string) (CruiseMode, bool) {
	switch s {
	case "continuous":
		return CruiseContinuous, true
	case "pulsed":
		return CruisePulsed, true
	}
	return CruiseContinuous, false
}

// Bindings maps logical controls to physical key identifiers.
type Bindings struct {
	Forward  string
	Backward string
	Left     string
	Right    string
}

// Params holds the actuator tunables.
type Params struct {
	// Activation and Release are the intent magnitudes at which a key
	// engages and disengages. Release must sit below Activation; the gap
	// is deliberate hysteresis against toggling near a boundary.
	Activation float64
	Release    float64

	// PulsedSteering alternates the steering key with a duty cycle
	// proportional to intent magnitude, emulating analog steering on a
	// digital key. At full magnitude the key is held continuously.
	PulsedSteering  bool
	PulseBasePeriod time.Duration

	CruiseMode   CruiseMode
	CruisePeriod time.Duration

	Bindings Bindings
}

// keyState is the per-physical-key hold record.
type keyState struct {
	held           bool
	lastTransition time.Time
}

// pulser tracks an on/off duty cycle phase.
type pulser struct {
	active     bool
	on         bool
	lastSwitch time.Time
}

// engage (re)starts the pulse train in the on phase.
func (p *pulser) engage(now time.Time) {
	if !p.active {
		p.active = true
		p.on = true
		p.lastSwitch = now
	}
}

func (p *pulser) disengage() {
	p.active = false
	p.on = false
}

// update advances the phase and reports whether the key should be down.
func (p *pulser) update(now time.Time, onDur, offDur time.Duration) bool {
	if !p.active {
		return false
	}
	if offDur <= 0 {
		p.on = true
		p.lastSwitch = now
		return true
	}

	elapsed := now.Sub(p.lastSwitch)
	if p.on && elapsed >= onDur {
		p.on = false
		p.lastSwitch = now
	} else if !p.on && elapsed >= offDur {
		p.on = true
		p.lastSwitch = now
	}
	return p.on
}

// Actuator owns all key hold state. It is the only component that talks to
// the injector, and it guarantees ordered, idempotent transitions: no key
// goes down twice without an intervening up, and ReleaseAll deterministically
// clears every hold.
type Actuator struct {
	params   Params
	injector Injector

	keys map[string]*keyState

	steerEngaged   bool
	steerDirection int // -1 left, 0 center, +1 right
	steerPulse     pulser

	throttleEngaged bool
	backwardEngaged bool
	cruisePulse     pulser
}

// New creates an actuator with all keys released.
func New(injector Injector, params Params) *Actuator {
	return &Actuator{
		params:   params,
		injector: injector,
		keys:     make(map[string]*keyState),
	}
}

// SetParams swaps the tunables. Keys held under the old parameters are
// released so a binding change cannot strand a pressed key.
func (a *Actuator) SetParams(params Params) {
	a.ReleaseAll()
	a.params = params
}

// HeldKeys returns the physical keys currently held, for telemetry.
func (a *Actuator) HeldKeys() []string {
	var held []string
	for key, st := range a.keys {
		if st.held {
			held = append(held, key)
		}
	}
	return held
}

// Apply consumes one tick's intent and emits the resulting key transitions.
func (a *Actuator) Apply(intent control.Intent, now time.Time) {
	desired := make(map[string]bool)

	a.applySteer(intent.Steer, now, desired)
	a.applyThrottle(intent, now, desired)
	a.resolveOpposing(intent, desired)

	a.commit(desired, now)
}

// ReleaseAll releases every held key and resets engagement state.
// Called on pause, mode switch, recalibration and shutdown.
func (a *Actuator) ReleaseAll() {
	a.commit(nil, time.Now())
	a.steerEngaged = false
	a.steerDirection = 0
	a.steerPulse.disengage()
	a.throttleEngaged = false
	a.backwardEngaged = false
	a.cruisePulse.disengage()
}

func (a *Actuator) applySteer(steer float64, now time.Time, desired map[string]bool) {
	mag := math.Abs(steer)

	// Hysteresis on engagement.
	if a.steerEngaged {
		if mag < a.params.Release {
			a.steerEngaged = false
			a.steerDirection = 0
			a.steerPulse.disengage()
			return
		}
	} else {
		if mag < a.params.Activation {
			return
		}
		a.steerEngaged = true
		a.steerPulse.engage(now)
	}

	direction := 1
	if steer < 0 {
		direction = -1
	}
	if direction != a.steerDirection {
		// Direction flip restarts the pulse train in the on phase.
		a.steerDirection = direction
		a.steerPulse.disengage()
		a.steerPulse.engage(now)
	}

	key := a.params.Bindings.Right
	if direction < 0 {
		key = a.params.Bindings.Left
	}

	if !a.params.PulsedSteering || mag >= 0.95 {
		desired[key] = true
		return
	}

	onDur, offDur := steerDuty(mag, a.params.PulseBasePeriod)
	if a.steerPulse.update(now, onDur, offDur) {
		desired[key] = true
	}
}

// steerDuty computes the pulse on/off durations for a steer magnitude.
// Higher magnitude yields a higher duty cycle and a shorter period.
func steerDuty(mag float64, base time.Duration) (on, off time.Duration) {
	duty := clamp(0.35+0.5*mag, 0.25, 0.95)
	period := time.Duration(float64(base) * (1.1 - 0.6*mag))
	if period < 150*time.Millisecond {
		period = 150 * time.Millisecond
	}
	on = time.Duration(duty * float64(period))
	off = period - on
	if off < 10*time.Millisecond {
		off = 10 * time.Millisecond
	}
	return on, off
}

func (a *Actuator) applyThrottle(intent control.Intent, now time.Time, desired map[string]bool) {
	backward := intent.Brake || intent.Reverse || intent.Throttle <= -a.params.Activation
	if a.backwardEngaged && !backward {
		// Backward releases at the lower threshold too.
		backward = intent.Brake || intent.Reverse || intent.Throttle <= -a.params.Release
	}
	a.backwardEngaged = backward

	if backward {
		// Braking overrides forward motion outright.
		a.throttleEngaged = false
		a.cruisePulse.disengage()
		desired[a.params.Bindings.Backward] = true
		return
	}

	mag := intent.Throttle
	if a.throttleEngaged {
		if mag < a.params.Release {
			a.throttleEngaged = false
			a.cruisePulse.disengage()
			return
		}
	} else {
		if mag < a.params.Activation {
			return
		}
		a.throttleEngaged = true
		a.cruisePulse.engage(now)
	}

	if a.params.CruiseMode == CruiseContinuous {
		desired[a.params.Bindings.Forward] = true
		return
	}

	onDur, offDur := cruiseDuty(mag, a.params.CruisePeriod)
	if a.cruisePulse.update(now, onDur, offDur) {
		desired[a.params.Bindings.Forward] = true
	}
}

// cruiseDuty computes the pulsed-cruise on/off durations for a throttle
// magnitude.
func cruiseDuty(mag float64, base time.Duration) (on, off time.Duration) {
	eff := clamp(mag, 0.05, 1)
	period := time.Duration(float64(base) * (1.1 - 0.5*eff))
	if period < 100*time.Millisecond {
		period = 100 * time.Millisecond
	}
	ratio := clamp(0.25+eff*0.6, 0.25, 0.98)
	on = time.Duration(ratio * float64(period))
	off = period - on
	if off < 20*time.Millisecond {
		off = 20 * time.Millisecond
	}
	return on, off
}

// resolveOpposing defensively drops the weaker side if both keys of an
// opposing pair somehow ended up desired. The policy never emits such an
// intent; this guards against a misconfigured binding aliasing two
// logical keys onto opposing physical ones.
func (a *Actuator) resolveOpposing(intent control.Intent, desired map[string]bool) {
	b := a.params.Bindings

	if desired[b.Left] && desired[b.Right] {
		if intent.Steer >= 0 {
			delete(desired, b.Left)
		} else {
			delete(desired, b.Right)
		}
	}

	if desired[b.Forward] && desired[b.Backward] {
		backwardMag := math.Abs(math.Min(intent.Throttle, 0))
		if intent.Brake || intent.Reverse {
			backwardMag = 1
		}
		if intent.Throttle >= backwardMag {
			delete(desired, b.Backward)
		} else {
			delete(desired, b.Forward)
		}
	}
}

// commit diffs the desired key set against current holds and emits the
// transitions, releases first so opposing keys never overlap.
func (a *Actuator) commit(desired map[string]bool, now time.Time) {
	for key, st := range a.keys {
		if st.held && !desired[key] {
			st.held = false
			st.lastTransition = now
			a.injector.Release(key)
		}
	}
	for key := range desired {
		st := a.keys[key]
		if st == nil {
			st = &keyState{}
			a.keys[key] = st
		}
		if !st.held {
			st.held = true
			st.lastTransition = now
			a.injector.Press(key)
		}
	}
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
