package actuate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facedrive/pkg/control"
)

func testParams() Params {
	return Params{
		Activation:      0.30,
		Release:         0.18,
		PulsedSteering:  false,
		PulseBasePeriod: 350 * time.Millisecond,
		CruiseMode:      CruiseContinuous,
		CruisePeriod:    500 * time.Millisecond,
		Bindings:        Bindings{Forward: "w", Backward: "s", Left: "a", Right: "d"},
	}
}

func TestSteerActivationAndRelease(t *testing.T) {
	inj := NewMockInjector()
	a := New(inj, testParams())
	now := time.Now()

	a.Apply(control.Intent{Steer: 0.25}, now)
	assert.Empty(t, inj.Events(), "below activation must not press")

	a.Apply(control.Intent{Steer: 0.35}, now.Add(20*time.Millisecond))
	assert.Equal(t, 1, inj.Count(EventPress, "d"))

	// Dropping below activation but above release keeps the hold.
	a.Apply(control.Intent{Steer: 0.20}, now.Add(40*time.Millisecond))
	assert.Equal(t, 0, inj.Count(EventRelease, "d"))

	a.Apply(control.Intent{Steer: 0.10}, now.Add(60*time.Millisecond))
	assert.Equal(t, 1, inj.Count(EventRelease, "d"))
}

func TestHysteresisPreventsRapidToggle(t *testing.T) {
	inj := NewMockInjector()
	a := New(inj, testParams())
	now := time.Now()

	// Oscillate between release and activation thresholds: after the first
	// press there must be no further transitions.
	a.Apply(control.Intent{Steer: 0.31}, now)
	for i := 1; i <= 50; i++ {
		steer := 0.18
		if i%2 == 0 {
			steer = 0.30
		}
		a.Apply(control.Intent{Steer: steer}, now.Add(time.Duration(i)*20*time.Millisecond))
	}

	assert.Equal(t, 1, inj.Count(EventPress, "d"))
	assert.Equal(t, 0, inj.Count(EventRelease, "d"))
}

func TestNoDoublePressWithoutRelease(t *testing.T) {
	inj := NewMockInjector()
	a := New(inj, testParams())
	now := time.Now()

	for i := 0; i < 100; i++ {
		a.Apply(control.Intent{Steer: 1.0}, now.Add(time.Duration(i)*20*time.Millisecond))
	}

	down := map[string]bool{}
	for _, e := range inj.Events() {
		switch e.Kind {
		case EventPress:
			require.False(t, down[e.Key], "double press on %s", e.Key)
			down[e.Key] = true
		case EventRelease:
			require.True(t, down[e.Key], "release of un-pressed %s", e.Key)
			down[e.Key] = false
		}
	}
}

func TestDirectionFlipReleasesOpposite(t *testing.T) {
	inj := NewMockInjector()
	a := New(inj, testParams())
	now := time.Now()

	a.Apply(control.Intent{Steer: 0.8}, now)
	a.Apply(control.Intent{Steer: -0.8}, now.Add(20*time.Millisecond))

	events := inj.Events()
	require.Len(t, events, 3)
	assert.Equal(t, Event{Kind: EventPress, Key: "d", T: events[0].T}, events[0])
	// Release of the old direction precedes the new press.
	assert.Equal(t, EventRelease, events[1].Kind)
	assert.Equal(t, "d", events[1].Key)
	assert.Equal(t, EventPress, events[2].Kind)
	assert.Equal(t, "a", events[2].Key)
}

func TestOpposingKeysNeverHeldTogether(t *testing.T) {
	inj := NewMockInjector()
	a := New(inj, testParams())
	now := time.Now()

	intents := []control.Intent{
		{Steer: 0.9, Throttle: 0.9},
		{Steer: -0.9, Throttle: -0.9, Reverse: true},
		{Steer: 0.9, Throttle: 0.9, Brake: true},
		{Steer: 0.2, Throttle: 0.1},
	}
	for i, intent := range intents {
		a.Apply(intent, now.Add(time.Duration(i)*20*time.Millisecond))

		held := map[string]bool{}
		for _, k := range a.HeldKeys() {
			held[k] = true
		}
		assert.False(t, held["a"] && held["d"], "tick %d holds left+right", i)
		assert.False(t, held["w"] && held["s"], "tick %d holds forward+backward", i)
	}
}

func TestBrakeOverridesForward(t *testing.T) {
	inj := NewMockInjector()
	a := New(inj, testParams())
	now := time.Now()

	a.Apply(control.Intent{Throttle: 0.9}, now)
	require.Equal(t, []string{"w"}, a.HeldKeys())

	a.Apply(control.Intent{Throttle: 0.9, Brake: true}, now.Add(20*time.Millisecond))
	assert.Equal(t, []string{"s"}, a.HeldKeys())
}

func TestContinuousCruiseIgnoresFluctuation(t *testing.T) {
	inj := NewMockInjector()
	a := New(inj, testParams())
	now := time.Now()

	a.Apply(control.Intent{Throttle: 0.5}, now)
	for i := 1; i <= 50; i++ {
		throttle := 0.5 + 0.1*float64(i%3-1) // 0.4 / 0.5 / 0.6
		a.Apply(control.Intent{Throttle: throttle}, now.Add(time.Duration(i)*20*time.Millisecond))
	}

	assert.Equal(t, 1, inj.Count(EventPress, "w"))
	assert.Equal(t, 0, inj.Count(EventRelease, "w"))
}

func TestPulsedCruiseTogglesWithDuty(t *testing.T) {
	p := testParams()
	p.CruiseMode = CruisePulsed
	inj := NewMockInjector()
	a := New(inj, p)
	now := time.Now()

	// Half throttle over several periods should produce repeated presses.
	for i := 0; i < 200; i++ {
		a.Apply(control.Intent{Throttle: 0.5}, now.Add(time.Duration(i)*20*time.Millisecond))
	}

	assert.Greater(t, inj.Count(EventPress, "w"), 2)
	assert.Greater(t, inj.Count(EventRelease, "w"), 2)
}

func TestPulsedSteeringFullDeflectionHoldsSolid(t *testing.T) {
	p := testParams()
	p.PulsedSteering = true
	inj := NewMockInjector()
	a := New(inj, p)
	now := time.Now()

	for i := 0; i < 200; i++ {
		a.Apply(control.Intent{Steer: 1.0}, now.Add(time.Duration(i)*20*time.Millisecond))
	}

	assert.Equal(t, 1, inj.Count(EventPress, "d"), "full deflection is a continuous hold")
	assert.Equal(t, 0, inj.Count(EventRelease, "d"))
}

func TestPulsedSteeringPartialDeflectionPulses(t *testing.T) {
	p := testParams()
	p.PulsedSteering = true
	inj := NewMockInjector()
	a := New(inj, p)
	now := time.Now()

	for i := 0; i < 200; i++ {
		a.Apply(control.Intent{Steer: 0.5}, now.Add(time.Duration(i)*20*time.Millisecond))
	}

	presses := inj.Count(EventPress, "d")
	releases := inj.Count(EventRelease, "d")
	assert.Greater(t, presses, 2, "partial deflection must pulse")
	assert.InDelta(t, presses, releases, 1)
}

func TestDutyCycleGrowsWithMagnitude(t *testing.T) {
	onLow, offLow := steerDuty(0.3, 350*time.Millisecond)
	onHigh, offHigh := steerDuty(0.8, 350*time.Millisecond)

	dutyLow := float64(onLow) / float64(onLow+offLow)
	dutyHigh := float64(onHigh) / float64(onHigh+offHigh)
	assert.Greater(t, dutyHigh, dutyLow)
}

func TestReleaseAll(t *testing.T) {
	inj := NewMockInjector()
	a := New(inj, testParams())
	now := time.Now()

	a.Apply(control.Intent{Steer: 0.8, Throttle: 0.8}, now)
	require.Len(t, a.HeldKeys(), 2)

	a.ReleaseAll()
	assert.Empty(t, a.HeldKeys())
	assert.Equal(t, 1, inj.Count(EventRelease, "w"))
	assert.Equal(t, 1, inj.Count(EventRelease, "d"))

	// Idempotent: a second ReleaseAll emits nothing new.
	before := len(inj.Events())
	a.ReleaseAll()
	assert.Len(t, inj.Events(), before)
}

func TestSetParamsReleasesHeldKeys(t *testing.T) {
	inj := NewMockInjector()
	a := New(inj, testParams())

	a.Apply(control.Intent{Steer: 0.8}, time.Now())
	require.Equal(t, []string{"d"}, a.HeldKeys())

	p := testParams()
	p.Bindings.Right = "l"
	a.SetParams(p)
	assert.Empty(t, a.HeldKeys())
	assert.Equal(t, 1, inj.Count(EventRelease, "d"))
}
