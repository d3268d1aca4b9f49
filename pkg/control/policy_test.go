package control

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-facedrive/pkg/filter"
)

func params(mode Mode) Params {
	return Params{
		Mode:               mode,
		SensitivityH:       15,
		SensitivityV:       12,
		VelocityGain:       6,
		SimplifiedThrottle: 0.6,
		ReverseThreshold:   0.5,
	}
}

func TestPositionSteerScalesAndClamps(t *testing.T) {
	p := params(ModePosition)

	intent := Map(filter.Signal{DYaw: 7.5}, filter.Signal{}, p)
	assert.InDelta(t, 0.5, intent.Steer, 1e-9)

	intent = Map(filter.Signal{DYaw: -45}, filter.Signal{}, p)
	assert.Equal(t, -1.0, intent.Steer)
}

func TestPositionForwardLeanThrottles(t *testing.T) {
	p := params(ModePosition)

	intent := Map(filter.Signal{DPitch: 6}, filter.Signal{}, p)
	assert.InDelta(t, 0.5, intent.Throttle, 1e-9)
	assert.False(t, intent.Reverse)
}

func TestPositionBackwardLeanCoastsThenReverses(t *testing.T) {
	p := params(ModePosition)

	// Slight backward lean, below the reverse threshold: coast.
	intent := Map(filter.Signal{DPitch: -3}, filter.Signal{}, p)
	assert.Zero(t, intent.Throttle)
	assert.False(t, intent.Reverse)

	// Beyond the threshold: reverse engages.
	intent = Map(filter.Signal{DPitch: -9}, filter.Signal{}, p)
	assert.True(t, intent.Reverse)
	assert.Negative(t, intent.Throttle)
}

func TestPositionMouthThrottle(t *testing.T) {
	p := params(ModePosition)
	p.MouthThrottle = true

	intent := Map(filter.Signal{MouthNorm: 0.7}, filter.Signal{}, p)
	assert.InDelta(t, 0.7, intent.Throttle, 1e-9)
}

func TestVelocityRespondsToMotionNotOffset(t *testing.T) {
	p := params(ModeVelocity)

	moving := filter.Signal{DYaw: 10}
	prev := filter.Signal{DYaw: 8}
	intent := Map(moving, prev, p)
	assert.InDelta(t, 6*2.0/15, intent.Steer, 1e-9)

	// Head held turned but no longer moving: steer returns to zero even
	// though the offset from neutral is large.
	intent = Map(moving, moving, p)
	assert.Zero(t, intent.Steer)
}

func TestSimplifiedPinsThrottle(t *testing.T) {
	p := params(ModeSimplified)

	for _, dyaw := range []float64{-40, -5, 0, 5, 40} {
		intent := Map(filter.Signal{DYaw: dyaw, DPitch: -30}, filter.Signal{}, p)
		assert.Equal(t, 0.6, intent.Throttle, "dyaw %v", dyaw)
		assert.False(t, intent.Reverse, "dyaw %v", dyaw)
	}
}

func TestMutualExclusionByConstruction(t *testing.T) {
	for _, mode := range []Mode{ModePosition, ModeVelocity, ModeSimplified} {
		p := params(mode)
		for _, dyaw := range []float64{-100, -1, 0, 1, 100} {
			intent := Map(filter.Signal{DYaw: dyaw}, filter.Signal{}, p)
			// A single signed scalar cannot command both directions.
			assert.False(t, intent.Steer > 0 && intent.Steer < 0)
			assert.GreaterOrEqual(t, intent.Steer, -1.0)
			assert.LessOrEqual(t, intent.Steer, 1.0)
		}
	}
}

func TestGestureFlagsIdenticalAcrossModes(t *testing.T) {
	sig := filter.Signal{BlinkLeftEdge: true, MouthOpenEdge: true}

	for _, mode := range []Mode{ModePosition, ModeVelocity, ModeSimplified} {
		intent := Map(sig, filter.Signal{}, params(mode))
		assert.True(t, intent.Flags.Has(FlagTurnSignalLeft), mode.String())
		assert.True(t, intent.Flags.Has(FlagEmergencyBrake), mode.String())
		assert.True(t, intent.Brake, mode.String())
	}
}

func TestBothBlinksTogglePause(t *testing.T) {
	sig := filter.Signal{BlinkLeftEdge: true, BlinkRightEdge: true}
	intent := Map(sig, filter.Signal{}, params(ModePosition))

	assert.True(t, intent.Flags.Has(FlagTogglePause))
	assert.False(t, intent.Flags.Has(FlagTurnSignalLeft))
	assert.False(t, intent.Flags.Has(FlagTurnSignalRight))
}

func TestModeCycle(t *testing.T) {
	assert.Equal(t, ModeVelocity, ModePosition.Next())
	assert.Equal(t, ModeSimplified, ModeVelocity.Next())
	assert.Equal(t, ModePosition, ModeSimplified.Next())
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("velocity")
	assert.True(t, ok)
	assert.Equal(t, ModeVelocity, m)

	_, ok = ParseMode("warp")
	assert.False(t, ok)
}
