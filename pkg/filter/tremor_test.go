package filter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const tremorTestTick = 20 * time.Millisecond

// feedOscillation pushes an 8 Hz sinusoid, squarely inside the tremor band.
func feedOscillation(d *TremorDetector, t0 time.Time, amplitude float64, ticks int) {
	for i := 0; i < ticks; i++ {
		t := time.Duration(i) * tremorTestTick
		yaw := amplitude * math.Sin(2*math.Pi*8*t.Seconds())
		d.Observe(yaw, 0, t0.Add(t))
	}
}

func TestTremorDetectsOscillation(t *testing.T) {
	d := NewTremorDetector(50, tremorTestTick)
	feedOscillation(d, time.Now(), 2.0, 60)

	assert.Equal(t, TremorSevere, d.Level())
	assert.InDelta(t, 2.0, d.DeadZoneScale(), 1e-9)
	assert.Greater(t, d.Intensity(), 0.66)
}

func TestTremorIgnoresDeliberateSweep(t *testing.T) {
	d := NewTremorDetector(50, tremorTestTick)
	t0 := time.Now()

	// A steady 40°/s turn: large net displacement, no oscillation.
	for i := 0; i < 60; i++ {
		d.Observe(0.8*float64(i), 0, t0.Add(time.Duration(i)*tremorTestTick))
	}

	assert.Equal(t, TremorNone, d.Level())
	assert.InDelta(t, 1.0, d.DeadZoneScale(), 1e-9)
}

func TestTremorIgnoresStillHead(t *testing.T) {
	d := NewTremorDetector(50, tremorTestTick)
	t0 := time.Now()

	for i := 0; i < 60; i++ {
		d.Observe(0.05, -0.02, t0.Add(time.Duration(i)*tremorTestTick))
	}

	assert.Equal(t, TremorNone, d.Level())
	assert.Zero(t, d.Intensity())
}

func TestTremorNeedsFullPrime(t *testing.T) {
	d := NewTremorDetector(50, tremorTestTick)
	feedOscillation(d, time.Now(), 2.0, 5)

	assert.Equal(t, TremorNone, d.Level())
}

func TestTremorResetClearsWindow(t *testing.T) {
	d := NewTremorDetector(50, tremorTestTick)
	feedOscillation(d, time.Now(), 2.0, 60)
	assert.NotEqual(t, TremorNone, d.Level())

	d.Reset()
	assert.Equal(t, TremorNone, d.Level())
	assert.Zero(t, d.Intensity())
}
