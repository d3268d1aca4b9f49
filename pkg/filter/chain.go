// Package filter conditions raw pose samples into a stable control signal.
//
// Per tick and per axis the chain applies baseline subtraction, dead-zone
// suppression, a scalar Kalman filter and exponential smoothing, in that
// order. Dead-zone sits before the Kalman stage so zero-mean rest noise
// never perturbs the filter covariance; Kalman removes high-frequency
// sensor noise while the EMA removes residual low-frequency drift. The two
// smoothing stages target different noise bands.
package filter

import "github.com/teslashibe/go-facedrive/pkg/pose"

// Axis indexes the four filtered channels.
type Axis int

// Filtered axes.
const (
	AxisYaw Axis = iota
	AxisPitch
	AxisRoll
	AxisMouth
	numAxes
)

// Neutral is the calibrated reference pose treated as zero input.
// It is replaced wholesale on recalibration, never partially mutated.
type Neutral struct {
	Yaw0          float64
	Pitch0        float64
	Roll0         float64
	MouthBaseline float64
}

// Settings holds the filter chain tunables.
type Settings struct {
	DeadZone [numAxes]float64

	EnableKalman bool
	KalmanQ      float64
	KalmanR      float64

	EnableTrend bool
	TrendBeta   float64

	EnableEMA bool
	EMAAlpha  float64

	// MouthFullOpen is the mouth delta mapped to MouthNorm = 1.
	MouthFullOpen float64

	// MouthOpenThreshold is the raw mouth delta that counts as the
	// mouth-open gesture.
	MouthOpenThreshold float64

	// BlinkHoldTicks is how many consecutive blink frames are required
	// before a blink edge fires.
	BlinkHoldTicks int
}

// Signal is the conditioned per-tick output consumed by the control policy.
type Signal struct {
	DYaw      float64
	DPitch    float64
	DRoll     float64
	MouthNorm float64 // 0..1

	// Gesture edges fire on the tick a gesture is first recognized.
	// They are derived from the raw signal, not the filtered one, because
	// they are discrete commands that need low latency, not smoothness.
	BlinkLeftEdge  bool
	BlinkRightEdge bool
	MouthOpenEdge  bool
}

type axisState struct {
	kalman kalman1D
	trend  trend1D
	ema    ema1D
}

// Chain owns all per-axis filter state plus the active neutral reference.
// Every output is a function of the current sample, the neutral reference
// and this state only; Reset wipes the state atomically on recalibration.
type Chain struct {
	settings Settings
	neutral  Neutral

	axes     [numAxes]axisState
	gestures gestureState
}

// NewChain creates a filter chain with a zero neutral reference.
func NewChain(s Settings) *Chain {
	c := &Chain{settings: s}
	c.initAxes()
	return c
}

func (c *Chain) initAxes() {
	for i := range c.axes {
		c.axes[i] = axisState{
			kalman: newKalman1D(c.settings.KalmanQ, c.settings.KalmanR),
			trend:  newTrend1D(0.5, c.settings.TrendBeta),
			ema:    newEMA1D(c.settings.EMAAlpha),
		}
	}
}

// Reset installs a new neutral reference and discards all filter state, so
// pre-calibration noise estimates never leak across the discontinuity.
func (c *Chain) Reset(n Neutral) {
	c.neutral = n
	for i := range c.axes {
		c.axes[i].kalman.reset()
		c.axes[i].trend.reset()
		c.axes[i].ema.reset()
	}
	c.gestures = gestureState{}
}

// Neutral returns the active neutral reference.
func (c *Chain) Neutral() Neutral {
	return c.neutral
}

// Update conditions one raw sample into a Signal.
func (c *Chain) Update(s pose.Sample) Signal {
	dYaw := c.filterAxis(AxisYaw, s.Yaw-c.neutral.Yaw0)
	dPitch := c.filterAxis(AxisPitch, s.Pitch-c.neutral.Pitch0)
	dRoll := c.filterAxis(AxisRoll, s.Roll-c.neutral.Roll0)

	mouthDelta := c.filterAxis(AxisMouth, s.MouthOpen-c.neutral.MouthBaseline)
	mouthNorm := 0.0
	if c.settings.MouthFullOpen > 0 {
		mouthNorm = clamp(mouthDelta/c.settings.MouthFullOpen, 0, 1)
	}

	sig := Signal{
		DYaw:      dYaw,
		DPitch:    dPitch,
		DRoll:     dRoll,
		MouthNorm: mouthNorm,
	}

	// Gesture edges come off the raw sample, bypassing the smoothing chain.
	rawMouthDelta := s.MouthOpen - c.neutral.MouthBaseline
	sig.BlinkLeftEdge, sig.BlinkRightEdge, sig.MouthOpenEdge = c.gestures.update(
		s.BlinkLeft, s.BlinkRight,
		rawMouthDelta >= c.settings.MouthOpenThreshold,
		c.settings.BlinkHoldTicks,
	)

	return sig
}

// filterAxis runs the staged pipeline for one axis measurement.
func (c *Chain) filterAxis(axis Axis, rawDelta float64) float64 {
	// Dead zone: values inside the radius are exactly zero this tick.
	if abs(rawDelta) < c.settings.DeadZone[axis] {
		rawDelta = 0
	}

	value := rawDelta
	st := &c.axes[axis]

	if c.settings.EnableKalman {
		value = st.kalman.update(value)
	}
	if c.settings.EnableTrend {
		value = st.trend.update(value)
	}
	if c.settings.EnableEMA {
		value = st.ema.update(value)
	}
	return value
}

// PredictAhead extrapolates an axis the given number of ticks forward along
// its trend estimate. Zero when trend smoothing is disabled. Exposed for
// telemetry; control intent always uses the current filtered value.
func (c *Chain) PredictAhead(axis Axis, steps int) float64 {
	if !c.settings.EnableTrend {
		return 0
	}
	return c.axes[axis].trend.predict(steps)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
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
