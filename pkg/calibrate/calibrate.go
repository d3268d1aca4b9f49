// Package calibrate captures the neutral reference pose.
//
// The user holds a relaxed, centered posture for a short window; the mean of
// the collected pose channels becomes the zero point every later sample is
// measured against. Samples without a detected face are rejected, and a
// window that collects too few valid samples fails outright rather than
// committing a garbage baseline.
package calibrate

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/teslashibe/go-facedrive/pkg/filter"
	"github.com/teslashibe/go-facedrive/pkg/pose"
)

// ErrCalibrationFailed indicates the capture window ended with too few valid
// samples. No neutral reference is committed; the session must retry.
var ErrCalibrationFailed = errors.New("calibrate: insufficient valid samples")

// ErrNotFinished indicates Result was called before the window expired.
var ErrNotFinished = errors.New("calibrate: capture window still open")

// Tuning holds thresholds derived from the measured rest noise, in the
// spirit of deriving dead zones from how still the user can actually hold.
type Tuning struct {
	DeadZoneHorizontal float64
	DeadZoneVertical   float64
	MouthOpenThreshold float64
}

// Calibrator accumulates samples over a capture window.
type Calibrator struct {
	window     time.Duration
	minSamples int

	active   bool
	start    time.Time
	deadline time.Time

	yaws    []float64
	pitches []float64
	rolls   []float64
	mouths  []float64
}

// New creates a calibrator for the given window and minimum sample count.
func New(window time.Duration, minSamples int) *Calibrator {
	if minSamples < 1 {
		minSamples = 1
	}
	return &Calibrator{window: window, minSamples: minSamples}
}

// Begin opens a capture window starting at now. Any previous accumulation
// is discarded.
func (c *Calibrator) Begin(now time.Time) {
	c.active = true
	c.start = now
	c.deadline = now.Add(c.window)
	c.yaws = c.yaws[:0]
	c.pitches = c.pitches[:0]
	c.rolls = c.rolls[:0]
	c.mouths = c.mouths[:0]
}

// Active reports whether a capture window is open.
func (c *Calibrator) Active() bool {
	return c.active
}

// Remaining returns how much of the window is left at now.
func (c *Calibrator) Remaining(now time.Time) time.Duration {
	if !c.active {
		return 0
	}
	rem := c.deadline.Sub(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// Observe feeds one sample into the open window and reports whether the
// window has expired. Samples without a face are not accumulated but still
// advance the clock.
func (c *Calibrator) Observe(s pose.Sample) (done bool) {
	if !c.active {
		return false
	}

	if s.FaceFound {
		c.yaws = append(c.yaws, s.Yaw)
		c.pitches = append(c.pitches, s.Pitch)
		c.rolls = append(c.rolls, s.Roll)
		c.mouths = append(c.mouths, s.MouthOpen)
	}

	return !s.T.Before(c.deadline)
}

// Result closes the window and computes the neutral reference.
// It fails with ErrCalibrationFailed when fewer than the minimum number of
// valid samples were collected.
func (c *Calibrator) Result() (filter.Neutral, error) {
	if c.active && len(c.yaws) < c.minSamples {
		c.active = false
		return filter.Neutral{}, ErrCalibrationFailed
	}
	if !c.active {
		return filter.Neutral{}, ErrNotFinished
	}
	c.active = false

	return filter.Neutral{
		Yaw0:          mean(c.yaws),
		Pitch0:        mean(c.pitches),
		Roll0:         mean(c.rolls),
		MouthBaseline: median(c.mouths),
	}, nil
}

// SuggestedTuning derives thresholds from the spread observed during the
// last completed window. Only meaningful right after a successful Result.
func (c *Calibrator) SuggestedTuning() Tuning {
	mouthStd := stddev(c.mouths)
	return Tuning{
		DeadZoneHorizontal: math.Max(1.5, 2.5*stddev(c.yaws)),
		DeadZoneVertical:   math.Max(1.2, 2.5*stddev(c.pitches)),
		MouthOpenThreshold: math.Max(0.15, median(c.mouths)+4*mouthStd),
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
}
