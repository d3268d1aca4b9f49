package filter

import (
	"math"
	"time"
)

// TremorLevel classifies involuntary oscillation in the raw pose signal.
type TremorLevel int

// Tremor levels, ordered by severity.
const (
	TremorNone TremorLevel = iota
	TremorMild
	TremorModerate
	TremorSevere
)

// String renders the level for logs and telemetry.
func (l TremorLevel) String() string {
	switch l {
	case TremorMild:
		return "mild"
	case TremorModerate:
		return "moderate"
	case TremorSevere:
		return "severe"
	default:
		return "none"
	}
}

const (
	// Physiological tremor sits in this frequency band. Deliberate head
	// motion is well below it.
	tremorBandLowHz  = 4.0
	tremorBandHighHz = 12.0

	// minTremorAmplitude is the peak-to-peak motion (degrees) below which
	// the head counts as still.
	minTremorAmplitude = 0.8

	// tremorAmplitudeRef is the peak-to-peak motion that saturates the
	// intensity estimate.
	tremorAmplitudeRef = 5.0

	// intentionThreshold is the displacement (degrees) across the last few
	// samples that marks the motion as deliberate.
	intentionThreshold = 3.0
	intentionLookback  = 5

	// intentionHalfLife is how quickly deliberate-motion confidence decays
	// once the head stops sweeping.
	intentionHalfLife = 500 * time.Millisecond

	minTremorSamples = 10
)

// TremorDetector separates involuntary oscillation from deliberate head
// motion on the raw baseline-relative signal. Deliberate input sweeps the
// head in one direction; tremor oscillates around a point at a few hertz
// while making little net progress. Detection requires an in-band dominant
// frequency, sufficient amplitude and low deliberate-motion confidence.
type TremorDetector struct {
	tick   time.Duration
	window int

	yaw   []float64
	pitch []float64
	next  int

	intentSeen   bool
	lastIntentAt time.Time

	detected  bool
	intensity float64
}

// NewTremorDetector creates a detector over the given tick window.
func NewTremorDetector(windowTicks int, tick time.Duration) *TremorDetector {
	if windowTicks < minTremorSamples {
		windowTicks = minTremorSamples
	}
	return &TremorDetector{
		tick:   tick,
		window: windowTicks,
		yaw:    make([]float64, 0, windowTicks),
		pitch:  make([]float64, 0, windowTicks),
	}
}

// Observe records one tick's baseline-relative yaw and pitch and refreshes
// the classification.
func (d *TremorDetector) Observe(dYaw, dPitch float64, now time.Time) {
	if len(d.yaw) < d.window {
		d.yaw = append(d.yaw, dYaw)
		d.pitch = append(d.pitch, dPitch)
	} else {
		d.yaw[d.next] = dYaw
		d.pitch[d.next] = dPitch
		d.next = (d.next + 1) % d.window
	}
	d.analyze(now)
}

func (d *TremorDetector) analyze(now time.Time) {
	ys := d.ordered(d.yaw)
	ps := d.ordered(d.pitch)
	if len(ys) < minTremorSamples {
		d.detected = false
		d.intensity = 0
		return
	}

	// A meaningful sweep over the last few samples marks the motion as
	// deliberate; the confidence decays once the sweep stops.
	i := len(ys) - intentionLookback
	dy := ys[len(ys)-1] - ys[i]
	dp := ps[len(ps)-1] - ps[i]
	if math.Hypot(dy, dp) > intentionThreshold {
		d.intentSeen = true
		d.lastIntentAt = now
	}
	confidence := 0.1
	if d.intentSeen {
		age := now.Sub(d.lastIntentAt)
		confidence = math.Max(0.1, math.Exp(-float64(age)/float64(intentionHalfLife)))
	}

	freq := d.dominantFrequency(ys)
	amp := math.Max(peakToPeak(ys), peakToPeak(ps))

	d.detected = freq >= tremorBandLowHz && freq <= tremorBandHighHz &&
		amp >= minTremorAmplitude && confidence < 0.5
	if !d.detected {
		d.intensity = 0
		return
	}

	center := (tremorBandLowHz + tremorBandHighHz) / 2
	freqScore := 1 - math.Abs(freq-center)/center
	ampScore := math.Min(amp/tremorAmplitudeRef, 1)
	d.intensity = (freqScore + ampScore) / 2
}

// dominantFrequency estimates the oscillation frequency of the detrended
// series by counting mean crossings, two per cycle.
func (d *TremorDetector) dominantFrequency(s []float64) float64 {
	mean := 0.0
	for _, v := range s {
		mean += v
	}
	mean /= float64(len(s))

	crossings := 0
	lastSign := 0
	for _, v := range s {
		sign := 0
		if v > mean {
			sign = 1
		} else if v < mean {
			sign = -1
		}
		if sign != 0 && lastSign != 0 && sign != lastSign {
			crossings++
		}
		if sign != 0 {
			lastSign = sign
		}
	}
	if crossings < 2 {
		return 0
	}
	duration := time.Duration(len(s)-1) * d.tick
	if duration <= 0 {
		return 0
	}
	return float64(crossings) / (2 * duration.Seconds())
}

// ordered returns the ring contents oldest first.
func (d *TremorDetector) ordered(ring []float64) []float64 {
	if len(ring) < d.window {
		return ring
	}
	out := make([]float64, 0, len(ring))
	out = append(out, ring[d.next:]...)
	out = append(out, ring[:d.next]...)
	return out
}

// Level reports the current classification.
func (d *TremorDetector) Level() TremorLevel {
	if !d.detected {
		return TremorNone
	}
	switch {
	case d.intensity >= 0.66:
		return TremorSevere
	case d.intensity >= 0.4:
		return TremorModerate
	default:
		return TremorMild
	}
}

// Intensity reports the tremor strength in [0, 1]; zero when none detected.
func (d *TremorDetector) Intensity() float64 {
	return d.intensity
}

// DeadZoneScale returns the factor by which the yaw and pitch dead zones
// should widen at the current level.
func (d *TremorDetector) DeadZoneScale() float64 {
	switch d.Level() {
	case TremorSevere:
		return 2.0
	case TremorModerate:
		return 1.5
	case TremorMild:
		return 1.25
	default:
		return 1.0
	}
}

// Reset discards the accumulated window, e.g. on recalibration.
func (d *TremorDetector) Reset() {
	d.yaw = d.yaw[:0]
	d.pitch = d.pitch[:0]
	d.next = 0
	d.intentSeen = false
	d.detected = false
	d.intensity = 0
}

func peakToPeak(s []float64) float64 {
	if len(s) == 0 {
		return 0
	}
	lo, hi := s[0], s[0]
	for _, v := range s[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}
