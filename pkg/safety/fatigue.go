package safety

import "time"

// FatigueParams holds the fatigue estimator tunables.
type FatigueParams struct {
	// BreakAfter is the continuous driving time that alone saturates the
	// time term of the score. Zero disables the estimator.
	BreakAfter time.Duration
}

const (
	// fatigueWindowTicks is the rolling window for the steering reversal
	// rate. The first full window becomes the session baseline.
	fatigueWindowTicks = 512

	// reversalRateRef is the rise in reversal rate over the baseline that
	// saturates the over-correction term.
	reversalRateRef = 0.5

	// fatigueRecoveryFactor is how much faster paused time unwinds the
	// active-time account than driving builds it.
	fatigueRecoveryFactor = 2

	// fatigueSteerDeadband ignores near-neutral steer when tracking
	// direction reversals.
	fatigueSteerDeadband = 0.1

	fatigueTimeWeight     = 0.85
	fatigueReversalWeight = 0.4

	breakRecommendAt = 0.8
	breakClearAt     = 0.6
)

// Fatigue estimates how worn out the user is. Continuous driving time is
// the dominant term; a rise in steering direction reversals over the
// session's own baseline adds to it, since over-correction is an early
// fatigue sign. Time spent paused counts toward recovery at double rate.
type Fatigue struct {
	params FatigueParams

	started    bool
	lastTick   time.Time
	activeTime time.Duration

	lastSign     int
	reversals    []bool
	next         int
	baselineRate float64
	baselineSet  bool

	recommended bool
}

// NewFatigue creates an estimator for a fresh session.
func NewFatigue(params FatigueParams) *Fatigue {
	return &Fatigue{
		params:    params,
		reversals: make([]bool, 0, fatigueWindowTicks),
	}
}

// Enabled reports whether the estimator is active.
func (f *Fatigue) Enabled() bool {
	return f.params.BreakAfter > 0
}

// Observe consumes one tick's gated steer and pause state.
func (f *Fatigue) Observe(steer float64, paused bool, now time.Time) {
	if !f.Enabled() {
		return
	}
	if !f.started {
		f.started = true
		f.lastTick = now
		return
	}
	dt := now.Sub(f.lastTick)
	f.lastTick = now
	if dt < 0 {
		dt = 0
	}

	if paused {
		f.activeTime -= fatigueRecoveryFactor * dt
		if f.activeTime < 0 {
			f.activeTime = 0
		}
	} else {
		f.activeTime += dt
	}

	sign := 0
	if steer > fatigueSteerDeadband {
		sign = 1
	} else if steer < -fatigueSteerDeadband {
		sign = -1
	}
	reversal := sign != 0 && f.lastSign != 0 && sign != f.lastSign
	if sign != 0 {
		f.lastSign = sign
	}
	f.pushReversal(reversal)

	// Hysteresis so the recommendation does not flutter at the threshold.
	score := f.Score()
	if score >= breakRecommendAt {
		f.recommended = true
	} else if score < breakClearAt {
		f.recommended = false
	}
}

func (f *Fatigue) pushReversal(r bool) {
	if len(f.reversals) < fatigueWindowTicks {
		f.reversals = append(f.reversals, r)
		if len(f.reversals) == fatigueWindowTicks && !f.baselineSet {
			f.baselineRate = f.reversalRate()
			f.baselineSet = true
		}
		return
	}
	f.reversals[f.next] = r
	f.next = (f.next + 1) % fatigueWindowTicks
}

func (f *Fatigue) reversalRate() float64 {
	if len(f.reversals) == 0 {
		return 0
	}
	count := 0
	for _, r := range f.reversals {
		if r {
			count++
		}
	}
	return float64(count) / float64(len(f.reversals))
}

// Score returns the fatigue estimate in [0, 1].
func (f *Fatigue) Score() float64 {
	if !f.Enabled() {
		return 0
	}
	timeTerm := float64(f.activeTime) / float64(f.params.BreakAfter)
	if timeTerm > 1 {
		timeTerm = 1
	}
	score := fatigueTimeWeight * timeTerm

	if f.baselineSet {
		rise := (f.reversalRate() - f.baselineRate) / reversalRateRef
		if rise < 0 {
			rise = 0
		}
		if rise > 1 {
			rise = 1
		}
		score += fatigueReversalWeight * rise
	}

	if score > 1 {
		return 1
	}
	return score
}

// BreakRecommended reports whether the user should take a break.
func (f *Fatigue) BreakRecommended() bool {
	return f.recommended
}

// Reset starts a fresh session, e.g. after a confirmed break.
func (f *Fatigue) Reset() {
	f.started = false
	f.activeTime = 0
	f.lastSign = 0
	f.reversals = f.reversals[:0]
	f.next = 0
	f.baselineRate = 0
	f.baselineSet = false
	f.recommended = false
}
