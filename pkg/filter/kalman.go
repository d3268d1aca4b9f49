package filter

// kalman1D is a scalar constant-state Kalman filter.
// Q is process noise (higher = more responsive), R is measurement noise
// (higher = smoother, laggier).
type kalman1D struct {
	q float64
	r float64

	estimate   float64
	covariance float64
}

func newKalman1D(q, r float64) kalman1D {
	return kalman1D{q: q, r: r, covariance: 1.0}
}

// update runs one predict/correct cycle against measurement z and returns
// the new estimate.
func (k *kalman1D) update(z float64) float64 {
	// Predict
	k.covariance += k.q

	// Correct
	gain := k.covariance / (k.covariance + k.r)
	k.estimate += gain * (z - k.estimate)
	k.covariance *= (1 - gain)

	return k.estimate
}

func (k *kalman1D) reset() {
	k.estimate = 0
	k.covariance = 1.0
}

// trend1D is a double exponential smoother tracking level and trend.
// The trend term gives a cheap one-sided velocity estimate and allows
// short-horizon prediction to offset perception latency.
type trend1D struct {
	alpha float64
	beta  float64

	level       float64
	trend       float64
	initialized bool
}

func newTrend1D(alpha, beta float64) trend1D {
	return trend1D{alpha: alpha, beta: beta}
}

func (t *trend1D) update(z float64) float64 {
	if !t.initialized {
		t.level = z
		t.trend = 0
		t.initialized = true
		return z
	}

	prevLevel := t.level
	t.level = t.alpha*z + (1-t.alpha)*(t.level+t.trend)
	t.trend = t.beta*(t.level-prevLevel) + (1-t.beta)*t.trend
	return t.level
}

// predict extrapolates the level n steps ahead along the current trend.
func (t *trend1D) predict(steps int) float64 {
	if !t.initialized {
		return 0
	}
	return t.level + float64(steps)*t.trend
}

func (t *trend1D) reset() {
	t.level = 0
	t.trend = 0
	t.initialized = false
}

// ema1D is a first-order exponential smoother.
// Alpha near 1 is near-raw, near 0 is very smooth but laggy.
type ema1D struct {
	alpha       float64
	last        float64
	initialized bool
}

func newEMA1D(alpha float64) ema1D {
	return ema1D{alpha: alpha}
}

func (e *ema1D) update(z float64) float64 {
	if !e.initialized {
		e.last = z
		e.initialized = true
		return z
	}
	e.last = e.alpha*z + (1-e.alpha)*e.last
	return e.last
}

func (e *ema1D) reset() {
	e.last = 0
	e.initialized = false
}
