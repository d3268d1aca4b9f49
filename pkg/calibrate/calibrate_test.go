package calibrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facedrive/pkg/pose"
)

func sampleAt(t0 time.Time, offset time.Duration, yaw float64, found bool) pose.Sample {
	return pose.Sample{Yaw: yaw, FaceFound: found, T: t0.Add(offset)}
}

func TestCalibrationMeansChannels(t *testing.T) {
	t0 := time.Now()
	c := New(100*time.Millisecond, 3)
	c.Begin(t0)

	require.False(t, c.Observe(sampleAt(t0, 10*time.Millisecond, 0, true)))
	require.False(t, c.Observe(sampleAt(t0, 20*time.Millisecond, 1, true)))
	require.True(t, c.Observe(sampleAt(t0, 100*time.Millisecond, -1, true)))

	n, err := c.Result()
	require.NoError(t, err)
	assert.Zero(t, n.Yaw0)
	assert.False(t, c.Active())
}

func TestCalibrationRejectsFaceless(t *testing.T) {
	t0 := time.Now()
	c := New(100*time.Millisecond, 2)
	c.Begin(t0)

	c.Observe(sampleAt(t0, 10*time.Millisecond, 99, false))
	c.Observe(sampleAt(t0, 20*time.Millisecond, 2, true))
	c.Observe(sampleAt(t0, 30*time.Millisecond, 4, true))
	require.True(t, c.Observe(sampleAt(t0, 100*time.Millisecond, 88, false)))

	n, err := c.Result()
	require.NoError(t, err)
	assert.Equal(t, 3.0, n.Yaw0, "faceless samples must not contribute")
}

func TestCalibrationFailsUnderMinimum(t *testing.T) {
	t0 := time.Now()
	c := New(50*time.Millisecond, 5)
	c.Begin(t0)

	c.Observe(sampleAt(t0, 10*time.Millisecond, 0, true))
	require.True(t, c.Observe(sampleAt(t0, 50*time.Millisecond, 0, false)))

	_, err := c.Result()
	assert.ErrorIs(t, err, ErrCalibrationFailed)
}

func TestCalibrationRetryAfterFailure(t *testing.T) {
	t0 := time.Now()
	c := New(50*time.Millisecond, 2)

	c.Begin(t0)
	require.True(t, c.Observe(sampleAt(t0, 50*time.Millisecond, 0, false)))
	_, err := c.Result()
	require.ErrorIs(t, err, ErrCalibrationFailed)

	// Second window succeeds and carries nothing over from the first.
	t1 := t0.Add(time.Second)
	c.Begin(t1)
	c.Observe(sampleAt(t1, 10*time.Millisecond, 5, true))
	require.True(t, c.Observe(sampleAt(t1, 50*time.Millisecond, 7, true)))

	n, err := c.Result()
	require.NoError(t, err)
	assert.Equal(t, 6.0, n.Yaw0)
}

func TestMouthBaselineUsesMedian(t *testing.T) {
	t0 := time.Now()
	c := New(50*time.Millisecond, 3)
	c.Begin(t0)

	// One yawn during calibration should not drag the baseline up.
	mouths := []float64{0.10, 0.11, 0.12, 0.90}
	for i, m := range mouths {
		s := sampleAt(t0, time.Duration(i*10)*time.Millisecond, 0, true)
		s.MouthOpen = m
		c.Observe(s)
	}
	require.True(t, c.Observe(sampleAt(t0, 50*time.Millisecond, 0, false)))

	n, err := c.Result()
	require.NoError(t, err)
	assert.InDelta(t, 0.115, n.MouthBaseline, 1e-9)
}

func TestResultBeforeWindowEnds(t *testing.T) {
	c := New(time.Second, 1)
	// Window never began.
	_, err := c.Result()
	assert.ErrorIs(t, err, ErrNotFinished)
}

func TestSuggestedTuningFloors(t *testing.T) {
	t0 := time.Now()
	c := New(50*time.Millisecond, 2)
	c.Begin(t0)
	c.Observe(sampleAt(t0, 10*time.Millisecond, 0, true))
	require.True(t, c.Observe(sampleAt(t0, 50*time.Millisecond, 0, true)))
	_, err := c.Result()
	require.NoError(t, err)

	// A perfectly still user still gets non-degenerate thresholds.
	tuning := c.SuggestedTuning()
	assert.GreaterOrEqual(t, tuning.DeadZoneHorizontal, 1.5)
	assert.GreaterOrEqual(t, tuning.DeadZoneVertical, 1.2)
	assert.GreaterOrEqual(t, tuning.MouthOpenThreshold, 0.15)
}
