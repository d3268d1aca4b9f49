package drive

import (
	"time"

	"github.com/teslashibe/go-facedrive/internal/config"
	"github.com/teslashibe/go-facedrive/pkg/actuate"
	"github.com/teslashibe/go-facedrive/pkg/pose"
)

// ReplayEvent is one tick's key transitions during an offline replay.
type ReplayEvent struct {
	T      time.Time
	State  string
	Events string // e.g. "-a +d"
}

// Replay feeds recorded samples through a fresh pipeline at their recorded
// timestamps and returns the resulting key-event timeline. The run starts
// with a calibration window, exactly like a live session.
func Replay(store *config.Store, samples []pose.Sample) []ReplayEvent {
	src := pose.NewMockSource(samples...)
	inj := actuate.NewMockInjector()
	l := New(Options{Store: store, Source: src, Injector: inj})

	if len(samples) == 0 {
		return nil
	}
	l.startCalibration(samples[0].T)

	var timeline []ReplayEvent
	for _, s := range samples {
		before := l.actuator.HeldKeys()
		l.step(s.T)
		if ev := keyDiff(before, l.actuator.HeldKeys()); ev != "" {
			timeline = append(timeline, ReplayEvent{
				T:      s.T,
				State:  l.monitor.State().String(),
				Events: ev,
			})
		}
	}

	held := l.actuator.HeldKeys()
	l.actuator.ReleaseAll()
	if ev := keyDiff(held, nil); ev != "" {
		timeline = append(timeline, ReplayEvent{
			T:      samples[len(samples)-1].T,
			State:  "shutdown",
			Events: ev,
		})
	}
	return timeline
}
