package drive

import (
	"sort"
	"strings"
	"time"

	"github.com/teslashibe/go-facedrive/pkg/control"
	"github.com/teslashibe/go-facedrive/pkg/filter"
	"github.com/teslashibe/go-facedrive/pkg/pose"
	"github.com/teslashibe/go-facedrive/pkg/safety"
)

// Telemetry is the per-tick frame streamed to dashboard subscribers.
type Telemetry struct {
	T         int64  `json:"t_unix_ms"`
	Tick      uint64 `json:"tick"`
	State     string `json:"state"`
	Mode      string `json:"mode"`
	FaceFound bool   `json:"face_found"`

	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`

	DYaw      float64 `json:"d_yaw"`
	DPitch    float64 `json:"d_pitch"`
	MouthNorm float64 `json:"mouth_norm"`

	// PredictedYaw extrapolates the yaw trend a few ticks ahead, letting the
	// dashboard visualize latency compensation. Zero unless trend smoothing
	// is enabled.
	PredictedYaw float64 `json:"predicted_yaw"`

	Steer    float64  `json:"steer"`
	Throttle float64  `json:"throttle"`
	Brake    bool     `json:"brake"`
	Reverse  bool     `json:"reverse"`
	Flags    string   `json:"flags"`
	HeldKeys []string `json:"held_keys"`

	TremorLevel  string  `json:"tremor_level"`
	FatigueScore float64 `json:"fatigue_score"`
}

// predictAheadTicks is the trend extrapolation horizon for telemetry.
const predictAheadTicks = 3

// telemetryMinGap caps the broadcast rate at 20 Hz regardless of tick rate.
const telemetryMinGap = 50 * time.Millisecond

func (l *Loop) publishTelemetry(sample pose.Sample, sig filter.Signal, intent control.Intent, state safety.State, faceFound bool) {
	if l.dashboard == nil || l.dashboard.TelemetryClients() == 0 {
		return
	}
	now := time.Now()
	if now.Sub(l.lastTelemetryAt) < telemetryMinGap {
		return
	}
	l.lastTelemetryAt = now

	frame := Telemetry{
		T:            now.UnixMilli(),
		Tick:         l.ticks,
		State:        state.String(),
		Mode:         l.mode.String(),
		FaceFound:    faceFound,
		Yaw:          sample.Yaw,
		Pitch:        sample.Pitch,
		Roll:         sample.Roll,
		DYaw:         sig.DYaw,
		DPitch:       sig.DPitch,
		MouthNorm:    sig.MouthNorm,
		PredictedYaw: l.chain.PredictAhead(filter.AxisYaw, predictAheadTicks),
		Steer:        intent.Steer,
		Throttle:     intent.Throttle,
		Brake:        intent.Brake,
		Reverse:      intent.Reverse,
		Flags:        intent.Flags.String(),
		HeldKeys:     l.actuator.HeldKeys(),
		TremorLevel:  l.tremorLevel.String(),
		FatigueScore: l.fatigue.Score(),
	}
	l.dashboard.PublishTelemetry(frame)
}

// keyDiff renders this tick's key transitions, releases first, e.g. "-w +s".
func keyDiff(before, after []string) string {
	wasHeld := make(map[string]bool, len(before))
	for _, k := range before {
		wasHeld[k] = true
	}
	isHeld := make(map[string]bool, len(after))
	for _, k := range after {
		isHeld[k] = true
	}

	var released, pressed []string
	for _, k := range before {
		if !isHeld[k] {
			released = append(released, "-"+k)
		}
	}
	for _, k := range after {
		if !wasHeld[k] {
			pressed = append(pressed, "+"+k)
		}
	}
	sort.Strings(released)
	sort.Strings(pressed)
	return strings.TrimSpace(strings.Join(released, " ") + " " + strings.Join(pressed, " "))
}
