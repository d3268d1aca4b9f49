package control

import "strings"

// Flag marks a discrete side command carried alongside the analog intent.
type Flag uint8

// Side command flags.
const (
	FlagTurnSignalLeft Flag = 1 << iota
	FlagTurnSignalRight
	FlagEmergencyBrake
	FlagTogglePause
)

// FlagSet is a bitmask of side command flags.
type FlagSet uint8

// Has reports whether f is set.
func (s FlagSet) Has(f Flag) bool {
	return s&FlagSet(f) != 0
}

// With returns the set with f added.
func (s FlagSet) With(f Flag) FlagSet {
	return s | FlagSet(f)
}

// String renders the set for logs and telemetry.
func (s FlagSet) String() string {
	if s == 0 {
		return "-"
	}
	var names []string
	if s.Has(FlagTurnSignalLeft) {
		names = append(names, "signal-left")
	}
	if s.Has(FlagTurnSignalRight) {
		names = append(names, "signal-right")
	}
	if s.Has(FlagEmergencyBrake) {
		names = append(names, "emergency-brake")
	}
	if s.Has(FlagTogglePause) {
		names = append(names, "toggle-pause")
	}
	return strings.Join(names, ",")
}

// Intent is the per-tick control decision handed to the key actuator.
// Steer and Throttle are in [-1, 1]; negative throttle is backward motion.
// Brake and Reverse both resolve to the backward key unless bound apart;
// they are kept distinct so a game that separates them can be supported by
// a binding change alone.
type Intent struct {
	Steer    float64
	Throttle float64
	Brake    bool
	Reverse  bool
	Flags    FlagSet
}

// Neutral is the zero intent: no steer, no throttle, no flags.
// The safety monitor substitutes it while paused.
var Neutral = Intent{}
