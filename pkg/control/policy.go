// Package control maps the filtered pose signal to driving intent.
//
// The mapping is a pure function of the current (and previous) filtered
// signal and the active mode; all mode state is held by the caller and
// switched only by explicit user command.
package control

import "github.com/teslashibe/go-facedrive/pkg/filter"

// Mode selects how the filtered signal becomes intent.
type Mode int

// Control modes.
const (
	// ModePosition maps absolute head offset from neutral to intent.
	ModePosition Mode = iota
	// ModeVelocity maps head motion (per-tick signal change) to intent;
	// holding the head turned returns steer toward zero.
	ModeVelocity
	// ModeSimplified pins constant forward throttle and only steers.
	ModeSimplified
)

// String returns the config-facing mode name.
func (m Mode) String() string {
	switch m {
	case ModeVelocity:
		return "velocity"
	case ModeSimplified:
		return "simplified"
	default:
		return "position"
	}
}

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "position":
		return ModePosition, true
	case "velocity":
		return ModeVelocity, true
	case "simplified":
		return ModeSimplified, true
	}
	return ModePosition, false
}

// Next cycles to the following mode, wrapping around.
func (m Mode) Next() Mode {
	switch m {
	case ModePosition:
		return ModeVelocity
	case ModeVelocity:
		return ModeSimplified
	default:
		return ModePosition
	}
}

// Params holds the policy tunables.
type Params struct {
	Mode Mode

	// SensitivityH/V are the head deflections (degrees) mapped to full
	// control deflection. Lower = more sensitive.
	SensitivityH float64
	SensitivityV float64

	// VelocityGain scales per-tick signal change in velocity mode.
	VelocityGain float64

	// SimplifiedThrottle is the constant forward value in simplified mode.
	SimplifiedThrottle float64

	// ReverseThreshold is the normalized backward pitch beyond which the
	// backward intent engages.
	ReverseThreshold float64

	// MouthThrottle derives throttle from mouth openness instead of pitch,
	// for users who cannot lean reliably.
	MouthThrottle bool
}

// Map converts one filtered signal into intent. prev is the previous tick's
// signal, used by velocity mode; pass the zero value on the first tick.
//
// By construction steer is a single signed scalar, so left and right can
// never be commanded simultaneously; the same holds for forward/backward
// through the signed throttle.
func Map(sig, prev filter.Signal, p Params) Intent {
	var intent Intent

	switch p.Mode {
	case ModeVelocity:
		intent.Steer = clamp(p.VelocityGain*(sig.DYaw-prev.DYaw)/p.SensitivityH, -1, 1)
		intent.Throttle = clamp(p.VelocityGain*(sig.DPitch-prev.DPitch)/p.SensitivityV, -1, 1)
		if intent.Throttle < -p.ReverseThreshold {
			intent.Reverse = true
		}

	case ModeSimplified:
		intent.Steer = clamp(sig.DYaw/p.SensitivityH, -1, 1)
		intent.Throttle = p.SimplifiedThrottle

	default: // ModePosition
		intent.Steer = clamp(sig.DYaw/p.SensitivityH, -1, 1)

		if p.MouthThrottle {
			intent.Throttle = sig.MouthNorm
		} else {
			intent.Throttle = clamp(sig.DPitch/p.SensitivityV, -1, 1)
		}

		pitchNorm := clamp(sig.DPitch/p.SensitivityV, -1, 1)
		if pitchNorm < -p.ReverseThreshold {
			intent.Reverse = true
			if p.MouthThrottle {
				intent.Throttle = pitchNorm
			}
		} else if intent.Throttle < 0 {
			// Backward lean below the reverse threshold coasts.
			intent.Throttle = 0
		}
	}

	intent.Flags = gestureFlags(sig)
	if intent.Flags.Has(FlagEmergencyBrake) {
		intent.Brake = true
	}

	return intent
}

// gestureFlags maps gesture edges to side flags, identically in all modes.
// A simultaneous left+right blink is a deliberate pause toggle, not two
// turn signals.
func gestureFlags(sig filter.Signal) FlagSet {
	var flags FlagSet

	switch {
	case sig.BlinkLeftEdge && sig.BlinkRightEdge:
		flags = flags.With(FlagTogglePause)
	case sig.BlinkLeftEdge:
		flags = flags.With(FlagTurnSignalLeft)
	case sig.BlinkRightEdge:
		flags = flags.With(FlagTurnSignalRight)
	}

	if sig.MouthOpenEdge {
		flags = flags.With(FlagEmergencyBrake)
	}
	return flags
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
