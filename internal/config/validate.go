package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig indicates a configuration snapshot failed validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s = %v: %s", e.Field, e.Value, e.Reason)
}

// ValidationErrors collects every violation found in one pass, so the user
// can fix the whole file at once instead of replaying errors one by one.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Unwrap() error {
	return ErrInvalidConfig
}

// Validate checks every tunable against its allowed range.
// It returns nil or a ValidationErrors listing all violations.
func (c SessionConfig) Validate() error {
	var errs ValidationErrors

	add := func(field string, value any, reason string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Reason: reason})
	}

	if c.Loop.TickIntervalMs < 5 {
		add("loop.tick_interval_ms", c.Loop.TickIntervalMs, "must be at least 5")
	}
	if c.Sensitivity.Horizontal <= 0 {
		add("sensitivity.horizontal", c.Sensitivity.Horizontal, "must be positive")
	}
	if c.Sensitivity.Vertical <= 0 {
		add("sensitivity.vertical", c.Sensitivity.Vertical, "must be positive")
	}
	if c.DeadZone.Horizontal < 0 {
		add("dead_zone.horizontal", c.DeadZone.Horizontal, "must not be negative")
	}
	if c.DeadZone.Vertical < 0 {
		add("dead_zone.vertical", c.DeadZone.Vertical, "must not be negative")
	}
	if c.DeadZone.Roll < 0 {
		add("dead_zone.roll", c.DeadZone.Roll, "must not be negative")
	}
	if c.DeadZone.Mouth < 0 {
		add("dead_zone.mouth", c.DeadZone.Mouth, "must not be negative")
	}
	if c.Smoothing.EnableKalman {
		if c.Smoothing.KalmanQ <= 0 {
			add("smoothing.kalman_q", c.Smoothing.KalmanQ, "must be positive")
		}
		if c.Smoothing.KalmanR <= 0 {
			add("smoothing.kalman_r", c.Smoothing.KalmanR, "must be positive")
		}
	}
	if c.Smoothing.EnableEMA && (c.Smoothing.EMAAlpha <= 0 || c.Smoothing.EMAAlpha > 1) {
		add("smoothing.ema_alpha", c.Smoothing.EMAAlpha, "must be in (0, 1]")
	}
	if c.Smoothing.EnableTrend && (c.Smoothing.TrendBeta <= 0 || c.Smoothing.TrendBeta > 1) {
		add("smoothing.trend_beta", c.Smoothing.TrendBeta, "must be in (0, 1]")
	}
	if c.Smoothing.TremorWindowTicks < 10 {
		add("smoothing.tremor_window_ticks", c.Smoothing.TremorWindowTicks, "must be at least 10")
	}

	switch c.Control.Mode {
	case "position", "velocity", "simplified":
	default:
		add("control.mode", c.Control.Mode, "must be position, velocity or simplified")
	}
	if c.Control.SimplifiedThrottle <= 0 || c.Control.SimplifiedThrottle > 1 {
		add("control.simplified_throttle", c.Control.SimplifiedThrottle, "must be in (0, 1]")
	}
	if c.Control.ReverseThreshold <= 0 || c.Control.ReverseThreshold > 1 {
		add("control.reverse_threshold", c.Control.ReverseThreshold, "must be in (0, 1]")
	}
	if c.Control.VelocityGain <= 0 {
		add("control.velocity_gain", c.Control.VelocityGain, "must be positive")
	}

	if c.Gestures.MouthOpenThreshold <= 0 || c.Gestures.MouthOpenThreshold > 1 {
		add("gestures.mouth_open_threshold", c.Gestures.MouthOpenThreshold, "must be in (0, 1]")
	}
	if c.Gestures.MouthFullOpen <= 0 {
		add("gestures.mouth_full_open", c.Gestures.MouthFullOpen, "must be positive")
	}
	if c.Gestures.BlinkHoldTicks < 1 {
		add("gestures.blink_hold_ticks", c.Gestures.BlinkHoldTicks, "must be at least 1")
	}

	if c.Actuator.Activation <= 0 || c.Actuator.Activation > 1 {
		add("actuator.activation", c.Actuator.Activation, "must be in (0, 1]")
	}
	if c.Actuator.Release < 0 {
		add("actuator.release", c.Actuator.Release, "must not be negative")
	}
	if c.Actuator.Release >= c.Actuator.Activation {
		add("actuator.release", c.Actuator.Release, "must be below actuator.activation for hysteresis")
	}
	switch c.Actuator.CruiseMode {
	case "continuous", "pulsed":
	default:
		add("actuator.cruise_mode", c.Actuator.CruiseMode, "must be continuous or pulsed")
	}
	if c.Actuator.PulseBasePeriodMs < 50 {
		add("actuator.pulse_base_period_ms", c.Actuator.PulseBasePeriodMs, "must be at least 50")
	}
	if c.Actuator.CruisePeriodMs < 50 {
		add("actuator.cruise_period_ms", c.Actuator.CruisePeriodMs, "must be at least 50")
	}

	for field, key := range map[string]string{
		"keys.forward":  c.Keys.Forward,
		"keys.backward": c.Keys.Backward,
		"keys.left":     c.Keys.Left,
		"keys.right":    c.Keys.Right,
	} {
		if key == "" {
			add(field, key, "must not be empty")
		}
	}

	if c.Safety.EnableAutoPause && c.Safety.PauseDelaySeconds <= 0 {
		add("safety.pause_delay_seconds", c.Safety.PauseDelaySeconds, "must be positive")
	}
	if c.Safety.ResumeStableTicks < 1 {
		add("safety.resume_stable_ticks", c.Safety.ResumeStableTicks, "must be at least 1")
	}
	if c.Safety.FatigueBreakMinutes < 0 {
		add("safety.fatigue_break_minutes", c.Safety.FatigueBreakMinutes, "must not be negative")
	}

	if c.Calibration.Seconds <= 0 {
		add("calibration.seconds", c.Calibration.Seconds, "must be positive")
	}
	if c.Calibration.MinSamples < 1 {
		add("calibration.min_samples", c.Calibration.MinSamples, "must be at least 1")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
