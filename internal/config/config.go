// Package config loads and validates the facedrive session configuration.
//
// A SessionConfig is an immutable snapshot: it is decoded once, validated,
// and passed by value into the control loop. Runtime adjustments (sensitivity
// steps, mode cycling) produce a new snapshot rather than mutating the old
// one, so every tick observes a consistent set of parameters.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PoseSourceConfig describes the external perception endpoint.
type PoseSourceConfig struct {
	URL                string `yaml:"url" json:"url"`
	ReconnectBackoffMs int    `yaml:"reconnect_backoff_ms" json:"reconnect_backoff_ms"`
}

// LoopConfig holds tick loop timing.
type LoopConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms" json:"tick_interval_ms"`
}

// SensitivityConfig maps head deflection (degrees) to full control deflection.
// Lower values mean more sensitive.
type SensitivityConfig struct {
	Horizontal float64 `yaml:"horizontal" json:"horizontal"`
	Vertical   float64 `yaml:"vertical" json:"vertical"`
}

// DeadZoneConfig holds per-axis suppression radii.
type DeadZoneConfig struct {
	Horizontal float64 `yaml:"horizontal" json:"horizontal"`
	Vertical   float64 `yaml:"vertical" json:"vertical"`
	Roll       float64 `yaml:"roll" json:"roll"`
	Mouth      float64 `yaml:"mouth" json:"mouth"`
}

// SmoothingConfig selects and tunes the filter stages.
type SmoothingConfig struct {
	EnableKalman bool    `yaml:"enable_kalman" json:"enable_kalman"`
	KalmanQ      float64 `yaml:"kalman_q" json:"kalman_q"`
	KalmanR      float64 `yaml:"kalman_r" json:"kalman_r"`
	EnableEMA    bool    `yaml:"enable_ema" json:"enable_ema"`
	EMAAlpha     float64 `yaml:"ema_alpha" json:"ema_alpha"`
	EnableTrend  bool    `yaml:"enable_trend" json:"enable_trend"`
	TrendBeta    float64 `yaml:"trend_beta" json:"trend_beta"`

	// AdaptiveDeadZone widens the yaw/pitch dead zones while tremor is
	// detected in the raw signal.
	AdaptiveDeadZone  bool `yaml:"adaptive_dead_zone" json:"adaptive_dead_zone"`
	TremorWindowTicks int  `yaml:"tremor_window_ticks" json:"tremor_window_ticks"`
}

// ControlConfig selects the control mode and its parameters.
type ControlConfig struct {
	Mode               string  `yaml:"mode" json:"mode"` // position|velocity|simplified
	VelocityGain       float64 `yaml:"velocity_gain" json:"velocity_gain"`
	SimplifiedThrottle float64 `yaml:"simplified_throttle" json:"simplified_throttle"`
	ReverseThreshold   float64 `yaml:"reverse_threshold" json:"reverse_threshold"`
	MouthThrottle      bool    `yaml:"mouth_throttle" json:"mouth_throttle"`
}

// GestureConfig tunes discrete gesture detection.
type GestureConfig struct {
	MouthOpenThreshold float64 `yaml:"mouth_open_threshold" json:"mouth_open_threshold"`
	MouthFullOpen      float64 `yaml:"mouth_full_open" json:"mouth_full_open"`
	BlinkHoldTicks     int     `yaml:"blink_hold_ticks" json:"blink_hold_ticks"`
}

// ActuatorConfig tunes key hold behavior.
type ActuatorConfig struct {
	Activation        float64 `yaml:"activation" json:"activation"`
	Release           float64 `yaml:"release" json:"release"`
	PulsedSteering    bool    `yaml:"pulsed_steering" json:"pulsed_steering"`
	PulseBasePeriodMs int     `yaml:"pulse_base_period_ms" json:"pulse_base_period_ms"`
	CruiseMode        string  `yaml:"cruise_mode" json:"cruise_mode"` // continuous|pulsed
	CruisePeriodMs    int     `yaml:"cruise_period_ms" json:"cruise_period_ms"`
}

// KeyBindings maps logical controls to injected key identifiers.
type KeyBindings struct {
	Forward  string `yaml:"forward" json:"forward"`
	Backward string `yaml:"backward" json:"backward"`
	Left     string `yaml:"left" json:"left"`
	Right    string `yaml:"right" json:"right"`
}

// SafetyConfig tunes the signal-loss auto pause and the fatigue estimator.
type SafetyConfig struct {
	EnableAutoPause   bool    `yaml:"enable_auto_pause" json:"enable_auto_pause"`
	PauseDelaySeconds float64 `yaml:"pause_delay_seconds" json:"pause_delay_seconds"`
	ResumeStableTicks int     `yaml:"resume_stable_ticks" json:"resume_stable_ticks"`

	// FatigueBreakMinutes is the continuous driving time that alone pushes
	// the fatigue score to its break threshold. Zero disables the estimator.
	FatigueBreakMinutes float64 `yaml:"fatigue_break_minutes" json:"fatigue_break_minutes"`
}

// CalibrationConfig tunes the neutral reference capture window.
type CalibrationConfig struct {
	Seconds    float64 `yaml:"seconds" json:"seconds"`
	MinSamples int     `yaml:"min_samples" json:"min_samples"`
	AutoTune   bool    `yaml:"auto_tune" json:"auto_tune"`
}

// SessionLogConfig tunes the per-tick CSV log.
type SessionLogConfig struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	Dir             string `yaml:"dir" json:"dir"`
	FlushIntervalMs int    `yaml:"flush_interval_ms" json:"flush_interval_ms"`
}

// WebConfig tunes the control dashboard server.
type WebConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    string `yaml:"port" json:"port"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// SessionConfig is the top-level configuration snapshot.
type SessionConfig struct {
	PoseSource  PoseSourceConfig  `yaml:"pose_source" json:"pose_source"`
	Loop        LoopConfig        `yaml:"loop" json:"loop"`
	Sensitivity SensitivityConfig `yaml:"sensitivity" json:"sensitivity"`
	DeadZone    DeadZoneConfig    `yaml:"dead_zone" json:"dead_zone"`
	Smoothing   SmoothingConfig   `yaml:"smoothing" json:"smoothing"`
	Control     ControlConfig     `yaml:"control" json:"control"`
	Gestures    GestureConfig     `yaml:"gestures" json:"gestures"`
	Actuator    ActuatorConfig    `yaml:"actuator" json:"actuator"`
	Keys        KeyBindings       `yaml:"keys" json:"keys"`
	Safety      SafetyConfig      `yaml:"safety" json:"safety"`
	Calibration CalibrationConfig `yaml:"calibration" json:"calibration"`
	SessionLog  SessionLogConfig  `yaml:"session_log" json:"session_log"`
	Web         WebConfig         `yaml:"web" json:"web"`
	Log         LogConfig         `yaml:"log" json:"log"`
}

// TickInterval returns the tick period as a duration.
func (c SessionConfig) TickInterval() time.Duration {
	return time.Duration(c.Loop.TickIntervalMs) * time.Millisecond
}

// PauseDelay returns the signal-loss pause threshold as a duration.
func (c SessionConfig) PauseDelay() time.Duration {
	return time.Duration(c.Safety.PauseDelaySeconds * float64(time.Second))
}

// CalibrationWindow returns the calibration capture duration.
func (c SessionConfig) CalibrationWindow() time.Duration {
	return time.Duration(c.Calibration.Seconds * float64(time.Second))
}

// PulseBasePeriod returns the steering pulse base period.
func (c SessionConfig) PulseBasePeriod() time.Duration {
	return time.Duration(c.Actuator.PulseBasePeriodMs) * time.Millisecond
}

// CruisePeriod returns the pulsed cruise base period.
func (c SessionConfig) CruisePeriod() time.Duration {
	return time.Duration(c.Actuator.CruisePeriodMs) * time.Millisecond
}

// FatigueBreakAfter returns the fatigue saturation window; zero means the
// estimator is off.
func (c SessionConfig) FatigueBreakAfter() time.Duration {
	return time.Duration(c.Safety.FatigueBreakMinutes * float64(time.Minute))
}

// ReconnectBackoff returns the pose source reconnect backoff.
func (c SessionConfig) ReconnectBackoff() time.Duration {
	return time.Duration(c.PoseSource.ReconnectBackoffMs) * time.Millisecond
}

// DefaultConfig returns the recommended configuration for typical users.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		PoseSource: PoseSourceConfig{
			URL:                "ws://127.0.0.1:8771/pose",
			ReconnectBackoffMs: 500,
		},
		Loop: LoopConfig{TickIntervalMs: 20}, // 50 Hz control loop
		Sensitivity: SensitivityConfig{
			Horizontal: 15.0, // 15° of yaw = full steer
			Vertical:   12.0,
		},
		DeadZone: DeadZoneConfig{
			Horizontal: 3.0,
			Vertical:   2.5,
			Roll:       4.0,
			Mouth:      0.04,
		},
		Smoothing: SmoothingConfig{
			EnableKalman: true,
			KalmanQ:      0.05,
			KalmanR:      0.8,
			EnableEMA:    true,
			EMAAlpha:     0.45,
			EnableTrend:       false,
			TrendBeta:         0.1,
			AdaptiveDeadZone:  false,
			TremorWindowTicks: 50, // one second of signal at the default tick rate
		},
		Control: ControlConfig{
			Mode:               "position",
			VelocityGain:       6.0,
			SimplifiedThrottle: 0.6,
			ReverseThreshold:   0.5,
			MouthThrottle:      false,
		},
		Gestures: GestureConfig{
			MouthOpenThreshold: 0.35,
			MouthFullOpen:      0.5,
			BlinkHoldTicks:     2,
		},
		Actuator: ActuatorConfig{
			Activation:        0.30,
			Release:           0.18,
			PulsedSteering:    true,
			PulseBasePeriodMs: 350,
			CruiseMode:        "continuous",
			CruisePeriodMs:    500,
		},
		Keys: KeyBindings{
			Forward:  "w",
			Backward: "s",
			Left:     "a",
			Right:    "d",
		},
		Safety: SafetyConfig{
			EnableAutoPause:     true,
			PauseDelaySeconds:   1.0,
			ResumeStableTicks:   10,
			FatigueBreakMinutes: 20,
		},
		Calibration: CalibrationConfig{
			Seconds:    2.0,
			MinSamples: 10,
			AutoTune:   false,
		},
		SessionLog: SessionLogConfig{
			Enabled:         true,
			Dir:             "sessions",
			FlushIntervalMs: 1000,
		},
		Web: WebConfig{Enabled: true, Port: "8780"},
		Log: LogConfig{Level: "info"},
	}
}

// GentleConfig returns a configuration for users with pronounced tremor:
// wider dead zones, heavier smoothing, slower key toggling.
func GentleConfig() SessionConfig {
	cfg := DefaultConfig()
	cfg.DeadZone.Horizontal = 5.0
	cfg.DeadZone.Vertical = 4.0
	cfg.Smoothing.KalmanR = 1.6
	cfg.Smoothing.EMAAlpha = 0.25
	cfg.Smoothing.AdaptiveDeadZone = true
	cfg.Actuator.Activation = 0.40
	cfg.Actuator.Release = 0.20
	cfg.Safety.PauseDelaySeconds = 1.5
	return cfg
}

// ResponsiveConfig returns a configuration for users with steady control
// who want minimal latency.
func ResponsiveConfig() SessionConfig {
	cfg := DefaultConfig()
	cfg.DeadZone.Horizontal = 2.0
	cfg.DeadZone.Vertical = 1.5
	cfg.Smoothing.KalmanQ = 0.12
	cfg.Smoothing.KalmanR = 0.4
	cfg.Smoothing.EMAAlpha = 0.7
	cfg.Actuator.Activation = 0.22
	cfg.Actuator.Release = 0.14
	return cfg
}

// Load reads and parses a session config file, applying defaults for any
// section the file omits.
func Load(path string) (SessionConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
