// Package drive runs the control loop: it pulls pose samples, conditions
// them through the filter chain, maps them to intent, applies the safety
// gate and drives the key actuator, once per tick.
//
// All pipeline state lives on the loop goroutine. Dashboard commands arrive
// over a channel and are consumed between ticks, so no component below this
// package needs locking.
package drive

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-facedrive/internal/config"
	"github.com/teslashibe/go-facedrive/internal/log"
	"github.com/teslashibe/go-facedrive/pkg/actuate"
	"github.com/teslashibe/go-facedrive/pkg/calibrate"
	"github.com/teslashibe/go-facedrive/pkg/control"
	"github.com/teslashibe/go-facedrive/pkg/filter"
	"github.com/teslashibe/go-facedrive/pkg/pose"
	"github.com/teslashibe/go-facedrive/pkg/safety"
	"github.com/teslashibe/go-facedrive/pkg/session"
	"github.com/teslashibe/go-facedrive/pkg/web"
)

// Loop commands.
const (
	CmdRecalibrate     = "recalibrate"
	CmdPause           = "pause"
	CmdResume          = "resume"
	CmdCycleMode       = "cycle-mode"
	CmdSensitivityUp   = "sensitivity-up"
	CmdSensitivityDown = "sensitivity-down"
	CmdQuit            = "quit"
)

// ErrUnknownCommand indicates a command name the loop does not handle.
var ErrUnknownCommand = errors.New("drive: unknown command")

// ErrCommandQueueFull indicates the loop is not draining commands.
var ErrCommandQueueFull = errors.New("drive: command queue full")

// sensitivityStep is the per-command multiplier on the degrees-to-full
// mapping. Stepping up shrinks the range, making control more sensitive.
const sensitivityStep = 0.9

// statusRefreshInterval throttles dashboard status snapshots.
const statusRefreshInterval = 500 * time.Millisecond

// poseStaleAfter is how long after the last fresh sample the dashboard
// still reports the pose source as connected.
const poseStaleAfter = time.Second

// Options wires the loop's collaborators. Dashboard and Log are optional.
type Options struct {
	Store     *config.Store
	Source    pose.Source
	Injector  actuate.Injector
	Dashboard *web.Server
	Log       *session.Writer
}

// Loop is the per-session control loop.
type Loop struct {
	store     *config.Store
	source    pose.Source
	dashboard *web.Server
	logW      *session.Writer
	logger    *slog.Logger

	cfg        config.SessionConfig
	chain      *filter.Chain
	calibrator *calibrate.Calibrator
	actuator   *actuate.Actuator
	monitor    *safety.Monitor
	tremor     *filter.TremorDetector
	fatigue    *safety.Fatigue

	mode            control.Mode
	prevSig         filter.Signal
	lastIntent      control.Intent
	lastState       safety.State
	tremorLevel     filter.TremorLevel
	breakSuggested  bool
	lastTelemetryAt time.Time
	lastFreshAt     time.Time
	lastStatusAt    time.Time
	ticks           uint64

	commands chan string
	cancel   context.CancelFunc
}

// New creates a loop from a validated configuration store.
func New(opts Options) *Loop {
	cfg := opts.Store.Current()
	mode, _ := control.ParseMode(cfg.Control.Mode)

	l := &Loop{
		store:      opts.Store,
		source:     opts.Source,
		dashboard:  opts.Dashboard,
		logW:       opts.Log,
		logger:     log.Component("drive"),
		cfg:        cfg,
		chain:      filter.NewChain(filterSettings(cfg)),
		calibrator: calibrate.New(cfg.CalibrationWindow(), cfg.Calibration.MinSamples),
		actuator:   actuate.New(opts.Injector, actuatorParams(cfg)),
		monitor:    safety.New(safetyParams(cfg)),
		tremor:     filter.NewTremorDetector(cfg.Smoothing.TremorWindowTicks, cfg.TickInterval()),
		fatigue:    safety.NewFatigue(safety.FatigueParams{BreakAfter: cfg.FatigueBreakAfter()}),
		mode:       mode,
		commands:   make(chan string, 16),
	}

	if l.dashboard != nil {
		l.dashboard.UpdateStatus(func(st *web.Status) {
			st.Mode = l.mode.String()
			st.SensitivityH = cfg.Sensitivity.Horizontal
			st.SensitivityV = cfg.Sensitivity.Vertical
			st.TremorLevel = filter.TremorNone.String()
		})
	}
	return l
}

// Command queues a command for the loop. Safe to call from any goroutine.
func (l *Loop) Command(name string) error {
	switch name {
	case CmdRecalibrate, CmdPause, CmdResume, CmdCycleMode,
		CmdSensitivityUp, CmdSensitivityDown, CmdQuit:
	default:
		return ErrUnknownCommand
	}
	select {
	case l.commands <- name:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

// Run drives the loop until the context is cancelled or a quit command
// arrives. Every held key is released before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	ctx, l.cancel = context.WithCancel(ctx)
	defer l.cancel()

	ticker := time.NewTicker(l.cfg.TickInterval())
	defer ticker.Stop()

	var flushC <-chan time.Time
	if l.logW != nil {
		flushTicker := time.NewTicker(time.Duration(l.cfg.SessionLog.FlushIntervalMs) * time.Millisecond)
		defer flushTicker.Stop()
		flushC = flushTicker.C
	}

	l.logger.Info("loop started",
		"mode", l.mode.String(),
		"tick_interval", l.cfg.TickInterval())
	l.startCalibration(time.Now())

	defer func() {
		l.actuator.ReleaseAll()
		if l.logW != nil {
			if err := l.logW.Flush(); err != nil {
				l.logger.Warn("session log flush failed", "error", err)
			}
		}
		l.logger.Info("loop stopped", "ticks", l.ticks)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case name := <-l.commands:
			l.handleCommand(name, time.Now())

		case now := <-ticker.C:
			l.step(now)

		case <-flushC:
			if err := l.logW.Flush(); err != nil {
				l.logger.Warn("session log flush failed", "error", err)
			}
		}
	}
}

// step advances the pipeline by one tick.
func (l *Loop) step(now time.Time) {
	l.ticks++

	sample, fresh := l.source.Next()
	faceFound := fresh && sample.FaceFound
	if fresh {
		l.lastFreshAt = now
	}

	state, release := l.monitor.Observe(faceFound, now)
	if release {
		l.actuator.ReleaseAll()
		l.logger.Warn("actuation paused, keys released", "state", state.String())
	}
	l.noteState(state)

	if l.calibrator.Active() {
		l.stepCalibration(sample, fresh, now)
		l.record(sample, filter.Signal{}, control.Neutral, "calibrating", "")
		l.refreshStatus(now, control.Neutral)
		return
	}

	sig := l.prevSig
	intent := l.lastIntent
	if fresh {
		sig = l.chain.Update(sample)
		l.observeTremor(sample, now)
		intent = control.Map(sig, l.prevSig, l.policyParams())
		l.prevSig = sig
		l.lastIntent = intent

		if intent.Flags.Has(control.FlagTogglePause) {
			state = l.monitor.TogglePause(now)
			l.logger.Info("pause toggled by gesture", "state", state.String())
			l.noteState(state)
		}
	}

	gated := l.monitor.Gate(intent)
	l.observeFatigue(gated.Steer, state, now)

	before := l.actuator.HeldKeys()
	l.actuator.Apply(gated, now)
	events := keyDiff(before, l.actuator.HeldKeys())

	l.record(sample, sig, gated, state.String(), events)
	l.publishTelemetry(sample, sig, gated, state, faceFound)
	l.refreshStatus(now, gated)
}

// observeTremor feeds the detector the baseline-relative pose and reacts to
// level changes, widening the dead zones when adaptation is enabled.
func (l *Loop) observeTremor(sample pose.Sample, now time.Time) {
	neutral := l.chain.Neutral()
	l.tremor.Observe(sample.Yaw-neutral.Yaw0, sample.Pitch-neutral.Pitch0, now)

	lvl := l.tremor.Level()
	if lvl == l.tremorLevel {
		return
	}
	l.tremorLevel = lvl
	l.logger.Info("tremor level changed",
		"level", lvl.String(),
		"intensity", l.tremor.Intensity())
	if l.cfg.Smoothing.AdaptiveDeadZone {
		l.rebuildChain()
	}
}

// observeFatigue advances the fatigue estimate and logs break transitions.
func (l *Loop) observeFatigue(steer float64, state safety.State, now time.Time) {
	if !l.fatigue.Enabled() {
		return
	}
	l.fatigue.Observe(steer, state != safety.StateActive, now)

	rec := l.fatigue.BreakRecommended()
	if rec == l.breakSuggested {
		return
	}
	l.breakSuggested = rec
	if rec {
		l.logger.Warn("fatigue break recommended", "score", l.fatigue.Score())
	} else {
		l.logger.Info("fatigue recovered", "score", l.fatigue.Score())
	}
}

func (l *Loop) handleCommand(name string, now time.Time) {
	l.logger.Info("command received", "command", name)

	switch name {
	case CmdQuit:
		l.cancel()

	case CmdRecalibrate:
		l.actuator.ReleaseAll()
		l.startCalibration(now)

	case CmdPause:
		if l.monitor.State() == safety.StateActive {
			l.noteState(l.monitor.TogglePause(now))
			l.actuator.ReleaseAll()
		}

	case CmdResume:
		if l.monitor.State() == safety.StateManualPause {
			l.noteState(l.monitor.TogglePause(now))
		}

	case CmdCycleMode:
		next := l.mode.Next()
		err := l.store.Update(func(c *config.SessionConfig) {
			c.Control.Mode = next.String()
		})
		if err != nil {
			l.logger.Warn("mode cycle rejected", "error", err)
			return
		}
		l.actuator.ReleaseAll()
		l.prevSig = filter.Signal{}
		l.lastIntent = control.Neutral
		l.applyConfig(l.store.Current())
		l.logger.Info("control mode switched", "mode", l.mode.String())

	case CmdSensitivityUp, CmdSensitivityDown:
		step := sensitivityStep
		if name == CmdSensitivityDown {
			step = 1 / sensitivityStep
		}
		err := l.store.Update(func(c *config.SessionConfig) {
			c.Sensitivity.Horizontal *= step
			c.Sensitivity.Vertical *= step
		})
		if err != nil {
			l.logger.Warn("sensitivity step rejected", "error", err)
			return
		}
		l.applyConfig(l.store.Current())
		l.logger.Info("sensitivity adjusted",
			"horizontal", l.cfg.Sensitivity.Horizontal,
			"vertical", l.cfg.Sensitivity.Vertical)
	}
}

// applyConfig installs a new snapshot into the derived pipeline components.
// The filter chain is rebuilt with the active neutral reference preserved.
func (l *Loop) applyConfig(cfg config.SessionConfig) {
	l.cfg = cfg
	l.mode, _ = control.ParseMode(cfg.Control.Mode)
	l.rebuildChain()
	l.actuator.SetParams(actuatorParams(cfg))
	l.monitor.SetParams(safetyParams(cfg))

	if l.dashboard != nil {
		l.dashboard.UpdateStatus(func(st *web.Status) {
			st.Mode = l.mode.String()
			st.SensitivityH = cfg.Sensitivity.Horizontal
			st.SensitivityV = cfg.Sensitivity.Vertical
		})
	}
}

// rebuildChain reinstalls the filter chain from the active config, with the
// neutral reference preserved and the tremor dead-zone widening applied.
func (l *Loop) rebuildChain() {
	settings := filterSettings(l.cfg)
	if l.cfg.Smoothing.AdaptiveDeadZone {
		scale := l.tremor.DeadZoneScale()
		settings.DeadZone[filter.AxisYaw] *= scale
		settings.DeadZone[filter.AxisPitch] *= scale
	}
	neutral := l.chain.Neutral()
	l.chain = filter.NewChain(settings)
	l.chain.Reset(neutral)
}

func (l *Loop) startCalibration(now time.Time) {
	l.calibrator.Begin(now)
	l.prevSig = filter.Signal{}
	l.lastIntent = control.Neutral
	l.tremor.Reset()
	l.tremorLevel = filter.TremorNone
	l.logger.Info("calibration started",
		"window", l.cfg.CalibrationWindow(),
		"min_samples", l.cfg.Calibration.MinSamples)

	if l.dashboard != nil {
		l.dashboard.UpdateStatus(func(st *web.Status) {
			st.Calibrating = true
			st.State = "calibrating"
		})
	}
}

func (l *Loop) stepCalibration(sample pose.Sample, fresh bool, now time.Time) {
	done := false
	if fresh {
		done = l.calibrator.Observe(sample)
	} else if l.calibrator.Remaining(now) == 0 {
		// The source went quiet; close the window on wall time.
		done = true
	}
	if !done {
		return
	}

	neutral, err := l.calibrator.Result()
	if err != nil {
		l.logger.Warn("calibration failed, retrying", "error", err)
		l.startCalibration(now)
		return
	}

	l.chain.Reset(neutral)
	l.logger.Info("calibration complete",
		"yaw0", neutral.Yaw0, "pitch0", neutral.Pitch0,
		"mouth_baseline", neutral.MouthBaseline)

	if l.cfg.Calibration.AutoTune {
		tuning := l.calibrator.SuggestedTuning()
		err := l.store.Update(func(c *config.SessionConfig) {
			c.DeadZone.Horizontal = tuning.DeadZoneHorizontal
			c.DeadZone.Vertical = tuning.DeadZoneVertical
			c.Gestures.MouthOpenThreshold = tuning.MouthOpenThreshold
		})
		if err != nil {
			l.logger.Warn("auto-tune rejected", "error", err)
		} else {
			l.applyConfig(l.store.Current())
			l.logger.Info("auto-tuned thresholds applied",
				"dead_zone_h", tuning.DeadZoneHorizontal,
				"dead_zone_v", tuning.DeadZoneVertical,
				"mouth_open", tuning.MouthOpenThreshold)
		}
	}

	if l.dashboard != nil {
		l.dashboard.UpdateStatus(func(st *web.Status) {
			st.Calibrating = false
			st.State = l.monitor.State().String()
		})
	}
}

// refreshStatus pushes a throttled snapshot of the live pipeline values to
// the dashboard.
func (l *Loop) refreshStatus(now time.Time, intent control.Intent) {
	if l.dashboard == nil || now.Sub(l.lastStatusAt) < statusRefreshInterval {
		return
	}
	l.lastStatusAt = now

	connected := !l.lastFreshAt.IsZero() && now.Sub(l.lastFreshAt) <= poseStaleAfter
	held := l.actuator.HeldKeys()
	ticks := l.ticks
	tremor := l.tremorLevel.String()
	fatigue := l.fatigue.Score()
	suggested := l.breakSuggested
	l.dashboard.UpdateStatus(func(st *web.Status) {
		st.PoseConnected = connected
		st.TicksTotal = ticks
		st.HeldKeys = held
		st.Steer = intent.Steer
		st.Throttle = intent.Throttle
		st.TremorLevel = tremor
		st.FatigueScore = fatigue
		st.BreakSuggested = suggested
	})
}

// noteState pushes state transitions to the dashboard.
func (l *Loop) noteState(state safety.State) {
	if state == l.lastState {
		return
	}
	l.lastState = state
	if l.dashboard != nil {
		l.dashboard.UpdateStatus(func(st *web.Status) {
			if !st.Calibrating {
				st.State = state.String()
			}
		})
	}
}

func (l *Loop) policyParams() control.Params {
	return control.Params{
		Mode:               l.mode,
		SensitivityH:       l.cfg.Sensitivity.Horizontal,
		SensitivityV:       l.cfg.Sensitivity.Vertical,
		VelocityGain:       l.cfg.Control.VelocityGain,
		SimplifiedThrottle: l.cfg.Control.SimplifiedThrottle,
		ReverseThreshold:   l.cfg.Control.ReverseThreshold,
		MouthThrottle:      l.cfg.Control.MouthThrottle,
	}
}

func (l *Loop) record(sample pose.Sample, sig filter.Signal, intent control.Intent, state, events string) {
	if l.logW == nil {
		return
	}
	l.logW.Write(session.Record{
		Sample:    sample,
		Signal:    sig,
		Intent:    intent,
		State:     state,
		KeyEvents: events,
	})
}

// filterSettings maps a config snapshot onto the filter chain tunables.
func filterSettings(cfg config.SessionConfig) filter.Settings {
	s := filter.Settings{
		EnableKalman:       cfg.Smoothing.EnableKalman,
		KalmanQ:            cfg.Smoothing.KalmanQ,
		KalmanR:            cfg.Smoothing.KalmanR,
		EnableTrend:        cfg.Smoothing.EnableTrend,
		TrendBeta:          cfg.Smoothing.TrendBeta,
		EnableEMA:          cfg.Smoothing.EnableEMA,
		EMAAlpha:           cfg.Smoothing.EMAAlpha,
		MouthFullOpen:      cfg.Gestures.MouthFullOpen,
		MouthOpenThreshold: cfg.Gestures.MouthOpenThreshold,
		BlinkHoldTicks:     cfg.Gestures.BlinkHoldTicks,
	}
	s.DeadZone[filter.AxisYaw] = cfg.DeadZone.Horizontal
	s.DeadZone[filter.AxisPitch] = cfg.DeadZone.Vertical
	s.DeadZone[filter.AxisRoll] = cfg.DeadZone.Roll
	s.DeadZone[filter.AxisMouth] = cfg.DeadZone.Mouth
	return s
}

func actuatorParams(cfg config.SessionConfig) actuate.Params {
	cruise, _ := actuate.ParseCruiseMode(cfg.Actuator.CruiseMode)
	return actuate.Params{
		Activation:      cfg.Actuator.Activation,
		Release:         cfg.Actuator.Release,
		PulsedSteering:  cfg.Actuator.PulsedSteering,
		PulseBasePeriod: cfg.PulseBasePeriod(),
		CruiseMode:      cruise,
		CruisePeriod:    cfg.CruisePeriod(),
		Bindings: actuate.Bindings{
			Forward:  cfg.Keys.Forward,
			Backward: cfg.Keys.Backward,
			Left:     cfg.Keys.Left,
			Right:    cfg.Keys.Right,
		},
	}
}

func safetyParams(cfg config.SessionConfig) safety.Params {
	return safety.Params{
		EnableAutoPause:   cfg.Safety.EnableAutoPause,
		PauseDelay:        cfg.PauseDelay(),
		ResumeStableTicks: cfg.Safety.ResumeStableTicks,
	}
}
