package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.NoError(t, GentleConfig().Validate())
	require.NoError(t, ResponsiveConfig().Validate())
}

func TestValidateRejectsBadAlpha(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing.EMAAlpha = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "ema_alpha")
}

func TestValidateRejectsNegativeDeadZone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeadZone.Horizontal = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dead_zone.horizontal")
}

func TestValidateRejectsInvertedHysteresis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Actuator.Release = cfg.Actuator.Activation

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actuator.release")
}

func TestValidateRejectsSmallTremorWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing.TremorWindowTicks = 5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tremor_window_ticks")
}

func TestValidateRejectsNegativeFatigueBreak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Safety.FatigueBreakMinutes = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fatigue_break_minutes")
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smoothing.EMAAlpha = 0
	cfg.Control.Mode = "warp"
	cfg.Keys.Forward = ""

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facedrive.yaml")
	data := []byte("sensitivity:\n  horizontal: 20.0\ncontrol:\n  mode: simplified\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20.0, cfg.Sensitivity.Horizontal)
	assert.Equal(t, "simplified", cfg.Control.Mode)
	// Untouched sections keep defaults.
	assert.Equal(t, DefaultConfig().Keys, cfg.Keys)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestStoreKeepsKnownGoodOnInvalidApply(t *testing.T) {
	store, err := NewStore(DefaultConfig())
	require.NoError(t, err)

	bad := DefaultConfig()
	bad.Smoothing.EMAAlpha = -1
	require.Error(t, store.Apply(bad))

	assert.Equal(t, DefaultConfig().Smoothing.EMAAlpha, store.Current().Smoothing.EMAAlpha)
}

func TestStoreUpdate(t *testing.T) {
	store, err := NewStore(DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, store.Update(func(c *SessionConfig) {
		c.Sensitivity.Horizontal *= 0.9
	}))
	assert.InDelta(t, 13.5, store.Current().Sensitivity.Horizontal, 1e-9)
}
