package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context-magnifier/internal/grid"
)

func TestApplyGridOptions(t *testing.T) {
	base := grid.DefaultConfig()

	cfg, err := ApplyGridOptions(base, map[string]float64{
		"grid_cols":            32,
		"button_importance":    5.0,
		"confidence_threshold": 40,
	})
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Cols)
	assert.Equal(t, 5.0, cfg.ButtonImportance)
	assert.Equal(t, 40.0, cfg.ConfidenceThreshold)

	// Untouched options keep their base values.
	assert.Equal(t, base.Rows, cfg.Rows)
	assert.Equal(t, base.ErrorImportance, cfg.ErrorImportance)
}

func TestApplyGridOptionsRejectsUnknownKey(t *testing.T) {
	base := grid.DefaultConfig()

	_, err := ApplyGridOptions(base, map[string]float64{"grdi_cols": 32})
	require.Error(t, err)

	var cfgErr *grid.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "grdi_cols", cfgErr.Option)
}

func TestApplyGridOptionsRejectsInvalidValue(t *testing.T) {
	base := grid.DefaultConfig()

	got, err := ApplyGridOptions(base, map[string]float64{"grid_cols": 0})
	require.Error(t, err)

	var cfgErr *grid.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "grid_cols", cfgErr.Option)

	// A failed apply returns the base untouched, never a partial config.
	assert.Equal(t, base, got)
}

func TestApplyGridOptionsEmpty(t *testing.T) {
	base := grid.DefaultConfig()
	cfg, err := ApplyGridOptions(base, nil)
	require.NoError(t, err)
	assert.Equal(t, base, cfg)
}

func TestGridConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store := Load()
	assert.Equal(t, grid.DefaultConfig(), store.GridConfig())
}

func TestGridConfigUsesStoredValues(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store := Load()
	store.SetFloat("grid_cols", 32)
	store.SetFloat("error_importance", 4.5)

	cfg := store.GridConfig()
	assert.Equal(t, 32, cfg.Cols)
	assert.Equal(t, 4.5, cfg.ErrorImportance)
	assert.Equal(t, grid.DefaultConfig().Rows, cfg.Rows)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store := Load()
	store.SetFloat("grid_cols", 24)
	store.SetString("calibration_path", "/tmp/cal.json")
	store.SetBool("continuous_update", true)
	require.NoError(t, store.Save())

	reloaded := Load()
	assert.Equal(t, 24.0, reloaded.Float("grid_cols", 0))
	assert.Equal(t, "/tmp/cal.json", reloaded.String("calibration_path", ""))
	assert.True(t, reloaded.Bool("continuous_update", false))
}

func TestAccessorFallbacks(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	store := Load()
	assert.Equal(t, 7.5, store.Float("missing", 7.5))
	assert.Equal(t, "x", store.String("missing", "x"))
	assert.True(t, store.Bool("missing", true))
}
