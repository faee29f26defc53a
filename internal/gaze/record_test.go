package gaze

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRequiresCalibration(t *testing.T) {
	cal := NewCalibrator(1000, 1000)
	_, err := cal.Export()
	assert.ErrorIs(t, err, ErrNotCalibrated)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cal := calibratedFixture(t)
	path := filepath.Join(t.TempDir(), "calibration.json")

	require.NoError(t, cal.Save(path))

	loaded, err := Load(path, 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, StateCalibrated, loaded.State())

	want := cal.Samples()
	got := loaded.Samples()
	require.Len(t, got, len(want))
	for pos, sample := range want {
		assert.Equal(t, sample, got[pos], "position %s", pos)
	}
}

func TestSaveUsesStableFieldNames(t *testing.T) {
	cal := calibratedFixture(t)
	path := filepath.Join(t.TempDir(), "calibration.json")
	require.NoError(t, cal.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "calibrated_points")
	assert.Contains(t, raw, "calibration_screen_points")
	assert.Contains(t, raw, "screen_width")
	assert.Contains(t, raw, "screen_height")
}

func TestLoadRejectsScreenMismatch(t *testing.T) {
	cal := calibratedFixture(t)
	path := filepath.Join(t.TempDir(), "calibration.json")
	require.NoError(t, cal.Save(path))

	_, err := Load(path, 1920, 1080)
	assert.ErrorIs(t, err, ErrInvalidCalibration)
}

func TestLoadRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"missing screen size", `{"calibrated_points": {}, "calibration_screen_points": {}}`},
		{"missing pupils", `{"calibration_screen_points": {}, "screen_width": 1000, "screen_height": 1000}`},
		{
			"missing position",
			`{"calibrated_points": {"center": {"left_pupil": [1, 2], "right_pupil": [3, 4]}},
			  "calibration_screen_points": {"center": [500, 500]},
			  "screen_width": 1000, "screen_height": 1000}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			_, err := Load(path, 1000, 1000)
			assert.ErrorIs(t, err, ErrInvalidCalibration)
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := Load(path, 1000, 1000)
	assert.ErrorIs(t, err, ErrInvalidCalibration)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), 1000, 1000)
	assert.Error(t, err)
}

func TestLoadRecordNil(t *testing.T) {
	_, err := LoadRecord(nil, 1000, 1000)
	assert.ErrorIs(t, err, ErrInvalidCalibration)
}
