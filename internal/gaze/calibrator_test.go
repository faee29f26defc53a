package gaze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context-magnifier/pkg/geometry"
)

// calibratedFixture builds a Calibrated calibrator for a 1000x1000
// screen with pupil samples laid out to mirror the anchor geometry.
func calibratedFixture(t *testing.T) *Calibrator {
	t.Helper()

	rec := &Record{
		CalibratedPoints: map[string]RecordPupils{
			"center": {LeftPupil: [2]float64{50, 50}, RightPupil: [2]float64{70, 50}},
			"left":   {LeftPupil: [2]float64{40, 50}, RightPupil: [2]float64{60, 50}},
			"right":  {LeftPupil: [2]float64{60, 50}, RightPupil: [2]float64{80, 50}},
			"top":    {LeftPupil: [2]float64{50, 40}, RightPupil: [2]float64{70, 40}},
			"bottom": {LeftPupil: [2]float64{50, 60}, RightPupil: [2]float64{70, 60}},
		},
		CalibrationScreenPoints: map[string][2]float64{
			"center": {500, 500},
			"left":   {50, 500},
			"right":  {950, 500},
			"top":    {500, 50},
			"bottom": {500, 950},
		},
		ScreenWidth:  1000,
		ScreenHeight: 1000,
	}

	cal, err := LoadRecord(rec, 1000, 1000)
	require.NoError(t, err)
	require.Equal(t, StateCalibrated, cal.State())
	return cal
}

func pt(x, y float64) *geometry.Point2D {
	return &geometry.Point2D{X: x, Y: y}
}

func TestMapRequiresCalibration(t *testing.T) {
	cal := NewCalibrator(1000, 1000)
	_, err := cal.Map(PupilPair{Left: pt(50, 50), Right: pt(70, 50)})
	assert.ErrorIs(t, err, ErrNotCalibrated)
}

func TestMapNoPupilsDetected(t *testing.T) {
	cal := calibratedFixture(t)
	got, err := cal.Map(PupilPair{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMapExactSampleDominates(t *testing.T) {
	cal := calibratedFixture(t)

	// A reading identical to the "right" sample lands on its anchor:
	// the zero-distance weight dwarfs every other sample.
	got, err := cal.Map(PupilPair{Left: pt(60, 50), Right: pt(80, 50)})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 950, got.X, 1e-6)
	assert.InDelta(t, 500, got.Y, 1e-6)
}

func TestMapIsConvexCombination(t *testing.T) {
	cal := calibratedFixture(t)

	readings := []PupilPair{
		{Left: pt(55, 50), Right: pt(75, 50)},
		{Left: pt(45, 45), Right: pt(65, 45)},
		{Left: pt(52, 58), Right: pt(72, 58)},
	}
	for _, reading := range readings {
		got, err := cal.Map(reading)
		require.NoError(t, err)
		require.NotNil(t, got)
		// Output stays inside the hull of the anchor screen points.
		assert.GreaterOrEqual(t, got.X, 50.0)
		assert.LessOrEqual(t, got.X, 950.0)
		assert.GreaterOrEqual(t, got.Y, 50.0)
		assert.LessOrEqual(t, got.Y, 950.0)
	}
}

func TestMapCloserSamplePullsHarder(t *testing.T) {
	cal := calibratedFixture(t)

	// Pupils shifted toward the "right" sample should land right of the
	// center anchor.
	got, err := cal.Map(PupilPair{Left: pt(57, 50), Right: pt(77, 50)})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Greater(t, got.X, 500.0)

	// Shifted left of center, the estimate moves left.
	got, err = cal.Map(PupilPair{Left: pt(43, 50), Right: pt(63, 50)})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Less(t, got.X, 500.0)
}

func TestMapSingleEyeFallback(t *testing.T) {
	cal := calibratedFixture(t)

	leftOnly, err := cal.Map(PupilPair{Left: pt(60, 50)})
	require.NoError(t, err)
	require.NotNil(t, leftOnly)
	assert.InDelta(t, 950, leftOnly.X, 1e-6)

	rightOnly, err := cal.Map(PupilPair{Right: pt(80, 50)})
	require.NoError(t, err)
	require.NotNil(t, rightOnly)
	assert.InDelta(t, 950, rightOnly.X, 1e-6)
}

func TestAbortIsTerminal(t *testing.T) {
	cal := calibratedFixture(t)
	cal.Abort()
	assert.Equal(t, StateAborted, cal.State())

	_, err := cal.Map(PupilPair{Left: pt(50, 50), Right: pt(70, 50)})
	assert.ErrorIs(t, err, ErrNotCalibrated)

	_, ok := cal.CurrentPosition()
	assert.False(t, ok)
}

func TestDefaultAnchors(t *testing.T) {
	anchors := DefaultAnchors(1920, 1080)

	assert.Equal(t, geometry.Point2D{X: 960, Y: 540}, anchors[PositionCenter])
	assert.Equal(t, geometry.Point2D{X: 50, Y: 540}, anchors[PositionLeft])
	assert.Equal(t, geometry.Point2D{X: 1870, Y: 540}, anchors[PositionRight])
	assert.Equal(t, geometry.Point2D{X: 960, Y: 50}, anchors[PositionTop])
	assert.Equal(t, geometry.Point2D{X: 960, Y: 1030}, anchors[PositionBottom])
}

func TestPositionsOrder(t *testing.T) {
	assert.Equal(t, []Position{
		PositionCenter, PositionLeft, PositionRight, PositionTop, PositionBottom,
	}, Positions())
}
