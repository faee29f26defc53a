package gaze

import (
	"encoding/json"
	"fmt"
	"os"

	"context-magnifier/pkg/geometry"
)

// RecordPupils holds the averaged pupil coordinates for one position.
type RecordPupils struct {
	LeftPupil  [2]float64 `json:"left_pupil"`
	RightPupil [2]float64 `json:"right_pupil"`
}

// Record is the persisted calibration file format.
type Record struct {
	CalibratedPoints        map[string]RecordPupils `json:"calibrated_points"`
	CalibrationScreenPoints map[string][2]float64   `json:"calibration_screen_points"`
	ScreenWidth             float64                 `json:"screen_width"`
	ScreenHeight            float64                 `json:"screen_height"`
}

// recordFile mirrors Record with optional numeric fields so that a load
// can distinguish "missing" from zero.
type recordFile struct {
	CalibratedPoints        map[string]RecordPupils `json:"calibrated_points"`
	CalibrationScreenPoints map[string][2]float64   `json:"calibration_screen_points"`
	ScreenWidth             *float64                `json:"screen_width"`
	ScreenHeight            *float64                `json:"screen_height"`
}

// Export builds the persistable record from a calibrated calibrator.
func (c *Calibrator) Export() (*Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateCalibrated {
		return nil, ErrNotCalibrated
	}

	rec := &Record{
		CalibratedPoints:        make(map[string]RecordPupils, len(c.samples)),
		CalibrationScreenPoints: make(map[string][2]float64, len(c.samples)),
		ScreenWidth:             c.screenW,
		ScreenHeight:            c.screenH,
	}
	for pos, sample := range c.samples {
		rec.CalibratedPoints[string(pos)] = RecordPupils{
			LeftPupil:  [2]float64{sample.LeftPupil.X, sample.LeftPupil.Y},
			RightPupil: [2]float64{sample.RightPupil.X, sample.RightPupil.Y},
		}
		rec.CalibrationScreenPoints[string(pos)] = [2]float64{
			sample.ScreenPoint.X, sample.ScreenPoint.Y,
		}
	}
	return rec, nil
}

// Save writes the calibration record to a JSON file.
func (c *Calibrator) Save(path string) error {
	rec, err := c.Export()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadRecord builds a Calibrated calibrator from a previously saved
// record, skipping resampling. screenW/screenH are the dimensions of
// the current display; a mismatch with the record is rejected.
func LoadRecord(rec *Record, screenW, screenH float64) (*Calibrator, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidCalibration)
	}
	if rec.ScreenWidth != screenW || rec.ScreenHeight != screenH {
		return nil, fmt.Errorf("%w: record is for %gx%g, display is %gx%g",
			ErrInvalidCalibration, rec.ScreenWidth, rec.ScreenHeight, screenW, screenH)
	}

	c := NewCalibrator(screenW, screenH)
	for _, pos := range Positions() {
		pupils, ok := rec.CalibratedPoints[string(pos)]
		if !ok {
			return nil, fmt.Errorf("%w: missing calibrated point %q", ErrInvalidCalibration, pos)
		}
		screen, ok := rec.CalibrationScreenPoints[string(pos)]
		if !ok {
			return nil, fmt.Errorf("%w: missing screen point %q", ErrInvalidCalibration, pos)
		}
		c.samples[pos] = Sample{
			ScreenPoint: geometry.Point2D{X: screen[0], Y: screen[1]},
			LeftPupil:   geometry.Point2D{X: pupils.LeftPupil[0], Y: pupils.LeftPupil[1]},
			RightPupil:  geometry.Point2D{X: pupils.RightPupil[0], Y: pupils.RightPupil[1]},
		}
	}
	c.posIndex = len(Positions())
	c.state = StateCalibrated
	return c, nil
}

// Load reads a calibration record file and builds a Calibrated
// calibrator for the given display dimensions.
func Load(path string, screenW, screenH float64) (*Calibrator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gaze: read record: %w", err)
	}

	var file recordFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalibration, err)
	}
	if file.CalibratedPoints == nil {
		return nil, fmt.Errorf("%w: missing calibrated_points", ErrInvalidCalibration)
	}
	if file.CalibrationScreenPoints == nil {
		return nil, fmt.Errorf("%w: missing calibration_screen_points", ErrInvalidCalibration)
	}
	if file.ScreenWidth == nil {
		return nil, fmt.Errorf("%w: missing screen_width", ErrInvalidCalibration)
	}
	if file.ScreenHeight == nil {
		return nil, fmt.Errorf("%w: missing screen_height", ErrInvalidCalibration)
	}

	rec := &Record{
		CalibratedPoints:        file.CalibratedPoints,
		CalibrationScreenPoints: file.CalibrationScreenPoints,
		ScreenWidth:             *file.ScreenWidth,
		ScreenHeight:            *file.ScreenHeight,
	}
	return LoadRecord(rec, screenW, screenH)
}
