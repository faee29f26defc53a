package gaze

import (
	"fmt"
	"sync"

	"context-magnifier/pkg/geometry"
)

// Camera is a pupil source backed by an exclusive device that must be
// released when tracking stops.
type Camera interface {
	PupilSource
	Close() error
}

// Tracker turns a calibrated mapping plus a camera into a live screen
// coordinate source. The camera is opened on Start and released on
// Stop, so the device is only held while tracking is actually on.
type Tracker struct {
	cal  *Calibrator
	open func() (Camera, error)

	mu  sync.Mutex
	cam Camera
}

// NewTracker creates a tracker. The open function acquires the camera;
// it is called on every Start.
func NewTracker(cal *Calibrator, open func() (Camera, error)) *Tracker {
	return &Tracker{cal: cal, open: open}
}

// Start acquires the camera. Requires a completed calibration.
func (t *Tracker) Start() error {
	if t.cal.State() != StateCalibrated {
		return ErrNotCalibrated
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cam != nil {
		return nil
	}
	cam, err := t.open()
	if err != nil {
		return fmt.Errorf("gaze: open camera: %w", err)
	}
	t.cam = cam
	return nil
}

// Stop releases the camera. Safe to call when already stopped.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	cam := t.cam
	t.cam = nil
	t.mu.Unlock()

	if cam == nil {
		return nil
	}
	return cam.Close()
}

// Current reads one frame and maps it to a screen coordinate. Reports
// false while stopped, when no pupil was detected, or on a read error;
// the caller keeps its previous value in those cases.
func (t *Tracker) Current() (geometry.Point2D, bool) {
	t.mu.Lock()
	cam := t.cam
	t.mu.Unlock()
	if cam == nil {
		return geometry.Point2D{}, false
	}

	reading, err := cam.Read()
	if err != nil {
		return geometry.Point2D{}, false
	}
	pt, err := t.cal.Map(reading)
	if err != nil || pt == nil {
		return geometry.Point2D{}, false
	}
	return *pt, true
}
