// Package gaze maps pupil coordinates to screen coordinates using a
// calibration model built from named anchor points.
package gaze

import (
	"errors"
	"sync"
	"time"

	"context-magnifier/pkg/geometry"
)

// Errors returned by the calibrator.
var (
	// ErrNotCalibrated is returned when mapping is requested before
	// calibration has completed.
	ErrNotCalibrated = errors.New("gaze: not calibrated")

	// ErrInvalidCalibration is returned when a persisted record is
	// missing required fields or does not match the current display.
	ErrInvalidCalibration = errors.New("gaze: invalid calibration record")

	// ErrCaptureTimeout is returned when a position capture fails to
	// gather enough pupil detections within the capture window. The
	// position stays current and may be retried.
	ErrCaptureTimeout = errors.New("gaze: pupil capture timed out")

	// ErrCaptureDone is returned when capture is requested after the
	// calibration has already finished or been aborted.
	ErrCaptureDone = errors.New("gaze: calibration already finished")
)

// idwEpsilon prevents division by zero when the live reading coincides
// exactly with a calibration sample.
const idwEpsilon = 1e-10

// Position names a calibration anchor on screen.
type Position string

// The enumerated calibration positions, in capture order.
const (
	PositionCenter Position = "center"
	PositionLeft   Position = "left"
	PositionRight  Position = "right"
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
)

// Positions returns the anchor positions in capture order.
func Positions() []Position {
	return []Position{PositionCenter, PositionLeft, PositionRight, PositionTop, PositionBottom}
}

// anchorMargin is the distance from the screen edge to edge anchors, px.
const anchorMargin = 50

// DefaultAnchors returns the screen coordinates of each calibration
// position for the given screen size.
func DefaultAnchors(width, height float64) map[Position]geometry.Point2D {
	return map[Position]geometry.Point2D{
		PositionCenter: {X: width / 2, Y: height / 2},
		PositionLeft:   {X: anchorMargin, Y: height / 2},
		PositionRight:  {X: width - anchorMargin, Y: height / 2},
		PositionTop:    {X: width / 2, Y: anchorMargin},
		PositionBottom: {X: width / 2, Y: height - anchorMargin},
	}
}

// PupilPair is one detector reading. A nil pupil means "not detected".
type PupilPair struct {
	Left  *geometry.Point2D
	Right *geometry.Point2D
}

// Sample is the finalized calibration data for one anchor position:
// the screen target and the averaged pupil coordinates observed while
// the user looked at it.
type Sample struct {
	ScreenPoint geometry.Point2D
	LeftPupil   geometry.Point2D
	RightPupil  geometry.Point2D
}

// State is the calibration lifecycle state.
type State int

// Calibration states. Aborted is terminal.
const (
	StateUncalibrated State = iota
	StateCalibrating
	StateCalibrated
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateUncalibrated:
		return "uncalibrated"
	case StateCalibrating:
		return "calibrating"
	case StateCalibrated:
		return "calibrated"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Calibrator holds the calibration set and maps live pupil readings to
// screen coordinates via inverse-distance weighting over all samples.
type Calibrator struct {
	mu          sync.RWMutex
	state       State
	posIndex    int
	screenW     float64
	screenH     float64
	anchors     map[Position]geometry.Point2D
	samples     map[Position]Sample
	sampleCount int
	timeout     time.Duration
}

// Option customizes a Calibrator.
type Option func(*Calibrator)

// WithSampleCount sets how many pupil detections each position requires.
func WithSampleCount(n int) Option {
	return func(c *Calibrator) {
		if n > 0 {
			c.sampleCount = n
		}
	}
}

// WithCaptureTimeout bounds the capture window per position.
func WithCaptureTimeout(d time.Duration) Option {
	return func(c *Calibrator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCalibrator creates an uncalibrated calibrator for a screen of the
// given pixel dimensions.
func NewCalibrator(screenW, screenH float64, opts ...Option) *Calibrator {
	c := &Calibrator{
		state:       StateUncalibrated,
		screenW:     screenW,
		screenH:     screenH,
		anchors:     DefaultAnchors(screenW, screenH),
		samples:     make(map[Position]Sample),
		sampleCount: 10,
		timeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Calibrator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ScreenSize returns the screen dimensions the calibrator was built for.
func (c *Calibrator) ScreenSize() (w, h float64) {
	return c.screenW, c.screenH
}

// CurrentPosition returns the next position awaiting capture.
func (c *Calibrator) CurrentPosition() (Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	positions := Positions()
	if c.state == StateCalibrated || c.state == StateAborted || c.posIndex >= len(positions) {
		return "", false
	}
	return positions[c.posIndex], true
}

// Anchor returns the screen target for a position.
func (c *Calibrator) Anchor(pos Position) (geometry.Point2D, bool) {
	p, ok := c.anchors[pos]
	return p, ok
}

// Abort discards all calibration data. Terminal.
func (c *Calibrator) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAborted
	c.samples = make(map[Position]Sample)
}

// Samples returns a copy of the calibration set. Only meaningful once
// the calibrator is Calibrated.
func (c *Calibrator) Samples() map[Position]Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Position]Sample, len(c.samples))
	for k, v := range c.samples {
		out[k] = v
	}
	return out
}

// Map converts a live pupil reading to a screen coordinate.
//
// Every calibration sample contributes with weight 1/(d²+ε), where d² is
// the squared pupil-space distance from the reading to the sample — the
// average over both eyes when both are detected, otherwise whichever eye
// is available. Weights are normalized to sum to 1, so the output is a
// convex combination of the anchor screen points: close calibration
// points dominate without excluding the rest, which keeps the mapping
// continuous across anchor boundaries.
//
// Returns nil (and no error) when neither pupil was detected.
func (c *Calibrator) Map(reading PupilPair) (*geometry.Point2D, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != StateCalibrated {
		return nil, ErrNotCalibrated
	}
	if reading.Left == nil && reading.Right == nil {
		return nil, nil
	}

	positions := Positions()
	weights := make([]float64, len(positions))
	var weightSum float64

	for i, pos := range positions {
		sample := c.samples[pos]

		var distSq float64
		switch {
		case reading.Left != nil && reading.Right != nil:
			distSq = (reading.Left.DistanceSq(sample.LeftPupil) +
				reading.Right.DistanceSq(sample.RightPupil)) / 2
		case reading.Left != nil:
			distSq = reading.Left.DistanceSq(sample.LeftPupil)
		default:
			distSq = reading.Right.DistanceSq(sample.RightPupil)
		}

		weights[i] = 1.0 / (distSq + idwEpsilon)
		weightSum += weights[i]
	}

	var out geometry.Point2D
	for i, pos := range positions {
		w := weights[i] / weightSum
		out.X += w * c.samples[pos].ScreenPoint.X
		out.Y += w * c.samples[pos].ScreenPoint.Y
	}
	return &out, nil
}
