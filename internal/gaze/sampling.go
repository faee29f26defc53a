package gaze

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// PupilSource produces one pupil reading per call, typically from a
// webcam frame. Either pupil may be absent in any given reading.
type PupilSource interface {
	Read() (PupilPair, error)
}

// readInterval paces frame reads during a position capture.
const readInterval = 50 * time.Millisecond

// CapturePosition collects pupil samples for the current calibration
// position. It requires sampleCount readings with both pupils detected
// within the capture timeout; on success the averaged sample is stored
// and the calibrator advances to the next position, transitioning to
// Calibrated after the last one. On timeout the position stays current
// so the caller can retry it.
func (c *Calibrator) CapturePosition(src PupilSource) error {
	c.mu.Lock()
	switch c.state {
	case StateAborted, StateCalibrated:
		c.mu.Unlock()
		return ErrCaptureDone
	case StateUncalibrated:
		c.state = StateCalibrating
	}
	positions := Positions()
	pos := positions[c.posIndex]
	anchor, ok := c.anchors[pos]
	sampleCount := c.sampleCount
	timeout := c.timeout
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("gaze: no anchor for position %q", pos)
	}

	leftX := make([]float64, 0, sampleCount)
	leftY := make([]float64, 0, sampleCount)
	rightX := make([]float64, 0, sampleCount)
	rightY := make([]float64, 0, sampleCount)

	deadline := time.Now().Add(timeout)
	for len(leftX) < sampleCount {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: position %q got %d/%d detections",
				ErrCaptureTimeout, pos, len(leftX), sampleCount)
		}

		reading, err := src.Read()
		if err != nil || reading.Left == nil || reading.Right == nil {
			time.Sleep(readInterval)
			continue
		}

		leftX = append(leftX, reading.Left.X)
		leftY = append(leftY, reading.Left.Y)
		rightX = append(rightX, reading.Right.X)
		rightY = append(rightY, reading.Right.Y)
		time.Sleep(readInterval)
	}

	sample := Sample{ScreenPoint: anchor}
	sample.LeftPupil.X = stat.Mean(leftX, nil)
	sample.LeftPupil.Y = stat.Mean(leftY, nil)
	sample.RightPupil.X = stat.Mean(rightX, nil)
	sample.RightPupil.Y = stat.Mean(rightY, nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAborted {
		return ErrCaptureDone
	}
	c.samples[pos] = sample
	c.posIndex++
	if c.posIndex >= len(positions) {
		c.state = StateCalibrated
	}
	return nil
}
