package fusion

import (
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"

	"context-magnifier/pkg/geometry"
)

// Source produces the current (x, y) of one coordinate signal. Mouse,
// gaze, and fused outputs all satisfy it uniformly.
type Source interface {
	Current() (geometry.Point2D, bool)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (geometry.Point2D, bool)

// Current implements Source.
func (f SourceFunc) Current() (geometry.Point2D, bool) {
	return f()
}

// GazeSource is a Source with an exclusive device (camera) lifecycle.
// Stop must release the device; Current reports false while stopped.
type GazeSource interface {
	Source
	Start() error
	Stop() error
}

// CursorSource reads the pointer position from the window system via
// xdotool. Each Current call is one poll.
type CursorSource struct{}

// Current implements Source.
func (CursorSource) Current() (geometry.Point2D, bool) {
	out, err := exec.Command("xdotool", "getmouselocation", "--shell").Output()
	if err != nil {
		return geometry.Point2D{}, false
	}

	var p geometry.Point2D
	var gotX, gotY bool
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := strings.CutPrefix(line, "X="); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				p.X, gotX = f, true
			}
		}
		if v, ok := strings.CutPrefix(line, "Y="); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				p.Y, gotY = f, true
			}
		}
	}
	return p, gotX && gotY
}

// SimulatedSource traces a figure-8 across the screen, for exercising
// the pipeline without eye-tracking hardware.
type SimulatedSource struct {
	center geometry.Point2D
	ampX   float64
	ampY   float64
	step   atomic.Int64
}

// NewSimulatedSource creates a figure-8 source spanning a third of the
// screen in each direction.
func NewSimulatedSource(screenW, screenH float64) *SimulatedSource {
	return &SimulatedSource{
		center: geometry.Point2D{X: screenW / 2, Y: screenH / 2},
		ampX:   screenW / 3,
		ampY:   screenH / 3,
	}
}

// Current implements Source. Each call advances the pattern one step.
func (s *SimulatedSource) Current() (geometry.Point2D, bool) {
	t := float64(s.step.Add(1)) / 50.0
	return geometry.Point2D{
		X: s.center.X + s.ampX*math.Sin(t),
		Y: s.center.Y + s.ampY*math.Sin(2*t)/2,
	}, true
}

// Start implements GazeSource; the simulator has no device to acquire.
func (s *SimulatedSource) Start() error { return nil }

// Stop implements GazeSource.
func (s *SimulatedSource) Stop() error { return nil }
