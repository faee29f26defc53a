// Package fusion merges mouse, gaze, and importance-grid signals into a
// single focus coordinate per frame.
package fusion

import (
	"fmt"
	"sync/atomic"
	"time"

	"context-magnifier/internal/capture"
	"context-magnifier/internal/grid"
	"context-magnifier/internal/log"
	"context-magnifier/internal/settings"
	"context-magnifier/pkg/geometry"
)

// Precedence selects the order in which the gaze override and the
// importance adjustment are applied on top of the mouse coordinate.
type Precedence string

const (
	// PrecedenceGazeLast adjusts the mouse point toward nearby
	// importance first, then lets a valid gaze reading override the
	// result outright. This is the default.
	PrecedenceGazeLast Precedence = "gaze_last"

	// PrecedenceGazeFirst overrides with gaze first and then applies
	// the importance adjustment to whichever point survived.
	PrecedenceGazeFirst Precedence = "gaze_first"
)

// minRecomputeInterval is the floor for continuous grid updates.
const minRecomputeInterval = time.Second

// defaultStopTimeout bounds how long a feature toggle waits for its worker.
const defaultStopTimeout = 2 * time.Second

// Config controls the fusion manager.
type Config struct {
	ScreenWidth  float64
	ScreenHeight float64

	// Magnifier window size, used to clamp the focus point so the
	// window stays fully on screen.
	WindowWidth  float64
	WindowHeight float64

	Precedence Precedence

	MouseInterval     time.Duration
	GazeInterval      time.Duration
	RecomputeInterval time.Duration
	// StopTimeout bounds how long a feature toggle waits for its
	// worker to exit before deferring cleanup.
	StopTimeout time.Duration
	// ContinuousUpdate re-scores the screen on a timer while the
	// importance map is enabled.
	ContinuousUpdate bool

	// Importance query parameters.
	QueryRadius    float64
	QueryThreshold float64
}

// DefaultConfig returns the standard fusion configuration for a screen.
func DefaultConfig(screenW, screenH float64) Config {
	return Config{
		ScreenWidth:       screenW,
		ScreenHeight:      screenH,
		WindowWidth:       300,
		WindowHeight:      200,
		Precedence:        PrecedenceGazeLast,
		MouseInterval:     50 * time.Millisecond,
		GazeInterval:      250 * time.Millisecond,
		RecomputeInterval: 5 * time.Second,
		StopTimeout:       defaultStopTimeout,
		QueryRadius:       200,
		QueryThreshold:    0.7,
	}
}

// Deps are the collaborators the manager drives.
type Deps struct {
	Mouse    Source
	Gaze     GazeSource
	Engine   *grid.Engine
	Capturer capture.Capturer
}

// Manager owns the background samplers and resolves the focus point.
// Resolve only reads the latest published values; it never triggers a
// capture and never blocks on a worker.
type Manager struct {
	cfg  Config
	deps Deps

	mouse Slot[geometry.Point2D]
	gaze  Slot[geometry.Point2D]
	snap  Slot[*grid.Snapshot]

	mouseWorker *worker
	gazeWorker  *worker
	gridWorker  *worker

	importanceOn atomic.Bool
	recomputing  atomic.Bool
}

// NewManager creates a fusion manager. Mouse source and screen
// dimensions are required; gaze and importance collaborators may be nil
// if those features are never enabled.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if cfg.ScreenWidth <= 0 || cfg.ScreenHeight <= 0 {
		return nil, fmt.Errorf("fusion: invalid screen size %gx%g", cfg.ScreenWidth, cfg.ScreenHeight)
	}
	if deps.Mouse == nil {
		return nil, fmt.Errorf("fusion: nil mouse source")
	}
	if cfg.Precedence == "" {
		cfg.Precedence = PrecedenceGazeLast
	}
	if cfg.RecomputeInterval < minRecomputeInterval {
		cfg.RecomputeInterval = minRecomputeInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}

	m := &Manager{cfg: cfg, deps: deps}

	m.mouseWorker = newWorker("mouse", cfg.MouseInterval, func() error {
		if p, ok := deps.Mouse.Current(); ok {
			m.mouse.Publish(p)
		}
		return nil
	})
	if deps.Gaze != nil {
		m.gazeWorker = newWorker("gaze", cfg.GazeInterval, func() error {
			if p, ok := deps.Gaze.Current(); ok {
				m.gaze.Publish(p)
			}
			return nil
		})
	}
	if deps.Engine != nil && deps.Capturer != nil {
		m.gridWorker = newWorker("grid", cfg.RecomputeInterval, m.recomputeOnce)
	}

	return m, nil
}

// Start launches the mouse sampler. Gaze and importance workers start
// on their feature toggles.
func (m *Manager) Start() {
	m.mouseWorker.start()
}

// Stop halts all workers and releases the camera if held.
func (m *Manager) Stop() {
	m.mouseWorker.halt(m.cfg.StopTimeout, nil)
	m.SetEyeTracking(false)
	m.SetImportance(false)
}

// SetEyeTracking toggles the gaze override. Enabling acquires the
// camera and starts the sampler; disabling signals the sampler, waits
// up to the stop timeout, and releases the camera.
func (m *Manager) SetEyeTracking(enabled bool) error {
	if m.gazeWorker == nil {
		if enabled {
			return fmt.Errorf("fusion: no gaze source configured")
		}
		return nil
	}

	if enabled {
		if m.gazeWorker.running() {
			return nil
		}
		if err := m.deps.Gaze.Start(); err != nil {
			return fmt.Errorf("fusion: start gaze source: %w", err)
		}
		if !m.gazeWorker.start() {
			// A previous sampler is still winding down; its deferred
			// cleanup would release the camera we just opened.
			if err := m.deps.Gaze.Stop(); err != nil {
				log.Warn("gaze source stop failed", "error", err)
			}
			return fmt.Errorf("fusion: gaze sampler still stopping")
		}
		return nil
	}

	// Camera release rides the worker shutdown so it cannot happen while
	// the sampler loop still reads frames, even on a slow stop.
	m.gazeWorker.halt(m.cfg.StopTimeout, func() {
		if err := m.deps.Gaze.Stop(); err != nil {
			log.Warn("gaze source stop failed", "error", err)
		}
		m.gaze.Clear()
	})
	return nil
}

// EyeTrackingEnabled reports whether the gaze override is active.
func (m *Manager) EyeTrackingEnabled() bool {
	return m.gazeWorker != nil && m.gazeWorker.running()
}

// SetImportance toggles the importance adjustment. Enabling computes
// one grid synchronously if none exists yet and starts the continuous
// recompute worker when configured; disabling stops the worker.
func (m *Manager) SetImportance(enabled bool) error {
	if m.gridWorker == nil {
		if enabled {
			return fmt.Errorf("fusion: no grid engine configured")
		}
		return nil
	}

	if enabled {
		if !m.importanceOn.CompareAndSwap(false, true) {
			return nil
		}
		if _, ok := m.snap.Load(); !ok {
			// Lazy first computation; resolve falls back to the
			// unadjusted coordinate until a matrix exists.
			if err := m.recomputeOnce(); err != nil {
				log.Warn("initial grid computation failed", "error", err)
			}
		}
		if m.cfg.ContinuousUpdate {
			m.gridWorker.start()
		}
		return nil
	}

	m.importanceOn.Store(false)
	m.gridWorker.halt(m.cfg.StopTimeout, nil)
	return nil
}

// ImportanceEnabled reports whether the importance adjustment is active.
func (m *Manager) ImportanceEnabled() bool {
	return m.importanceOn.Load()
}

// ApplySettings applies named grid options to the live engine and, when
// the importance adjustment is active, schedules a recompute so the new
// weights take effect without waiting for the next timer tick.
func (m *Manager) ApplySettings(opts map[string]float64) error {
	if m.deps.Engine == nil {
		return fmt.Errorf("fusion: no grid engine configured")
	}
	cfg, err := settings.ApplyGridOptions(m.deps.Engine.Config(), opts)
	if err != nil {
		return err
	}
	if err := m.deps.Engine.Configure(cfg); err != nil {
		return err
	}
	if m.importanceOn.Load() {
		m.RequestRecompute()
	}
	return nil
}

// RequestRecompute triggers one asynchronous grid recomputation. A
// request made while one is in flight is dropped, not queued.
func (m *Manager) RequestRecompute() {
	go func() {
		if err := m.recomputeOnce(); err != nil {
			log.Warn("grid recompute failed", "error", err)
		}
	}()
}

// recomputeOnce captures the screen and publishes a fresh snapshot.
// Failures keep the previous snapshot in place.
func (m *Manager) recomputeOnce() error {
	if !m.recomputing.CompareAndSwap(false, true) {
		return nil
	}
	defer m.recomputing.Store(false)

	img, err := m.deps.Capturer.Capture()
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	snap, err := m.deps.Engine.Compute(img)
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}
	m.snap.Publish(snap)
	log.Debug("importance grid updated", "generation", snap.Generation)
	return nil
}

// Snapshot returns the latest published grid snapshot.
func (m *Manager) Snapshot() (*grid.Snapshot, bool) {
	return m.snap.Load()
}

// Resolve returns the focus coordinate for the current frame. It reads
// only published values and degrades source by source: disabled or
// not-yet-available signals fall back to the next lower precedence.
func (m *Manager) Resolve() geometry.Point2D {
	pt, _ := m.mouse.Load()

	switch m.cfg.Precedence {
	case PrecedenceGazeFirst:
		pt = m.applyGaze(pt)
		pt = m.applyImportance(pt)
	default:
		pt = m.applyImportance(pt)
		pt = m.applyGaze(pt)
	}

	return m.clampToScreen(pt)
}

func (m *Manager) applyImportance(pt geometry.Point2D) geometry.Point2D {
	if !m.importanceOn.Load() {
		return pt
	}
	snap, ok := m.snap.Load()
	if !ok {
		return pt
	}
	return snap.QueryImportantPoint(pt.X, pt.Y, m.cfg.QueryRadius, m.cfg.QueryThreshold)
}

func (m *Manager) applyGaze(pt geometry.Point2D) geometry.Point2D {
	if !m.EyeTrackingEnabled() {
		return pt
	}
	if g, ok := m.gaze.Load(); ok {
		return g
	}
	return pt
}

// clampToScreen keeps the magnifier window fully on screen: a focus
// that would push the window past an edge is shifted back by the window
// size on that axis, then floored at zero.
func (m *Manager) clampToScreen(pt geometry.Point2D) geometry.Point2D {
	if pt.X+m.cfg.WindowWidth > m.cfg.ScreenWidth {
		pt.X -= m.cfg.WindowWidth
	}
	if pt.X < 0 {
		pt.X = 0
	}
	if pt.Y+m.cfg.WindowHeight > m.cfg.ScreenHeight {
		pt.Y -= m.cfg.WindowHeight
	}
	if pt.Y < 0 {
		pt.Y = 0
	}
	return pt
}

// Health reports the status of each background worker.
func (m *Manager) Health() map[string]Health {
	out := map[string]Health{
		"mouse": m.mouseWorker.health(),
	}
	if m.gazeWorker != nil {
		out["gaze"] = m.gazeWorker.health()
	}
	if m.gridWorker != nil {
		out["grid"] = m.gridWorker.health()
	}
	return out
}
