// Command context-magnifier runs the coordinate fusion loop: it samples
// the mouse, optionally overrides with gaze, adjusts toward important
// screen regions, and prints the resolved focus point.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"context-magnifier/internal/capture"
	"context-magnifier/internal/fusion"
	"context-magnifier/internal/gaze"
	"context-magnifier/internal/grid"
	"context-magnifier/internal/log"
	"context-magnifier/internal/ocr"
	"context-magnifier/internal/pupil"
	"context-magnifier/internal/settings"
	"context-magnifier/internal/version"
)

const appName = "context-magnifier"

func main() {
	screenW := flag.Float64("screen-width", 1920, "Screen width in pixels")
	screenH := flag.Float64("screen-height", 1080, "Screen height in pixels")
	windowW := flag.Float64("window-width", 300, "Magnifier window width")
	windowH := flag.Float64("window-height", 200, "Magnifier window height")
	eye := flag.Bool("eye", false, "Enable the gaze override")
	importance := flag.Bool("importance", false, "Enable the importance adjustment")
	continuous := flag.Bool("continuous", false, "Re-score the screen on a timer while importance is on")
	simulate := flag.Bool("simulate-gaze", false, "Use a simulated figure-8 gaze source instead of the camera")
	calPath := flag.String("calibration", "", "Path to a saved calibration record (required for -eye without -simulate-gaze)")
	camera := flag.Int("camera", 0, "Camera device ID")
	cascade := flag.String("cascade", "", "Path to the eye cascade file (auto-detected if empty)")
	precedence := flag.String("precedence", string(fusion.PrecedenceGazeLast), "Signal precedence: gaze_last or gaze_first")
	interval := flag.Duration("interval", 100*time.Millisecond, "Focus print interval")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	overrides := map[string]float64{}
	flag.Func("option", "Grid option override as name=value (repeatable)", func(s string) error {
		name, raw, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("expected name=value, got %q", s)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("option %s: %w", name, err)
		}
		overrides[name] = v
		return nil
	})
	flag.Parse()

	log.Init(*logLevel)
	log.Info("starting", "app", appName, "version", version.Version)

	store := settings.Load()

	cfg := fusion.DefaultConfig(*screenW, *screenH)
	cfg.WindowWidth = *windowW
	cfg.WindowHeight = *windowH
	cfg.Precedence = fusion.Precedence(*precedence)
	cfg.ContinuousUpdate = *continuous

	deps := fusion.Deps{Mouse: fusion.CursorSource{}}

	if *importance {
		engine, capturer, cleanup, err := buildImportance(store)
		if err != nil {
			log.Error("importance setup failed", "error", err)
			os.Exit(1)
		}
		defer cleanup()
		deps.Engine = engine
		deps.Capturer = capturer
	}

	if *eye {
		src, err := buildGazeSource(*simulate, *calPath, *screenW, *screenH, *camera, *cascade)
		if err != nil {
			log.Error("gaze setup failed", "error", err)
			os.Exit(1)
		}
		deps.Gaze = src
	}

	mgr, err := fusion.NewManager(cfg, deps)
	if err != nil {
		log.Error("fusion setup failed", "error", err)
		os.Exit(1)
	}

	mgr.Start()
	defer mgr.Stop()

	if *eye {
		if err := mgr.SetEyeTracking(true); err != nil {
			log.Error("eye tracking failed to start", "error", err)
			os.Exit(1)
		}
	}
	if *importance {
		if err := mgr.SetImportance(true); err != nil {
			log.Error("importance failed to start", "error", err)
			os.Exit(1)
		}
		if len(overrides) > 0 {
			if err := mgr.ApplySettings(overrides); err != nil {
				log.Error("grid option override failed", "error", err)
				os.Exit(1)
			}
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			log.Info("shutting down")
			return
		case <-ticker.C:
			pt := mgr.Resolve()
			fmt.Printf("focus: %.0f,%.0f\n", pt.X, pt.Y)
		}
	}
}

// buildImportance assembles the OCR engine, element detector, grid
// engine, and screen capturer.
func buildImportance(store *settings.Store) (*grid.Engine, capture.Capturer, func(), error) {
	ocrEngine, err := ocr.NewEngine()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("ocr: %w", err)
	}

	engine, err := grid.NewEngine(store.GridConfig(), ocrEngine, grid.NewCannyDetector())
	if err != nil {
		ocrEngine.Close()
		return nil, nil, nil, err
	}

	capturer, err := capture.New(capture.Options{})
	if err != nil {
		ocrEngine.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		capturer.Close()
		ocrEngine.Close()
	}
	return engine, capturer, cleanup, nil
}

// buildGazeSource picks the simulator or a camera-backed tracker driven
// by a saved calibration.
func buildGazeSource(simulate bool, calPath string, screenW, screenH float64, camera int, cascade string) (fusion.GazeSource, error) {
	if simulate {
		return fusion.NewSimulatedSource(screenW, screenH), nil
	}
	if calPath == "" {
		return nil, fmt.Errorf("eye tracking needs -calibration or -simulate-gaze")
	}

	cal, err := gaze.Load(calPath, screenW, screenH)
	if err != nil {
		return nil, err
	}

	return gaze.NewTracker(cal, func() (gaze.Camera, error) {
		return pupil.Open(camera, cascade)
	}), nil
}
