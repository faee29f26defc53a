// Command calibrate runs the gaze calibration sequence on the terminal
// and saves the resulting record for the main application.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"context-magnifier/internal/gaze"
	"context-magnifier/internal/log"
	"context-magnifier/internal/pupil"
)

func main() {
	screenW := flag.Float64("screen-width", 1920, "Screen width in pixels")
	screenH := flag.Float64("screen-height", 1080, "Screen height in pixels")
	out := flag.String("out", "calibration.json", "Output path for the calibration record")
	camera := flag.Int("camera", 0, "Camera device ID")
	cascade := flag.String("cascade", "", "Path to the eye cascade file (auto-detected if empty)")
	samples := flag.Int("samples", 10, "Pupil detections required per position")
	timeout := flag.Duration("timeout", 10*time.Second, "Capture window per position")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	cascadePath, err := pupil.FindCascade(*cascade)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cascade not found: %v\n", err)
		os.Exit(1)
	}

	det, err := pupil.Open(*camera, cascadePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Camera open failed: %v\n", err)
		os.Exit(1)
	}
	defer det.Close()

	cal := gaze.NewCalibrator(*screenW, *screenH,
		gaze.WithSampleCount(*samples),
		gaze.WithCaptureTimeout(*timeout))

	fmt.Printf("Calibrating for a %gx%g screen. Look at each point and press Enter.\n", *screenW, *screenH)
	stdin := bufio.NewReader(os.Stdin)

	for {
		pos, ok := cal.CurrentPosition()
		if !ok {
			break
		}
		anchor, _ := cal.Anchor(pos)
		fmt.Printf("\nLook at the %s point (%.0f, %.0f) and press Enter...", pos, anchor.X, anchor.Y)
		if _, err := stdin.ReadString('\n'); err != nil {
			fmt.Fprintln(os.Stderr, "\nAborted")
			cal.Abort()
			os.Exit(1)
		}

		fmt.Printf("Capturing %s...", pos)
		if err := cal.CapturePosition(det); err != nil {
			if errors.Is(err, gaze.ErrCaptureTimeout) {
				fmt.Printf(" timed out (%v), try again\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "\nCapture failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(" done")
	}

	if err := cal.Save(*out); err != nil {
		fmt.Fprintf(os.Stderr, "Save failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nCalibration saved to %s\n", *out)
}
