// Package capture grabs full-screen screenshots for importance analysis.
package capture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Capturer produces a decoded screen raster on demand.
type Capturer interface {
	Capture() (image.Image, error)
}

// Options controls screenshot behavior.
type Options struct {
	// Delay waits before capturing, e.g. to let a menu settle.
	Delay time.Duration
	// MaxWidth downscales captures wider than this before analysis.
	// Zero disables scaling.
	MaxWidth int
}

// CommandCapturer shells out to the platform screenshot tool.
type CommandCapturer struct {
	opts    Options
	tempDir string
}

// New creates a screen capturer.
func New(opts Options) (*CommandCapturer, error) {
	tempDir, err := os.MkdirTemp("", "context-magnifier-*")
	if err != nil {
		return nil, fmt.Errorf("capture: temp dir: %w", err)
	}
	return &CommandCapturer{opts: opts, tempDir: tempDir}, nil
}

// Close removes capture scratch space.
func (c *CommandCapturer) Close() error {
	return os.RemoveAll(c.tempDir)
}

// Capture takes a screenshot and returns it as a decoded image, scaled
// down to MaxWidth if configured.
func (c *CommandCapturer) Capture() (image.Image, error) {
	if c.opts.Delay > 0 {
		time.Sleep(c.opts.Delay)
	}

	file := filepath.Join(c.tempDir, "screenshot.png")
	cmd, err := screenshotCommand(file)
	if err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("capture: %s: %w (%s)", cmd.Path, err, stderr.String())
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("capture: read screenshot: %w", err)
	}
	os.Remove(file)

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("capture: decode screenshot: %w", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("capture: empty screenshot")
	}

	if c.opts.MaxWidth > 0 && img.Bounds().Dx() > c.opts.MaxWidth {
		img = scaleToWidth(img, c.opts.MaxWidth)
	}
	return img, nil
}

// screenshotCommand picks the platform screenshot tool.
func screenshotCommand(outFile string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("screencapture", "-x", outFile), nil
	default:
		if _, err := exec.LookPath("gnome-screenshot"); err == nil {
			return exec.Command("gnome-screenshot", "-f", outFile), nil
		}
		if _, err := exec.LookPath("scrot"); err == nil {
			return exec.Command("scrot", "-o", outFile), nil
		}
		return nil, fmt.Errorf("capture: no screenshot tool found (install gnome-screenshot or scrot)")
	}
}

// scaleToWidth resizes preserving aspect ratio.
func scaleToWidth(img image.Image, width int) image.Image {
	b := img.Bounds()
	height := b.Dy() * width / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// SavePNG writes an image to disk, for debug artifacts.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
