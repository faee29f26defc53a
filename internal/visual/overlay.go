// Package visual renders importance grids as debug artifacts: a colored
// screenshot overlay and an HTML heatmap chart.
package visual

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"context-magnifier/internal/grid"
	"context-magnifier/pkg/geometry"
)

// overlayAlpha blends the colormap over the screenshot.
const overlayAlpha = 0.4

// Overlay paints the importance matrix over the screenshot: a jet
// colormap blended onto the image, grid lines, and the per-cell score.
func Overlay(img image.Image, snap *grid.Snapshot) (image.Image, error) {
	if snap == nil || snap.Matrix == nil {
		return nil, fmt.Errorf("visual: nil snapshot")
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("visual: convert image: %w", err)
	}
	defer src.Close()

	rows, cols := snap.Rows, snap.Cols
	maxVal := 0.0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v := snap.Matrix.At(r, c); v > maxVal {
				maxVal = v
			}
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Score matrix as an 8-bit single-channel image, one pixel per cell.
	small := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8U)
	defer small.Close()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			small.SetUCharAt(r, c, uint8(geometry.Clamp(snap.Matrix.At(r, c)/maxVal, 0, 1)*255))
		}
	}

	full := gocv.NewMat()
	defer full.Close()
	gocv.Resize(small, &full, image.Pt(src.Cols(), src.Rows()), 0, 0, gocv.InterpolationNearestNeighbor)

	colored := gocv.NewMat()
	defer colored.Close()
	gocv.ApplyColorMap(full, &colored, gocv.ColormapJet)

	blended := gocv.NewMat()
	defer blended.Close()
	gocv.AddWeighted(src, 1.0-overlayAlpha, colored, overlayAlpha, 0, &blended)

	drawGrid(&blended, snap)

	out, err := blended.ToImage()
	if err != nil {
		return nil, fmt.Errorf("visual: render overlay: %w", err)
	}
	return out, nil
}

// drawGrid adds cell borders and score labels on top of the blend.
func drawGrid(dst *gocv.Mat, snap *grid.Snapshot) {
	lineCol := color.RGBA{255, 255, 255, 255}
	textCol := color.RGBA{0, 0, 0, 255}

	w, h := dst.Cols(), dst.Rows()
	cellW := w / snap.Cols
	cellH := h / snap.Rows

	for c := 1; c < snap.Cols; c++ {
		gocv.Line(dst, image.Pt(c*cellW, 0), image.Pt(c*cellW, h), lineCol, 1)
	}
	for r := 1; r < snap.Rows; r++ {
		gocv.Line(dst, image.Pt(0, r*cellH), image.Pt(w, r*cellH), lineCol, 1)
	}

	for r := 0; r < snap.Rows; r++ {
		for c := 0; c < snap.Cols; c++ {
			label := fmt.Sprintf("%.1f", snap.Matrix.At(r, c))
			pos := image.Pt(c*cellW+4, r*cellH+14)
			gocv.PutText(dst, label, pos, gocv.FontHersheyPlain, 0.9, textCol, 1)
		}
	}
}
