package grid

import (
	"fmt"
	"image"

	"context-magnifier/pkg/geometry"

	"gocv.io/x/gocv"
)

// Canny hysteresis thresholds for UI edge detection.
const (
	cannyLow  = 50
	cannyHigh = 150
)

// CannyDetector finds candidate UI-element boxes using edge detection
// and external contours. It implements ElementDetector.
type CannyDetector struct{}

// NewCannyDetector creates the production element detector.
func NewCannyDetector() *CannyDetector {
	return &CannyDetector{}
}

// Detect returns the bounding boxes of external contours in the region.
func (d *CannyDetector) Detect(img image.Image) ([]geometry.RectInt, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}

	mat, err := regionToMat(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, cannyLow, cannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	boxes := make([]geometry.RectInt, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		boxes = append(boxes, geometry.RectInt{
			X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy(),
		})
	}
	return boxes, nil
}

// regionToMat converts a Go image.Image to an OpenCV Mat in BGR order.
func regionToMat(srcImg image.Image) (gocv.Mat, error) {
	bounds := srcImg.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := srcImg.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}

	return mat, nil
}
