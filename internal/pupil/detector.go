// Package pupil acquires webcam frames and locates the pupils, feeding
// the gaze calibrator and the live gaze worker.
package pupil

import (
	"fmt"
	"image"
	"os"
	"sync"

	"context-magnifier/internal/gaze"
	"context-magnifier/pkg/geometry"

	"gocv.io/x/gocv"
)

// Well-known install locations for the OpenCV eye cascade.
var defaultCascadePaths = []string{
	"/usr/share/opencv4/haarcascades/haarcascade_eye.xml",
	"/usr/local/share/opencv4/haarcascades/haarcascade_eye.xml",
	"/opt/homebrew/share/opencv4/haarcascades/haarcascade_eye.xml",
}

// FindCascade locates the eye cascade file, preferring an explicit path.
func FindCascade(explicit string) (string, error) {
	candidates := defaultCascadePaths
	if explicit != "" {
		candidates = []string{explicit}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("pupil: eye cascade not found (looked in %v)", candidates)
}

// Detector reads webcam frames and reports pupil positions in frame
// pixel coordinates. It implements gaze.PupilSource and holds the
// camera exclusively until Close.
type Detector struct {
	mu      sync.Mutex
	cam     *gocv.VideoCapture
	cascade gocv.CascadeClassifier
	frame   gocv.Mat
	closed  bool
}

// Open acquires the webcam and loads the eye cascade.
func Open(deviceID int, cascadePath string) (*Detector, error) {
	path, err := FindCascade(cascadePath)
	if err != nil {
		return nil, err
	}

	cam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("pupil: open camera %d: %w", deviceID, err)
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(path) {
		cam.Close()
		cascade.Close()
		return nil, fmt.Errorf("pupil: load cascade %s failed", path)
	}

	return &Detector{
		cam:     cam,
		cascade: cascade,
		frame:   gocv.NewMat(),
	}, nil
}

// Close releases the camera and detector resources.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.frame.Close()
	d.cascade.Close()
	return d.cam.Close()
}

// Read grabs one frame and locates the pupils. A pupil that cannot be
// found comes back nil; both nil with no error means the frame simply
// had no detectable eyes.
func (d *Detector) Read() (gaze.PupilPair, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gaze.PupilPair{}, fmt.Errorf("pupil: detector closed")
	}
	if ok := d.cam.Read(&d.frame); !ok || d.frame.Empty() {
		return gaze.PupilPair{}, fmt.Errorf("pupil: failed to read frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(d.frame, &gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(gray, &gray)

	eyes := d.cascade.DetectMultiScale(gray)
	if len(eyes) == 0 {
		return gaze.PupilPair{}, nil
	}

	// Keep the two leftmost-sorted eye regions; with more than two
	// detections the extras are usually nostrils or eyebrows.
	left, right := pickEyePair(eyes)

	var pair gaze.PupilPair
	if left != nil {
		if p, ok := pupilCenter(gray, *left); ok {
			pair.Left = &p
		}
	}
	if right != nil {
		if p, ok := pupilCenter(gray, *right); ok {
			pair.Right = &p
		}
	}
	return pair, nil
}

// pickEyePair selects the left and right eye regions by x order.
func pickEyePair(eyes []image.Rectangle) (left, right *image.Rectangle) {
	li, ri := 0, -1
	for i := 1; i < len(eyes); i++ {
		if eyes[i].Min.X < eyes[li].Min.X {
			li = i
		}
	}
	for i := range eyes {
		if i == li {
			continue
		}
		if ri < 0 || eyes[i].Min.X > eyes[ri].Min.X {
			ri = i
		}
	}
	l := eyes[li]
	left = &l
	if ri >= 0 {
		r := eyes[ri]
		right = &r
	}
	return left, right
}

// pupilCenter finds the darkest spot in the eye region, which for a
// usable frame is the pupil. Coordinates are in full-frame pixels.
func pupilCenter(gray gocv.Mat, eye image.Rectangle) (geometry.Point2D, bool) {
	roi := gray.Region(eye)
	defer roi.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(roi, &blurred, image.Point{X: 7, Y: 7}, 0, 0, gocv.BorderDefault)

	_, _, minLoc, _ := gocv.MinMaxLoc(blurred)
	if minLoc.X < 0 || minLoc.Y < 0 {
		return geometry.Point2D{}, false
	}
	return geometry.Point2D{
		X: float64(eye.Min.X + minLoc.X),
		Y: float64(eye.Min.Y + minLoc.Y),
	}, true
}
