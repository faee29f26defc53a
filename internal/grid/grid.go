// Package grid scores regions of a captured screen image by how worth
// magnifying they are, based on OCR text and detected UI elements.
package grid

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"context-magnifier/internal/log"
	"context-magnifier/internal/ocr"
	"context-magnifier/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidImage indicates a nil, empty, or too-small input image.
var ErrInvalidImage = errors.New("invalid image")

// ElementKind identifies a detected UI element category.
type ElementKind string

// UI element categories recognized by the classifier.
const (
	ElementButton     ElementKind = "button"
	ElementInputField ElementKind = "input_field"
	ElementCheckbox   ElementKind = "checkbox"
)

// Element is a classified UI element within a grid cell.
type Element struct {
	Kind       ElementKind      `json:"kind"`
	Bounds     geometry.RectInt `json:"bounds"`
	Importance float64          `json:"importance"`
}

// Cell is one grid cell with its pixel bounds and importance breakdown.
type Cell struct {
	Col        int              `json:"col"`
	Row        int              `json:"row"`
	Bounds     geometry.RectInt `json:"bounds"`
	Importance float64          `json:"importance"`
	TextScore  float64          `json:"text_score"`
	UIScore    float64          `json:"ui_score"`
	Elements   []Element        `json:"elements,omitempty"`
}

// Snapshot is the atomically-published result of one grid computation.
// Cells, cell geometry, and the matrix always belong to the same capture.
type Snapshot struct {
	Cells      []Cell
	Cols       int
	Rows       int
	CellWidth  int
	CellHeight int
	Matrix     *mat.Dense // Rows x Cols, entries >= 0
	Generation uint64
}

// TokenSource extracts OCR word tokens from an image region.
type TokenSource interface {
	Tokens(img image.Image) ([]ocr.Token, error)
}

// ElementDetector finds candidate UI-element bounding boxes in an image
// region, typically via edge detection and external contours.
type ElementDetector interface {
	Detect(img image.Image) ([]geometry.RectInt, error)
}

// Engine computes importance grids from screen images.
type Engine struct {
	mu       sync.RWMutex
	cfg      Config
	tokens   TokenSource
	contours ElementDetector
	gen      atomic.Uint64
}

// NewEngine creates an engine with the given collaborators.
func NewEngine(cfg Config, tokens TokenSource, contours ElementDetector) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("grid: nil token source")
	}
	if contours == nil {
		return nil, fmt.Errorf("grid: nil element detector")
	}
	return &Engine{cfg: cfg, tokens: tokens, contours: contours}, nil
}

// Configure replaces the engine configuration. The next Compute call
// uses the new values; an in-flight computation is unaffected.
func (e *Engine) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	return nil
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Compute partitions the image into the configured grid and scores every
// cell. A failure in a single cell zeroes that cell and continues; the
// returned snapshot always has shape Rows x Cols with all entries >= 0.
func (e *Engine) Compute(img image.Image) (*Snapshot, error) {
	cfg := e.Config()

	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: zero-area image", ErrInvalidImage)
	}
	if width < cfg.Cols || height < cfg.Rows {
		return nil, fmt.Errorf("%w: %dx%d image smaller than %dx%d grid",
			ErrInvalidImage, width, height, cfg.Cols, cfg.Rows)
	}

	cellW := width / cfg.Cols
	cellH := height / cfg.Rows

	snap := &Snapshot{
		Cells:      make([]Cell, 0, cfg.Cols*cfg.Rows),
		Cols:       cfg.Cols,
		Rows:       cfg.Rows,
		CellWidth:  cellW,
		CellHeight: cellH,
		Matrix:     mat.NewDense(cfg.Rows, cfg.Cols, nil),
		Generation: e.gen.Add(1),
	}

	for row := 0; row < cfg.Rows; row++ {
		for col := 0; col < cfg.Cols; col++ {
			x1 := col * cellW
			y1 := row * cellH
			x2 := min((col+1)*cellW, width)
			y2 := min((row+1)*cellH, height)

			cell := Cell{
				Col: col,
				Row: row,
				Bounds: geometry.RectInt{
					X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1,
				},
			}

			sub := cropCell(img, image.Rect(bounds.Min.X+x1, bounds.Min.Y+y1, bounds.Min.X+x2, bounds.Min.Y+y2))
			if err := e.scoreCell(&cell, sub, cfg); err != nil {
				// Soft failure: one unreadable cell must not abort the grid.
				log.Debug("cell scoring failed", "col", col, "row", row, "error", err)
				cell.Importance = 0
				cell.TextScore = 0
				cell.UIScore = 0
				cell.Elements = nil
			}

			snap.Cells = append(snap.Cells, cell)
			snap.Matrix.Set(row, col, cell.Importance)
		}
	}

	return snap, nil
}

// scoreCell fills in the text score, UI score, and total importance.
func (e *Engine) scoreCell(cell *Cell, sub image.Image, cfg Config) error {
	tokens, err := e.tokens.Tokens(sub)
	if err != nil {
		return fmt.Errorf("ocr: %w", err)
	}

	cell.TextScore = scoreTokens(tokens, cfg)

	boxes, err := e.contours.Detect(sub)
	if err != nil {
		return fmt.Errorf("contours: %w", err)
	}

	cell.Elements = classifyElements(boxes, tokens, cfg)
	cell.UIScore = 0
	for _, el := range cell.Elements {
		cell.UIScore += el.Importance
	}

	cell.Importance = cell.TextScore + cell.UIScore
	return nil
}

// confirmation and alert vocabularies for the content factor.
var (
	alertWords        = map[string]bool{"error": true, "warning": true, "alert": true, "caution": true}
	confirmationWords = []string{"ok", "cancel", "submit", "save"}
)

// scoreTokens computes the aggregate text importance of a cell.
// Small text scores higher (it is harder to read unmagnified), alert and
// confirmation vocabulary boost the score, and each accepted token adds a
// flat density bonus so text-heavy cells rank above sparse ones.
func scoreTokens(tokens []ocr.Token, cfg Config) float64 {
	var score float64
	for _, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		if text == "" || tok.Confidence <= cfg.ConfidenceThreshold {
			continue
		}

		h := float64(tok.Bounds.Height)
		var sizeFactor float64
		if h < cfg.BaseTextSize {
			// Guard against tiny detection heights blowing up the ratio.
			sizeFactor = cfg.BaseTextSize / max(h, 5)
			if sizeFactor > cfg.MaxSizeFactor {
				sizeFactor = cfg.MaxSizeFactor
			}
		} else {
			sizeFactor = cfg.BaseTextSize / h
			if sizeFactor < cfg.MinSizeFactor {
				sizeFactor = cfg.MinSizeFactor
			}
		}

		contentFactor := 1.0
		lower := strings.ToLower(text)
		switch {
		case alertWords[lower]:
			contentFactor = cfg.ErrorImportance
		case containsAny(lower, confirmationWords):
			contentFactor = cfg.ConfirmationImportance
		case startsUpper(text) && len(text) > 3:
			contentFactor = cfg.TitleImportance
		}

		lengthFactor := 1.0
		if len(text) <= 5 {
			lengthFactor = cfg.ShortTextImportance
		}

		score += sizeFactor*contentFactor*lengthFactor + cfg.DensityImportance
	}
	return score
}

// classifyElements turns contour bounding boxes into typed UI elements.
// Classification is by aspect ratio and area; a button additionally
// requires OCR text inside the contour.
func classifyElements(boxes []geometry.RectInt, tokens []ocr.Token, cfg Config) []Element {
	var elements []Element
	for _, box := range boxes {
		if box.Width < 10 || box.Height < 10 {
			continue
		}

		aspect := float64(box.Width) / float64(box.Height)
		area := box.Width * box.Height

		switch {
		case aspect > 1.5 && aspect < 5 && area > 500:
			// Button-shaped. Without a label it is not a button, and a
			// textless box in this band matches nothing else either.
			if hasTokenInside(box, tokens) {
				elements = append(elements, Element{
					Kind: ElementButton, Bounds: box, Importance: cfg.ButtonImportance,
				})
			}
		case aspect > 3 && aspect < 10 && area > 1000:
			elements = append(elements, Element{
				Kind: ElementInputField, Bounds: box, Importance: cfg.InputFieldImportance,
			})
		case aspect > 0.8 && aspect < 1.2 && area > 100 && area < 1000:
			elements = append(elements, Element{
				Kind: ElementCheckbox, Bounds: box, Importance: cfg.CheckboxImportance,
			})
		}
	}
	return elements
}

// hasTokenInside reports whether any OCR token is centered in the
// contour box.
func hasTokenInside(box geometry.RectInt, tokens []ocr.Token) bool {
	r := box.ToFloat()
	for _, tok := range tokens {
		if strings.TrimSpace(tok.Text) == "" {
			continue
		}
		if r.Contains(tok.Bounds.ToFloat().Center()) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// cropCell copies a cell region out of the source image.
func cropCell(src image.Image, r image.Rectangle) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
