package grid

import (
	"sort"

	"context-magnifier/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// queryEpsilon keeps centroid weights strictly positive so a sub-grid
// whose surviving cells all share one value still averages cleanly.
const queryEpsilon = 1e-6

// QueryImportantPoint finds the most important point within radius pixels
// of (x, y), as the importance-weighted centroid of the cells whose
// normalized score clears threshold. The sub-grid is normalized by its own
// maximum so the threshold is scale-invariant. If no cell qualifies the
// input point is returned unchanged; this method never fails.
func (s *Snapshot) QueryImportantPoint(x, y, radius, threshold float64) geometry.Point2D {
	orig := geometry.Point2D{X: x, Y: y}
	if s == nil || s.Matrix == nil || s.CellWidth <= 0 || s.CellHeight <= 0 {
		return orig
	}

	cellW := float64(s.CellWidth)
	cellH := float64(s.CellHeight)
	cellX := int(x / cellW)
	cellY := int(y / cellH)

	// Search window, clipped to the grid and capped at half the grid per
	// axis so an oversized radius cannot degenerate to a full-screen scan.
	radiusCellsX := min(int(radius/cellW), s.Cols/2)
	radiusCellsY := min(int(radius/cellH), s.Rows/2)

	startX := geometry.ClampInt(cellX-radiusCellsX, 0, s.Cols)
	endX := geometry.ClampInt(cellX+radiusCellsX+1, 0, s.Cols)
	startY := geometry.ClampInt(cellY-radiusCellsY, 0, s.Rows)
	endY := geometry.ClampInt(cellY+radiusCellsY+1, 0, s.Rows)

	if startX >= endX || startY >= endY {
		return orig
	}

	sub := s.Matrix.Slice(startY, endY, startX, endX).(*mat.Dense)
	maxVal := mat.Max(sub)
	if maxVal <= 0 {
		return orig
	}

	// Weighted centroid over cells clearing the normalized threshold.
	var weightSum, colSum, rowSum float64
	rows, cols := sub.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := sub.At(r, c)
			if v/maxVal < threshold {
				continue
			}
			w := v + queryEpsilon
			weightSum += w
			colSum += w * float64(startX+c)
			rowSum += w * float64(startY+r)
		}
	}
	if weightSum == 0 {
		return orig
	}

	return geometry.Point2D{
		X: (colSum/weightSum + 0.5) * cellW,
		Y: (rowSum/weightSum + 0.5) * cellH,
	}
}

// TopCells returns the n highest-importance cells, best first.
func (s *Snapshot) TopCells(n int) []Cell {
	sorted := make([]Cell, len(s.Cells))
	copy(sorted, s.Cells)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Importance > sorted[j].Importance
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// CellAt returns the cell containing the screen point, if any.
func (s *Snapshot) CellAt(p geometry.Point2D) (Cell, bool) {
	if s.CellWidth <= 0 || s.CellHeight <= 0 {
		return Cell{}, false
	}
	col := int(p.X) / s.CellWidth
	row := int(p.Y) / s.CellHeight
	if col < 0 || col >= s.Cols || row < 0 || row >= s.Rows {
		return Cell{}, false
	}
	return s.Cells[row*s.Cols+col], true
}
