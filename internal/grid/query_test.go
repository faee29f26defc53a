package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"context-magnifier/pkg/geometry"
)

// makeSnapshot builds a snapshot with the given per-cell importance,
// keyed by [col, row].
func makeSnapshot(cols, rows, cellW, cellH int, values map[[2]int]float64) *Snapshot {
	snap := &Snapshot{
		Cols:       cols,
		Rows:       rows,
		CellWidth:  cellW,
		CellHeight: cellH,
		Matrix:     mat.NewDense(rows, cols, nil),
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			v := values[[2]int{col, row}]
			snap.Cells = append(snap.Cells, Cell{
				Col: col, Row: row,
				Bounds:     geometry.RectInt{X: col * cellW, Y: row * cellH, Width: cellW, Height: cellH},
				Importance: v,
			})
			snap.Matrix.Set(row, col, v)
		}
	}
	return snap
}

func TestQueryNoImportanceReturnsInput(t *testing.T) {
	snap := makeSnapshot(10, 10, 100, 100, nil)

	got := snap.QueryImportantPoint(512.3, 497.8, 200, 0.7)
	assert.Equal(t, geometry.Point2D{X: 512.3, Y: 497.8}, got)
}

func TestQuerySingleHotCell(t *testing.T) {
	snap := makeSnapshot(10, 10, 100, 100, map[[2]int]float64{
		{6, 4}: 5.0,
	})

	got := snap.QueryImportantPoint(500, 500, 200, 0.7)
	assert.InDelta(t, 650, got.X, 1e-6)
	assert.InDelta(t, 450, got.Y, 1e-6)
}

func TestQueryCentroidOfEqualCells(t *testing.T) {
	snap := makeSnapshot(10, 10, 100, 100, map[[2]int]float64{
		{4, 4}: 5.0,
		{6, 4}: 5.0,
	})

	got := snap.QueryImportantPoint(500, 500, 200, 0.7)
	assert.InDelta(t, 550, got.X, 1e-6)
	assert.InDelta(t, 450, got.Y, 1e-6)
}

func TestQueryThresholdFiltersWeakCells(t *testing.T) {
	snap := makeSnapshot(10, 10, 100, 100, map[[2]int]float64{
		{6, 4}: 5.0,
		{4, 4}: 1.0, // 0.2 of the local max, below a 0.7 threshold
	})

	got := snap.QueryImportantPoint(500, 500, 200, 0.7)
	assert.InDelta(t, 650, got.X, 1e-6)
	assert.InDelta(t, 450, got.Y, 1e-6)
}

func TestQueryRadiusExcludesDistantCells(t *testing.T) {
	snap := makeSnapshot(10, 10, 100, 100, map[[2]int]float64{
		{9, 9}: 5.0,
	})

	// The hot cell is outside a 2-cell window around (5, 5).
	got := snap.QueryImportantPoint(500, 500, 200, 0.7)
	assert.Equal(t, geometry.Point2D{X: 500, Y: 500}, got)
}

func TestQueryOversizedRadiusIsCapped(t *testing.T) {
	snap := makeSnapshot(10, 10, 100, 100, map[[2]int]float64{
		{0, 0}: 5.0,
	})

	// Even a screen-sized radius is capped at half the grid per axis,
	// so a far corner cannot capture the query.
	got := snap.QueryImportantPoint(950, 950, 1e9, 0.7)
	assert.Equal(t, geometry.Point2D{X: 950, Y: 950}, got)
}

func TestQueryNearEdge(t *testing.T) {
	snap := makeSnapshot(10, 10, 100, 100, map[[2]int]float64{
		{0, 0}: 5.0,
	})

	got := snap.QueryImportantPoint(50, 50, 200, 0.7)
	assert.InDelta(t, 50, got.X, 1e-6)
	assert.InDelta(t, 50, got.Y, 1e-6)
}

func TestQueryNilSnapshot(t *testing.T) {
	var snap *Snapshot
	got := snap.QueryImportantPoint(100, 100, 200, 0.7)
	assert.Equal(t, geometry.Point2D{X: 100, Y: 100}, got)
}

func TestTopCells(t *testing.T) {
	snap := makeSnapshot(4, 3, 30, 30, map[[2]int]float64{
		{1, 0}: 2.0,
		{3, 2}: 5.0,
		{0, 1}: 3.5,
	})

	top := snap.TopCells(2)
	require.Len(t, top, 2)
	assert.Equal(t, 5.0, top[0].Importance)
	assert.Equal(t, 3.5, top[1].Importance)

	all := snap.TopCells(100)
	assert.Len(t, all, 12)
}

func TestCellAt(t *testing.T) {
	snap := makeSnapshot(4, 3, 30, 30, nil)

	cell, ok := snap.CellAt(geometry.Point2D{X: 95, Y: 35})
	require.True(t, ok)
	assert.Equal(t, 3, cell.Col)
	assert.Equal(t, 1, cell.Row)

	_, ok = snap.CellAt(geometry.Point2D{X: 500, Y: 35})
	assert.False(t, ok)
}
