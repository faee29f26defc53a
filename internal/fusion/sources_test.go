package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context-magnifier/pkg/geometry"
)

func TestSourceFunc(t *testing.T) {
	src := SourceFunc(func() (geometry.Point2D, bool) {
		return geometry.Point2D{X: 9, Y: 8}, true
	})

	got, ok := src.Current()
	assert.True(t, ok)
	assert.Equal(t, geometry.Point2D{X: 9, Y: 8}, got)
}

func TestSimulatedSourceStaysOnScreen(t *testing.T) {
	src := NewSimulatedSource(1920, 1080)
	require.NoError(t, src.Start())
	defer src.Stop()

	for i := 0; i < 500; i++ {
		p, ok := src.Current()
		require.True(t, ok)
		assert.GreaterOrEqual(t, p.X, 1920/2-1920/3.0)
		assert.LessOrEqual(t, p.X, 1920/2+1920/3.0)
		assert.GreaterOrEqual(t, p.Y, 1080/2-1080/3.0)
		assert.LessOrEqual(t, p.Y, 1080/2+1080/3.0)
	}
}

func TestSimulatedSourceMoves(t *testing.T) {
	src := NewSimulatedSource(1920, 1080)

	a, _ := src.Current()
	b, _ := src.Current()
	assert.NotEqual(t, a, b)
}
