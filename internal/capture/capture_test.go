package capture

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleToWidth(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 300))

	scaled := scaleToWidth(src, 200)
	assert.Equal(t, 200, scaled.Bounds().Dx())
	assert.Equal(t, 150, scaled.Bounds().Dy())
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, SavePNG(image.NewRGBA(image.Rect(0, 0, 8, 8)), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestNewCreatesScratchDir(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	info, err := os.Stat(c.tempDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, c.Close())
	_, err = os.Stat(c.tempDir)
	assert.True(t, os.IsNotExist(err))
}
