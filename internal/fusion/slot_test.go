package fusion

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"context-magnifier/pkg/geometry"
)

func TestSlotEmpty(t *testing.T) {
	var s Slot[geometry.Point2D]

	_, ok := s.Load()
	assert.False(t, ok)
	assert.Zero(t, s.Generation())
}

func TestSlotPublishLoad(t *testing.T) {
	var s Slot[geometry.Point2D]

	s.Publish(geometry.Point2D{X: 1, Y: 2})
	got, ok := s.Load()
	assert.True(t, ok)
	assert.Equal(t, geometry.Point2D{X: 1, Y: 2}, got)
	assert.Equal(t, uint64(1), s.Generation())

	s.Publish(geometry.Point2D{X: 3, Y: 4})
	got, _ = s.Load()
	assert.Equal(t, geometry.Point2D{X: 3, Y: 4}, got)
	assert.Equal(t, uint64(2), s.Generation())
}

func TestSlotClear(t *testing.T) {
	var s Slot[int]

	s.Publish(7)
	s.Clear()

	v, ok := s.Load()
	assert.False(t, ok)
	assert.Zero(t, v)
	// Clearing does not rewind history.
	assert.Equal(t, uint64(1), s.Generation())
}

func TestSlotConcurrentAccess(t *testing.T) {
	var s Slot[int]
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Publish(n)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Load()
			}
		}()
	}
	wg.Wait()

	_, ok := s.Load()
	assert.True(t, ok)
	assert.Equal(t, uint64(800), s.Generation())
}
