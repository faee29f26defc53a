package fusion

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerStartStop(t *testing.T) {
	var ticks atomic.Int64
	w := newWorker("test", time.Millisecond, func() error {
		ticks.Add(1)
		return nil
	})

	assert.False(t, w.running())
	require.True(t, w.start())
	assert.True(t, w.running())

	assert.Eventually(t, func() bool { return ticks.Load() > 3 },
		time.Second, time.Millisecond)

	require.True(t, w.halt(time.Second, nil))
	assert.False(t, w.running())

	settled := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, ticks.Load())
}

func TestWorkerDoubleStartIsNoop(t *testing.T) {
	w := newWorker("test", time.Millisecond, func() error { return nil })

	require.True(t, w.start())
	defer w.halt(time.Second, nil)

	assert.False(t, w.start())
}

func TestWorkerHaltWhenOff(t *testing.T) {
	w := newWorker("test", time.Millisecond, func() error { return nil })
	assert.False(t, w.halt(time.Second, nil))
}

func TestWorkerRestartAfterHalt(t *testing.T) {
	var ticks atomic.Int64
	w := newWorker("test", time.Millisecond, func() error {
		ticks.Add(1)
		return nil
	})

	require.True(t, w.start())
	require.True(t, w.halt(time.Second, nil))

	require.True(t, w.start())
	defer w.halt(time.Second, nil)
	before := ticks.Load()
	assert.Eventually(t, func() bool { return ticks.Load() > before },
		time.Second, time.Millisecond)
}

func TestWorkerHaltRunsCleanup(t *testing.T) {
	w := newWorker("test", time.Millisecond, func() error { return nil })

	var cleaned atomic.Bool
	require.True(t, w.start())
	require.True(t, w.halt(time.Second, func() { cleaned.Store(true) }))
	assert.True(t, cleaned.Load())
	assert.Equal(t, "off", w.health().State)
}

func TestWorkerSlowStopDefersCleanup(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	w := newWorker("test", time.Millisecond, func() error {
		entered <- struct{}{}
		<-release
		return nil
	})

	require.True(t, w.start())
	<-entered

	// The tick is stuck. Halt times out, but cleanup must wait for the
	// loop, and a restart must not overlap it.
	var cleaned atomic.Bool
	assert.False(t, w.halt(10*time.Millisecond, func() { cleaned.Store(true) }))
	assert.Equal(t, "stopping", w.health().State)
	assert.False(t, cleaned.Load())
	assert.False(t, w.start())

	close(release)
	assert.Eventually(t, func() bool { return w.health().State == "off" },
		time.Second, time.Millisecond)
	assert.True(t, cleaned.Load())

	require.True(t, w.start())
	require.True(t, w.halt(time.Second, nil))
}

func TestWorkerRecordsFailures(t *testing.T) {
	var calls atomic.Int64
	w := newWorker("test", time.Millisecond, func() error {
		if calls.Add(1) == 1 {
			return fmt.Errorf("transient")
		}
		return nil
	})

	require.True(t, w.start())
	defer w.halt(2*time.Second, nil)

	assert.Eventually(t, func() bool {
		return w.health().Failures == 1
	}, time.Second, time.Millisecond)

	h := w.health()
	assert.Equal(t, "running", h.State)
	assert.Equal(t, "transient", h.LastError)
}

func TestWorkerHealthStates(t *testing.T) {
	w := newWorker("test", time.Millisecond, func() error { return nil })
	assert.Equal(t, "off", w.health().State)

	require.True(t, w.start())
	assert.Equal(t, "running", w.health().State)

	w.halt(time.Second, nil)
	assert.Equal(t, "off", w.health().State)
}
