package fusion

import (
	"sync"
	"sync/atomic"
	"time"

	"context-magnifier/internal/log"
)

// Worker lifecycle states. Toggling a feature drives its worker around
// the Off -> Starting -> Running -> Stopping -> Off cycle; concurrent
// toggles race on the CAS and the loser becomes a no-op.
const (
	workerOff int32 = iota
	workerStarting
	workerRunning
	workerStopping
)

// retryBackoff is the pause after a failed tick before the worker
// resumes, so a broken collaborator cannot spin the loop.
const retryBackoff = time.Second

// Health reports the externally-visible status of one background worker.
type Health struct {
	State     string `json:"state"`
	LastError string `json:"last_error,omitempty"`
	Failures  int    `json:"failures"`
}

// worker runs a tick function on an interval until halted.
type worker struct {
	name     string
	interval time.Duration
	tick     func() error

	state atomic.Int32
	stop  chan struct{}
	done  chan struct{}

	mu       sync.Mutex
	lastErr  error
	failures int
}

func newWorker(name string, interval time.Duration, tick func() error) *worker {
	return &worker{name: name, interval: interval, tick: tick}
}

// running reports whether the worker is in the Running state.
func (w *worker) running() bool {
	return w.state.Load() == workerRunning
}

// start transitions Off -> Starting -> Running and launches the loop.
// Returns false if the worker was not Off.
func (w *worker) start() bool {
	if !w.state.CompareAndSwap(workerOff, workerStarting) {
		return false
	}
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	w.state.Store(workerRunning)
	go w.run()
	return true
}

// halt transitions Running -> Stopping, signals the loop, and waits up
// to timeout for it to exit. onStopped, if non-nil, runs exactly once
// after the loop has actually exited and before the state returns to
// Off, so resource release tied to the worker (a camera handle) cannot
// race a restart. When the loop outlives the timeout, halt returns
// false and leaves the worker in Stopping; a waiter finishes the
// transition and runs onStopped once the loop finally exits.
func (w *worker) halt(timeout time.Duration, onStopped func()) bool {
	if !w.state.CompareAndSwap(workerRunning, workerStopping) {
		return false
	}
	close(w.stop)
	select {
	case <-w.done:
		w.finish(onStopped)
		return true
	case <-time.After(timeout):
		log.Warn("worker slow to stop, deferring cleanup", "worker", w.name)
		go func() {
			<-w.done
			w.finish(onStopped)
		}()
		return false
	}
}

// finish completes a stop: cleanup first, then the Off transition that
// lets a new start() proceed.
func (w *worker) finish(onStopped func()) {
	if onStopped != nil {
		onStopped()
	}
	w.state.Store(workerOff)
}

func (w *worker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if err := w.tick(); err != nil {
				w.recordError(err)
				log.Warn("worker tick failed, retrying after backoff",
					"worker", w.name, "error", err)
				select {
				case <-w.stop:
					return
				case <-time.After(retryBackoff):
				}
			}
		}
	}
}

func (w *worker) recordError(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.failures++
	w.mu.Unlock()
}

// health returns the worker status snapshot.
func (w *worker) health() Health {
	h := Health{Failures: 0}
	switch w.state.Load() {
	case workerOff:
		h.State = "off"
	case workerStarting:
		h.State = "starting"
	case workerRunning:
		h.State = "running"
	case workerStopping:
		h.State = "stopping"
	}
	w.mu.Lock()
	if w.lastErr != nil {
		h.LastError = w.lastErr.Error()
	}
	h.Failures = w.failures
	w.mu.Unlock()
	return h
}
