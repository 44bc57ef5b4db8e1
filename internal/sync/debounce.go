package sync

import (
	stdsync "sync"
	"time"
)

// DebouncedWriter coalesces rapid successive writes into one. Each
// ScheduleWrite replaces the previous pending write and restarts the
// timer; only the last write in a burst runs, after the quiet interval.
// Preferences toggles use this so flipping a switch five times produces
// one persisted update and one sync mutation.
type DebouncedWriter struct {
	interval time.Duration

	mu      stdsync.Mutex
	timer   *time.Timer
	pending func()
	closed  bool
}

// NewDebouncedWriter creates a writer with the given quiet interval.
func NewDebouncedWriter(interval time.Duration) *DebouncedWriter {
	return &DebouncedWriter{interval: interval}
}

// ScheduleWrite stores write as the pending operation, dropping any
// previous pending write, and (re)starts the timer. After Close it is a
// no-op.
func (w *DebouncedWriter) ScheduleWrite(write func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.pending = write
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.interval, w.fire)
}

func (w *DebouncedWriter) fire() {
	w.mu.Lock()
	write := w.pending
	w.pending = nil
	w.mu.Unlock()

	if write != nil {
		write()
	}
}

// Flush runs the pending write immediately, if any. Used on app
// background and shutdown so a trailing write is not lost.
func (w *DebouncedWriter) Flush() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	write := w.pending
	w.pending = nil
	w.mu.Unlock()

	if write != nil {
		write()
	}
}

// Close flushes the pending write and rejects further scheduling.
func (w *DebouncedWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	write := w.pending
	w.pending = nil
	w.mu.Unlock()

	if write != nil {
		write()
	}
}
