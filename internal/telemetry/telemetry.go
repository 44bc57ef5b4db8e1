// Package telemetry collects in-process sync counters. Nothing leaves the
// device: counters live in memory and are only exposed through Snapshot,
// which the desktop status endpoint and tests read. Collection is off by
// default and requires explicit opt-in.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

// Enable turns counter collection on. Off by default.
func Enable() {
	enabled.Store(true)
}

// Disable turns counter collection off.
func Disable() {
	enabled.Store(false)
}

// IsEnabled reports whether counters are being collected.
func IsEnabled() bool {
	return enabled.Load()
}

// Snapshot is a point-in-time copy of the sync counters.
type Snapshot struct {
	DispatchedLive  int64 `json:"dispatched_live"`
	Enqueued        int64 `json:"enqueued"`
	Drained         int64 `json:"drained"`
	DrainHalts      int64 `json:"drain_halts"`
	DeadLettered    int64 `json:"dead_lettered"`
	LastDrainMillis int64 `json:"last_drain_millis"`
}

var (
	mu    sync.Mutex
	stats Snapshot
)

// RecordDispatchLive counts a mutation sent directly without queueing.
func RecordDispatchLive() {
	if !IsEnabled() {
		return
	}
	mu.Lock()
	stats.DispatchedLive++
	mu.Unlock()
}

// RecordEnqueue counts a mutation written to the durable queue.
func RecordEnqueue() {
	if !IsEnabled() {
		return
	}
	mu.Lock()
	stats.Enqueued++
	mu.Unlock()
}

// RecordDrained counts entries successfully replayed from the queue.
func RecordDrained(n int) {
	if !IsEnabled() {
		return
	}
	mu.Lock()
	stats.Drained += int64(n)
	mu.Unlock()
}

// RecordDrainHalt counts a drain cycle stopped by a failure.
func RecordDrainHalt() {
	if !IsEnabled() {
		return
	}
	mu.Lock()
	stats.DrainHalts++
	mu.Unlock()
}

// RecordDeadLettered counts entries that exhausted their retry budget.
func RecordDeadLettered() {
	if !IsEnabled() {
		return
	}
	mu.Lock()
	stats.DeadLettered++
	mu.Unlock()
}

// RecordDrainDuration records how long the last drain cycle took.
func RecordDrainDuration(d time.Duration) {
	if !IsEnabled() {
		return
	}
	mu.Lock()
	stats.LastDrainMillis = d.Milliseconds()
	mu.Unlock()
}

// Get returns a copy of the current counters.
func Get() Snapshot {
	mu.Lock()
	defer mu.Unlock()
	return stats
}

// Reset zeroes all counters. Intended for tests.
func Reset() {
	mu.Lock()
	stats = Snapshot{}
	mu.Unlock()
}
