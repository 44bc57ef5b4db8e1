package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/repstack/backend/internal/connectivity"
	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/logging"
	"github.com/repstack/backend/internal/models"
	"github.com/repstack/backend/internal/sync/queue"
	"github.com/repstack/backend/internal/telemetry"
)

// EventHandler receives drain lifecycle notifications. Implementations
// must not block; the desktop app uses one to push progress over
// WebSocket.
type EventHandler interface {
	DrainStarted(pending int)
	EntrySynced(entry *models.SyncQueueEntry)
	DrainHalted(entry *models.SyncQueueEntry, cause error)
	DrainCompleted(result DrainResult)
}

// DrainResult summarizes one drain cycle.
type DrainResult struct {
	Synced       int           `json:"synced"`
	DeadLettered int           `json:"dead_lettered"`
	Halted       bool          `json:"halted"`
	HaltReason   string        `json:"halt_reason,omitempty"`
	Remaining    int           `json:"remaining"`
	Duration     time.Duration `json:"duration"`
}

// Drainer replays queued mutations in FIFO order. One drain runs at a
// time; a cycle halts at the first entry that fails or is not yet due
// for retry, which keeps delivery in order.
type Drainer struct {
	queue     *queue.Queue
	checker   connectivity.Checker
	endpoint  Endpoint
	batchSize int
	handler   EventHandler

	mu         stdsync.Mutex
	inProgress bool
}

// NewDrainer creates a Drainer. checker and handler may be nil; with a
// nil checker a drain attempts the replay unconditionally.
func NewDrainer(q *queue.Queue, checker connectivity.Checker, endpoint Endpoint, batchSize int, handler EventHandler) *Drainer {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Drainer{
		queue:     q,
		checker:   checker,
		endpoint:  endpoint,
		batchSize: batchSize,
		handler:   handler,
	}
}

// InProgress reports whether a drain cycle is currently running.
func (d *Drainer) InProgress() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inProgress
}

// Drain replays pending entries oldest first until the queue is empty,
// an entry fails, or ctx is cancelled. Concurrent calls are coalesced:
// if a cycle is already running the call returns immediately with a nil
// result.
func (d *Drainer) Drain(ctx context.Context) (*DrainResult, error) {
	d.mu.Lock()
	if d.inProgress {
		d.mu.Unlock()
		return nil, nil
	}
	d.inProgress = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.inProgress = false
		d.mu.Unlock()
	}()

	start := time.Now()
	result := DrainResult{}

	pending, err := d.queue.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue depth: %w", err)
	}
	if pending == 0 {
		return &result, nil
	}

	if d.checker != nil {
		status, err := d.checker.Check(ctx)
		if err != nil || !status.Online() {
			result.Halted = true
			result.HaltReason = "device is offline"
			result.Remaining = pending
			return &result, nil
		}
	}

	if d.handler != nil {
		d.handler.DrainStarted(pending)
	}
	logging.Info("Drain started", map[string]interface{}{"pending": pending})

	for {
		if err := ctx.Err(); err != nil {
			result.Halted = true
			result.HaltReason = err.Error()
			break
		}

		batch, err := d.queue.PeekBatch(d.batchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to read queue batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		halted := false
		for _, entry := range batch {
			if err := ctx.Err(); err != nil {
				result.Halted = true
				result.HaltReason = err.Error()
				halted = true
				break
			}

			// Backoff: the head entry is the only candidate. Waiting
			// here instead of skipping ahead preserves FIFO.
			if entry.NextRetryAt > time.Now().Unix() {
				result.Halted = true
				result.HaltReason = "head entry not yet due for retry"
				halted = true
				break
			}

			if err := d.replay(ctx, entry, &result); err != nil {
				halted = true
				break
			}
		}
		if halted {
			break
		}
	}

	result.Duration = time.Since(start)
	if remaining, err := d.queue.Count(); err == nil {
		result.Remaining = remaining
	}

	telemetry.RecordDrained(result.Synced)
	telemetry.RecordDrainDuration(result.Duration)
	if result.Halted {
		telemetry.RecordDrainHalt()
	}

	if d.handler != nil {
		d.handler.DrainCompleted(result)
	}
	logging.Info("Drain completed", map[string]interface{}{
		"synced":    result.Synced,
		"remaining": result.Remaining,
		"halted":    result.Halted,
	})

	return &result, nil
}

// replay sends one entry and removes it on success. On failure the entry
// stays at the head of the queue with its attempt count bumped, and the
// cycle halts.
func (d *Drainer) replay(ctx context.Context, entry *models.SyncQueueEntry, result *DrainResult) error {
	outcome, err := d.endpoint.Call(ctx, MutationCode(entry.Code), entry.Payload)
	if err == nil && !outcome.Success {
		err = errors.New(errors.ErrSyncRejected, outcome.Detail)
	}
	if err != nil {
		updated, markErr := d.queue.MarkFailure(string(entry.ID), err)
		if markErr != nil {
			logging.Error("Failed to record drain failure", markErr,
				map[string]interface{}{"entry_id": entry.ID})
		} else if updated.Status == models.QueueStatusDead {
			result.DeadLettered++
			telemetry.RecordDeadLettered()
		}

		result.Halted = true
		result.HaltReason = err.Error()
		if d.handler != nil {
			d.handler.DrainHalted(entry, err)
		}
		logging.Warn("Drain halted on entry", map[string]interface{}{
			"entry_id": entry.ID,
			"code":     entry.Code,
			"error":    err.Error(),
		})
		return errors.Wrap(errors.ErrSyncDrainHalted, "drain halted", err)
	}

	if err := d.queue.Remove(string(entry.ID)); err != nil {
		// The entry was delivered but not removed; it will be replayed
		// on the next cycle. At-least-once makes this safe.
		logging.Error("Failed to remove synced entry", err,
			map[string]interface{}{"entry_id": entry.ID})
		return err
	}

	result.Synced++
	if d.handler != nil {
		d.handler.EntrySynced(entry)
	}
	return nil
}
