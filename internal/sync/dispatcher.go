package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/repstack/backend/internal/connectivity"
	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/logging"
	"github.com/repstack/backend/internal/sync/queue"
	"github.com/repstack/backend/internal/telemetry"
)

// Dispatcher routes mutations to the remote endpoint or the durable
// queue. Dispatch never blocks the caller: the local transaction has
// already committed by the time a mutation reaches the dispatcher, and
// everything remote happens on a background goroutine.
type Dispatcher struct {
	checker  connectivity.Checker
	endpoint Endpoint
	queue    *queue.Queue
	timeout  time.Duration

	wg stdsync.WaitGroup
}

// NewDispatcher creates a Dispatcher. timeout bounds the connectivity
// check and the remote call for a single live dispatch.
func NewDispatcher(checker connectivity.Checker, endpoint Endpoint, q *queue.Queue, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		checker:  checker,
		endpoint: endpoint,
		queue:    q,
		timeout:  timeout,
	}
}

// Dispatch hands a mutation to the sync layer and returns immediately.
// The mutation either reaches the remote endpoint or lands in the
// durable queue; a remote failure never surfaces to the caller.
func (d *Dispatcher) Dispatch(m Mutation) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatch(m)
	}()
}

// Wait blocks until all in-flight dispatches settle. Used by tests and
// by shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(m Mutation) {
	// Older mutations waiting in the queue must reach the server first.
	// Sending this one live would reorder them, so it joins the queue.
	count, err := d.queue.Count()
	if err != nil {
		logging.Error("Failed to read queue depth, queueing mutation", err,
			map[string]interface{}{"code": m.Code})
		d.enqueue(m)
		return
	}
	if count > 0 {
		logging.Debug("Queue not empty, preserving order",
			map[string]interface{}{"code": m.Code, "queued": count})
		d.enqueue(m)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	status, err := d.checker.Check(ctx)
	if err != nil {
		// An inconclusive check is treated as offline.
		logging.Debug("Connectivity check failed, queueing mutation",
			map[string]interface{}{"code": m.Code, "error": err.Error()})
		d.enqueue(m)
		return
	}
	if !status.Online() {
		d.enqueue(m)
		return
	}

	outcome, err := d.endpoint.Call(ctx, m.Code, m.Payload)
	if err != nil {
		logging.Debug("Live sync failed, queueing mutation",
			map[string]interface{}{"code": m.Code, "error": err.Error()})
		d.enqueue(m)
		return
	}
	if !outcome.Success {
		logging.Debug("Live sync rejected, queueing mutation",
			map[string]interface{}{"code": m.Code, "detail": outcome.Detail})
		d.enqueue(m)
		return
	}

	telemetry.RecordDispatchLive()
	logging.Debug("Mutation synced live", map[string]interface{}{"code": m.Code})
}

// enqueue is the fallback for every path that cannot deliver live. An
// enqueue failure means the mutation is lost on this device; it is the
// one unrecoverable case, logged loudly with its own code.
func (d *Dispatcher) enqueue(m Mutation) {
	entry, err := d.queue.Enqueue(string(m.Code), m.Payload)
	if err != nil {
		logging.ErrorWithCode("Failed to persist mutation to sync queue",
			string(errors.ErrQueuePersist),
			fmt.Errorf("mutation %s dropped: %w", m.Code, err),
			map[string]interface{}{"code": m.Code})
		return
	}
	telemetry.RecordEnqueue()
	logging.Debug("Mutation queued for later sync",
		map[string]interface{}{"code": m.Code, "seq": entry.Seq})
}
