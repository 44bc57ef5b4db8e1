package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/repstack/backend/internal/connectivity"
	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/models"
	"github.com/repstack/backend/internal/sync/queue"
)

// recordingHandler captures drain lifecycle events.
type recordingHandler struct {
	mu        stdsync.Mutex
	started   []int
	synced    []string
	halted    []string
	completed []DrainResult
}

func (h *recordingHandler) DrainStarted(pending int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started = append(h.started, pending)
}

func (h *recordingHandler) EntrySynced(entry *models.SyncQueueEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.synced = append(h.synced, entry.Code)
}

func (h *recordingHandler) DrainHalted(entry *models.SyncQueueEntry, cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.halted = append(h.halted, entry.Code)
}

func (h *recordingHandler) DrainCompleted(result DrainResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = append(h.completed, result)
}

// TestDrainEmptiesQueueInOrder verifies a clean drain replays every
// entry oldest first and leaves the queue empty.
func TestDrainEmptiesQueueInOrder(t *testing.T) {
	q := newTestQueue(t)
	endpoint := &fakeEndpoint{}
	handler := &recordingHandler{}
	drainer := NewDrainer(q, nil, endpoint, 10, handler)

	codes := []MutationCode{CodeFolderCreate, CodeMacroEntryCreate, CodeWorkoutFinish}
	for _, code := range codes {
		m := mustMutation(t, code, map[string]string{})
		if _, err := q.Enqueue(string(m.Code), m.Payload); err != nil {
			t.Fatalf("Enqueue(%s) failed: %v", code, err)
		}
	}

	result, err := drainer.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if result.Synced != 3 {
		t.Errorf("expected 3 synced, got %d", result.Synced)
	}
	if result.Halted {
		t.Errorf("unexpected halt: %s", result.HaltReason)
	}
	if result.Remaining != 0 {
		t.Errorf("expected empty queue, got %d remaining", result.Remaining)
	}

	got := endpoint.calledCodes()
	for i, code := range codes {
		if got[i] != code {
			t.Errorf("replay position %d: expected %s, got %s", i, code, got[i])
		}
	}

	if len(handler.started) != 1 || handler.started[0] != 3 {
		t.Errorf("expected DrainStarted(3), got %v", handler.started)
	}
	if len(handler.synced) != 3 {
		t.Errorf("expected 3 EntrySynced events, got %d", len(handler.synced))
	}
	if len(handler.completed) != 1 {
		t.Errorf("expected 1 DrainCompleted event, got %d", len(handler.completed))
	}
}

// TestDrainHaltsOnFailure verifies the cycle stops at the first failing
// entry and later entries are untouched.
func TestDrainHaltsOnFailure(t *testing.T) {
	q := newTestQueue(t)
	endpoint := &fakeEndpoint{
		failErr: errors.New(errors.ErrSyncFailed, "connection reset"),
		failOn:  2,
	}
	handler := &recordingHandler{}
	drainer := NewDrainer(q, nil, endpoint, 10, handler)

	codes := []MutationCode{CodeFolderCreate, CodeFolderUpdate, CodeFolderDelete}
	for _, code := range codes {
		m := mustMutation(t, code, map[string]string{})
		if _, err := q.Enqueue(string(m.Code), m.Payload); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	result, err := drainer.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if result.Synced != 1 {
		t.Errorf("expected 1 synced before halt, got %d", result.Synced)
	}
	if !result.Halted {
		t.Error("expected drain to halt")
	}
	if result.Remaining != 2 {
		t.Errorf("expected 2 remaining, got %d", result.Remaining)
	}

	// The failing entry stays at the head with its attempt recorded.
	batch, _ := q.PeekBatch(10)
	if len(batch) != 2 {
		t.Fatalf("expected 2 entries left, got %d", len(batch))
	}
	if batch[0].Code != string(CodeFolderUpdate) {
		t.Errorf("expected failing entry at head, got %s", batch[0].Code)
	}
	if batch[0].AttemptCount != 1 {
		t.Errorf("expected attempt_count 1 on failed entry, got %d", batch[0].AttemptCount)
	}
	if batch[1].Code != string(CodeFolderDelete) {
		t.Errorf("expected untouched entry after head, got %s", batch[1].Code)
	}
	if batch[1].AttemptCount != 0 {
		t.Errorf("entry after halt should be untouched, attempt_count %d", batch[1].AttemptCount)
	}

	if len(handler.halted) != 1 || handler.halted[0] != string(CodeFolderUpdate) {
		t.Errorf("expected DrainHalted for FOLDER_UPDATE, got %v", handler.halted)
	}
}

// TestDrainHaltsWhenHeadNotDue verifies backoff blocks the whole queue
// rather than skipping the head.
func TestDrainHaltsWhenHeadNotDue(t *testing.T) {
	q := newTestQueueOpts(t, queue.Options{
		MaxAttempts: 5,
		BackoffBase: time.Hour,
		BackoffCap:  time.Hour,
	})
	endpoint := &fakeEndpoint{}
	drainer := NewDrainer(q, nil, endpoint, 10, nil)

	m := mustMutation(t, CodeFolderCreate, FolderPayload{Name: "Push"})
	entry, err := q.Enqueue(string(m.Code), m.Payload)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	// Push next_retry_at into the future.
	if _, err := q.MarkFailure(string(entry.ID), errors.New(errors.ErrSyncTimeout, "timeout")); err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}

	// Second entry behind the delayed head.
	m2 := mustMutation(t, CodeFolderUpdate, FolderPayload{Name: "Pull"})
	if _, err := q.Enqueue(string(m2.Code), m2.Payload); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	result, err := drainer.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if result.Synced != 0 {
		t.Errorf("expected 0 synced while head delayed, got %d", result.Synced)
	}
	if !result.Halted {
		t.Error("expected halt while head not due")
	}
	if endpoint.callCount() != 0 {
		t.Errorf("endpoint should not be called, got %d calls", endpoint.callCount())
	}
}

// TestDrainAbortsWhenOffline verifies a drain with a checker wired in
// gives up before touching the endpoint when the device is offline.
func TestDrainAbortsWhenOffline(t *testing.T) {
	q := newTestQueue(t)
	endpoint := &fakeEndpoint{}
	checker := connectivity.NewStaticChecker(connectivity.Offline())
	drainer := NewDrainer(q, checker, endpoint, 10, nil)

	m := mustMutation(t, CodeFolderCreate, FolderPayload{Name: "Push"})
	if _, err := q.Enqueue(string(m.Code), m.Payload); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	result, err := drainer.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if !result.Halted || result.Synced != 0 {
		t.Errorf("expected offline abort, got %+v", result)
	}
	if endpoint.callCount() != 0 {
		t.Errorf("endpoint should not be called offline, got %d calls", endpoint.callCount())
	}

	checker.Set(connectivity.Online())
	result, err = drainer.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if result.Synced != 1 {
		t.Errorf("expected 1 synced after reconnect, got %d", result.Synced)
	}
}

// TestDrainSingleFlight verifies concurrent drains coalesce into one.
func TestDrainSingleFlight(t *testing.T) {
	q := newTestQueue(t)
	endpoint := &fakeEndpoint{delay: 100 * time.Millisecond}
	drainer := NewDrainer(q, nil, endpoint, 10, nil)

	m := mustMutation(t, CodeFolderCreate, FolderPayload{Name: "Push"})
	if _, err := q.Enqueue(string(m.Code), m.Payload); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	done := make(chan *DrainResult, 1)
	go func() {
		result, _ := drainer.Drain(context.Background())
		done <- result
	}()

	// Give the first drain time to take the flag.
	time.Sleep(20 * time.Millisecond)

	second, err := drainer.Drain(context.Background())
	if err != nil {
		t.Fatalf("second Drain failed: %v", err)
	}
	if second != nil {
		t.Errorf("expected nil result for coalesced drain, got %+v", second)
	}

	first := <-done
	if first == nil || first.Synced != 1 {
		t.Errorf("expected first drain to sync 1 entry, got %+v", first)
	}
}

// TestDrainEmptyQueueIsNoop verifies draining an empty queue does
// nothing and reports nothing.
func TestDrainEmptyQueueIsNoop(t *testing.T) {
	q := newTestQueue(t)
	endpoint := &fakeEndpoint{}
	handler := &recordingHandler{}
	drainer := NewDrainer(q, nil, endpoint, 10, handler)

	result, err := drainer.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if result.Synced != 0 || result.Halted {
		t.Errorf("unexpected result for empty queue: %+v", result)
	}
	if len(handler.started) != 0 {
		t.Errorf("DrainStarted fired for empty queue")
	}
}

// TestDrainDeadLettersExhaustedEntry verifies an entry past its attempt
// budget moves to the dead letter list and stops blocking the queue.
func TestDrainDeadLettersExhaustedEntry(t *testing.T) {
	q := newTestQueue(t) // MaxAttempts 3, millisecond backoff
	endpoint := &fakeEndpoint{failErr: errors.New(errors.ErrSyncRejected, "schema mismatch")}
	drainer := NewDrainer(q, nil, endpoint, 10, nil)

	m := mustMutation(t, CodeMacroEntryCreate, MacroEntryPayload{EntryDate: "2026-08-30"})
	if _, err := q.Enqueue(string(m.Code), m.Payload); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Retry delays are sub-second but stored at second granularity, so
	// a drain may report the head as not yet due. Keep draining until
	// the attempt budget runs out.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := drainer.Drain(context.Background()); err != nil {
			t.Fatalf("Drain failed: %v", err)
		}
		dead, err := q.DeadLettered()
		if err != nil {
			t.Fatalf("DeadLettered failed: %v", err)
		}
		if len(dead) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("entry was not dead-lettered in time")
		}
		time.Sleep(50 * time.Millisecond)
	}

	count, _ := q.Count()
	if count != 0 {
		t.Errorf("expected 0 pending after dead-letter, got %d", count)
	}
	dead, _ := q.DeadLettered()
	if len(dead) != 1 {
		t.Errorf("expected 1 dead-lettered entry, got %d", len(dead))
	}
}
