package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/repstack/backend/internal/db"
	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/models"
)

// openTestDB opens a migrated database in dir.
func openTestDB(t *testing.T, dir string) *db.DB {
	t.Helper()

	database, err := db.Open(dir)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	migrator := db.NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		t.Fatalf("failed to initialize migrator: %v", err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return database
}

func newTestQueue(t *testing.T, opts Options) (*Queue, *db.DB) {
	t.Helper()

	database := openTestDB(t, t.TempDir())
	t.Cleanup(func() { database.Close() })
	return New(database.DB, opts), database
}

func payload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return raw
}

// TestEnqueueAssignsSeq verifies entries get monotonically increasing
// sequence numbers.
func TestEnqueueAssignsSeq(t *testing.T) {
	q, _ := newTestQueue(t, DefaultOptions())

	first, err := q.Enqueue("FOLDER_CREATE", payload(t, map[string]string{"name": "Push Day"}))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	second, err := q.Enqueue("FOLDER_UPDATE", payload(t, map[string]string{"name": "Pull Day"}))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if second.Seq <= first.Seq {
		t.Errorf("expected increasing seq, got %d then %d", first.Seq, second.Seq)
	}
	if first.Status != models.QueueStatusPending {
		t.Errorf("expected pending status, got %s", first.Status)
	}
}

// TestFIFOOrder verifies PeekBatch returns entries oldest first.
func TestFIFOOrder(t *testing.T) {
	q, _ := newTestQueue(t, DefaultOptions())

	codes := []string{"FOLDER_CREATE", "MACRO_ENTRY_CREATE", "WORKOUT_FINISH"}
	for _, code := range codes {
		if _, err := q.Enqueue(code, payload(t, map[string]string{})); err != nil {
			t.Fatalf("Enqueue(%s) failed: %v", code, err)
		}
	}

	batch, err := q.PeekBatch(10)
	if err != nil {
		t.Fatalf("PeekBatch failed: %v", err)
	}
	if len(batch) != len(codes) {
		t.Fatalf("expected %d entries, got %d", len(codes), len(batch))
	}
	for i, entry := range batch {
		if entry.Code != codes[i] {
			t.Errorf("position %d: expected %s, got %s", i, codes[i], entry.Code)
		}
	}
}

// TestDurabilityAcrossReopen verifies queue contents survive closing and
// reopening the database file.
func TestDurabilityAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	database := openTestDB(t, dir)
	q := New(database.DB, DefaultOptions())

	entry, err := q.Enqueue("PREFERENCES_UPDATE", payload(t, map[string]string{"weight_unit": "lb"}))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("failed to close database: %v", err)
	}

	reopened := openTestDB(t, dir)
	defer reopened.Close()
	q2 := New(reopened.DB, DefaultOptions())

	count, err := q2.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d", count)
	}

	batch, err := q2.PeekBatch(10)
	if err != nil {
		t.Fatalf("PeekBatch failed: %v", err)
	}
	if batch[0].ID != entry.ID {
		t.Errorf("expected entry %s, got %s", entry.ID, batch[0].ID)
	}
	if batch[0].Code != "PREFERENCES_UPDATE" {
		t.Errorf("expected PREFERENCES_UPDATE, got %s", batch[0].Code)
	}
	if string(batch[0].Payload) != `{"weight_unit":"lb"}` {
		t.Errorf("payload changed across reopen: %s", batch[0].Payload)
	}
}

// TestRemove verifies removal and the not-found case.
func TestRemove(t *testing.T) {
	q, _ := newTestQueue(t, DefaultOptions())

	entry, err := q.Enqueue("FOLDER_DELETE", payload(t, map[string]string{}))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := q.Remove(string(entry.ID)); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	count, _ := q.Count()
	if count != 0 {
		t.Errorf("expected empty queue after remove, got %d", count)
	}

	err = q.Remove(string(entry.ID))
	if !errors.Is(err, errors.ErrQueueNotFound) {
		t.Errorf("expected ErrQueueNotFound, got %v", err)
	}
}

// TestMarkFailureSchedulesRetry verifies the backoff schedule.
func TestMarkFailureSchedulesRetry(t *testing.T) {
	q, _ := newTestQueue(t, Options{
		MaxAttempts: 5,
		BackoffBase: time.Minute,
		BackoffCap:  time.Hour,
	})

	entry, err := q.Enqueue("MACRO_TARGET_SET", payload(t, map[string]string{}))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	cause := errors.New(errors.ErrSyncTimeout, "request timed out")
	updated, err := q.MarkFailure(string(entry.ID), cause)
	if err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}

	if updated.AttemptCount != 1 {
		t.Errorf("expected attempt_count 1, got %d", updated.AttemptCount)
	}
	if updated.Status != models.QueueStatusPending {
		t.Errorf("expected entry still pending, got %s", updated.Status)
	}
	if updated.LastError == "" {
		t.Error("expected last_error to be recorded")
	}

	// First retry should be about one minute out.
	delay := updated.NextRetryAt - time.Now().Unix()
	if delay < 50 || delay > 70 {
		t.Errorf("expected ~60s backoff, got %ds", delay)
	}

	// Second failure doubles the delay.
	updated, err = q.MarkFailure(string(entry.ID), cause)
	if err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}
	delay = updated.NextRetryAt - time.Now().Unix()
	if delay < 110 || delay > 130 {
		t.Errorf("expected ~120s backoff, got %ds", delay)
	}
}

// TestBackoffCap verifies the delay never exceeds the configured cap.
func TestBackoffCap(t *testing.T) {
	q := New(nil, Options{
		MaxAttempts: 20,
		BackoffBase: time.Minute,
		BackoffCap:  time.Hour,
	})

	if got := q.backoff(1); got != time.Minute {
		t.Errorf("attempt 1: expected 1m, got %s", got)
	}
	if got := q.backoff(3); got != 4*time.Minute {
		t.Errorf("attempt 3: expected 4m, got %s", got)
	}
	if got := q.backoff(15); got != time.Hour {
		t.Errorf("attempt 15: expected cap 1h, got %s", got)
	}
}

// TestDeadLetterAfterMaxAttempts verifies entries leave the pending set
// once the attempt budget is exhausted.
func TestDeadLetterAfterMaxAttempts(t *testing.T) {
	q, _ := newTestQueue(t, Options{
		MaxAttempts: 2,
		BackoffBase: time.Millisecond,
		BackoffCap:  time.Second,
	})

	entry, err := q.Enqueue("WORKOUT_FINISH", payload(t, map[string]string{}))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	cause := errors.New(errors.ErrSyncRejected, "backend rejected mutation")
	if _, err := q.MarkFailure(string(entry.ID), cause); err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}
	updated, err := q.MarkFailure(string(entry.ID), cause)
	if err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}

	if updated.Status != models.QueueStatusDead {
		t.Fatalf("expected dead status after %d attempts, got %s", updated.AttemptCount, updated.Status)
	}

	// Dead entries no longer block the queue.
	count, _ := q.Count()
	if count != 0 {
		t.Errorf("expected 0 pending entries, got %d", count)
	}
	batch, _ := q.PeekBatch(10)
	if len(batch) != 0 {
		t.Errorf("expected empty batch, got %d entries", len(batch))
	}

	dead, err := q.DeadLettered()
	if err != nil {
		t.Fatalf("DeadLettered failed: %v", err)
	}
	if len(dead) != 1 || dead[0].ID != entry.ID {
		t.Errorf("expected entry %s in dead letter list, got %v", entry.ID, dead)
	}
}

// TestRetryDeadLettered verifies dead entries can be reset to pending.
func TestRetryDeadLettered(t *testing.T) {
	q, _ := newTestQueue(t, Options{
		MaxAttempts: 1,
		BackoffBase: time.Millisecond,
		BackoffCap:  time.Second,
	})

	entry, err := q.Enqueue("FOLDER_CREATE", payload(t, map[string]string{}))
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := q.MarkFailure(string(entry.ID), errors.New(errors.ErrSyncFailed, "boom")); err != nil {
		t.Fatalf("MarkFailure failed: %v", err)
	}

	reset, err := q.RetryDeadLettered()
	if err != nil {
		t.Fatalf("RetryDeadLettered failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 entry reset, got %d", reset)
	}

	count, _ := q.Count()
	if count != 1 {
		t.Errorf("expected 1 pending entry after reset, got %d", count)
	}
	batch, _ := q.PeekBatch(10)
	if batch[0].AttemptCount != 0 {
		t.Errorf("expected attempt_count reset to 0, got %d", batch[0].AttemptCount)
	}
}
