// Package queue provides the durable sync queue: the on-device FIFO of
// mutations that could not be sent immediately. Entries are persisted in
// SQLite and survive process restarts.
package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/logging"
	"github.com/repstack/backend/internal/models"
	"github.com/repstack/backend/internal/uuid"
)

// Options configure retry behavior.
type Options struct {
	MaxAttempts int           // dead-letter threshold
	BackoffBase time.Duration // first retry delay
	BackoffCap  time.Duration // ceiling for the backoff schedule
}

// DefaultOptions returns the default retry configuration.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 8,
		BackoffBase: time.Minute,
		BackoffCap:  time.Hour,
	}
}

// Queue is the durable sync queue. All methods hit SQLite directly so an
// enqueue is durable before it returns. Safe for concurrent use; SQLite
// serializes the writes.
type Queue struct {
	db   *sql.DB
	opts Options
}

// New creates a Queue over an open database. The sync_queue table is part
// of the core schema migrations.
func New(db *sql.DB, opts Options) *Queue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultOptions().MaxAttempts
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultOptions().BackoffBase
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = DefaultOptions().BackoffCap
	}
	return &Queue{db: db, opts: opts}
}

// Enqueue appends a mutation. The entry is written to durable storage
// before Enqueue returns; a failure here means the mutation may be lost
// and is reported with a distinct error code by the caller.
func (q *Queue) Enqueue(code string, payload json.RawMessage) (*models.SyncQueueEntry, error) {
	now := time.Now().Unix()

	entry := &models.SyncQueueEntry{
		ID:          models.UUID(uuid.New()),
		Code:        code,
		Payload:     payload,
		MaxAttempts: q.opts.MaxAttempts,
		Status:      models.QueueStatusPending,
		EnqueuedAt:  now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO sync_queue (id, code, payload, attempt_count, max_attempts, next_retry_at, status, last_error, enqueued_at, updated_at)
			  VALUES (?, ?, ?, 0, ?, 0, ?, '', ?, ?)`
	result, err := q.db.Exec(query, entry.ID, entry.Code, string(entry.Payload),
		entry.MaxAttempts, entry.Status, entry.EnqueuedAt, entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to persist queue entry: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	entry.Seq = seq

	logging.Debug("Enqueued mutation",
		map[string]interface{}{"code": code, "entry_id": entry.ID, "seq": seq})

	return entry, nil
}

// PeekBatch returns up to limit pending entries, oldest first, without
// removing them.
func (q *Queue) PeekBatch(limit int) ([]*models.SyncQueueEntry, error) {
	query := `SELECT seq, id, code, payload, attempt_count, max_attempts, next_retry_at, status, last_error, enqueued_at, updated_at
			  FROM sync_queue WHERE status = ? ORDER BY seq LIMIT ?`
	rows, err := q.db.Query(query, models.QueueStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Remove deletes an entry after successful replay.
func (q *Queue) Remove(id string) error {
	result, err := q.db.Exec("DELETE FROM sync_queue WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New(errors.ErrQueueNotFound, fmt.Sprintf("queue entry %s not found", id))
	}
	return nil
}

// Count returns the number of pending entries.
func (q *Queue) Count() (int, error) {
	var count int
	err := q.db.QueryRow("SELECT COUNT(*) FROM sync_queue WHERE status = ?",
		models.QueueStatusPending).Scan(&count)
	return count, err
}

// MarkFailure records a failed replay attempt: attempt_count increments,
// the next retry is scheduled with exponential backoff, and entries past
// max_attempts are dead-lettered so they stop blocking the queue.
func (q *Queue) MarkFailure(id string, cause error) (*models.SyncQueueEntry, error) {
	entry, err := q.get(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry.AttemptCount++
	entry.LastError = cause.Error()
	entry.UpdatedAt = now.Unix()

	if entry.AttemptCount >= entry.MaxAttempts {
		entry.Status = models.QueueStatusDead
		logging.ErrorWithCode("Queue entry dead-lettered",
			string(errors.ErrSyncDeadLettered), cause,
			map[string]interface{}{
				"entry_id": entry.ID,
				"code":     entry.Code,
				"attempts": entry.AttemptCount,
			})
	} else {
		backoff := q.backoff(entry.AttemptCount)
		entry.NextRetryAt = now.Add(backoff).Unix()
		logging.Debug("Queue entry retry scheduled",
			map[string]interface{}{
				"entry_id":   entry.ID,
				"code":       entry.Code,
				"attempt":    entry.AttemptCount,
				"backoff_s":  int(backoff.Seconds()),
				"last_error": entry.LastError,
			})
	}

	query := `UPDATE sync_queue SET attempt_count = ?, next_retry_at = ?, status = ?, last_error = ?, updated_at = ?
			  WHERE id = ?`
	if _, err := q.db.Exec(query, entry.AttemptCount, entry.NextRetryAt,
		entry.Status, entry.LastError, entry.UpdatedAt, entry.ID); err != nil {
		return nil, fmt.Errorf("failed to record queue failure: %w", err)
	}

	return entry, nil
}

// backoff calculates the retry delay for an attempt count.
// Formula: base * 2^(attempt-1), capped.
func (q *Queue) backoff(attempt int) time.Duration {
	backoff := q.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= q.opts.BackoffCap {
			return q.opts.BackoffCap
		}
	}
	if backoff > q.opts.BackoffCap {
		backoff = q.opts.BackoffCap
	}
	return backoff
}

// DeadLettered returns entries that exhausted their attempts, oldest
// first. They are kept for diagnostics and manual retry.
func (q *Queue) DeadLettered() ([]*models.SyncQueueEntry, error) {
	query := `SELECT seq, id, code, payload, attempt_count, max_attempts, next_retry_at, status, last_error, enqueued_at, updated_at
			  FROM sync_queue WHERE status = ? ORDER BY seq`
	rows, err := q.db.Query(query, models.QueueStatusDead)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// RetryDeadLettered resets all dead-lettered entries to pending. Returns
// the number reset.
func (q *Queue) RetryDeadLettered() (int, error) {
	result, err := q.db.Exec(`UPDATE sync_queue SET status = ?, attempt_count = 0, next_retry_at = 0, last_error = '', updated_at = ?
							  WHERE status = ?`,
		models.QueueStatusPending, time.Now().Unix(), models.QueueStatusDead)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		logging.Info("Reset dead-lettered entries for retry",
			map[string]interface{}{"count": affected})
	}
	return int(affected), nil
}

// get loads a single entry by ID.
func (q *Queue) get(id string) (*models.SyncQueueEntry, error) {
	query := `SELECT seq, id, code, payload, attempt_count, max_attempts, next_retry_at, status, last_error, enqueued_at, updated_at
			  FROM sync_queue WHERE id = ?`

	var entry models.SyncQueueEntry
	var payload string
	err := q.db.QueryRow(query, id).Scan(&entry.Seq, &entry.ID, &entry.Code,
		&payload, &entry.AttemptCount, &entry.MaxAttempts, &entry.NextRetryAt,
		&entry.Status, &entry.LastError, &entry.EnqueuedAt, &entry.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrQueueNotFound, fmt.Sprintf("queue entry %s not found", id))
	}
	if err != nil {
		return nil, err
	}
	entry.Payload = json.RawMessage(payload)
	return &entry, nil
}

// scanEntries drains entry rows.
func scanEntries(rows *sql.Rows) ([]*models.SyncQueueEntry, error) {
	var entries []*models.SyncQueueEntry
	for rows.Next() {
		var entry models.SyncQueueEntry
		var payload string
		if err := rows.Scan(&entry.Seq, &entry.ID, &entry.Code, &payload,
			&entry.AttemptCount, &entry.MaxAttempts, &entry.NextRetryAt,
			&entry.Status, &entry.LastError, &entry.EnqueuedAt, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entry.Payload = json.RawMessage(payload)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
