// Package models provides data model definitions for RepStack Core.
package models

import "encoding/json"

// Sync queue entry statuses.
const (
	QueueStatusPending = "pending"
	QueueStatusDead    = "dead"
)

// SyncQueueEntry is a persisted pending mutation. Entries survive app
// restarts; Seq is the strictly increasing FIFO order key assigned by
// SQLite on insert.
type SyncQueueEntry struct {
	Seq          int64           `db:"seq" json:"seq"`
	ID           UUID            `db:"id" json:"id"`
	Code         string          `db:"code" json:"code"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	AttemptCount int             `db:"attempt_count" json:"attempt_count"`
	MaxAttempts  int             `db:"max_attempts" json:"max_attempts"`
	NextRetryAt  int64           `db:"next_retry_at" json:"next_retry_at"`
	Status       string          `db:"status" json:"status"`
	LastError    string          `db:"last_error" json:"last_error,omitempty"`
	EnqueuedAt   int64           `db:"enqueued_at" json:"enqueued_at"`
	UpdatedAt    int64           `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for SyncQueueEntry.
func (SyncQueueEntry) TableName() string {
	return "sync_queue"
}
