// Package models provides data model definitions for RepStack Core.
package models

// Personal record kinds. One row per (exercise_name, kind).
const (
	RecordKindMaxWeight  = "max_weight"
	RecordKindMaxReps    = "max_reps"
	RecordKindBestEst1RM = "best_est_1rm"
)

// PersonalRecord tracks the best value achieved for an exercise.
// Rows are upserted inside the finish-workout transaction.
type PersonalRecord struct {
	ID           UUID    `db:"id" json:"id"`
	ExerciseName string  `db:"exercise_name" json:"exercise_name"`
	Kind         string  `db:"kind" json:"kind"`
	Value        float64 `db:"value" json:"value"`
	SessionID    UUID    `db:"session_id" json:"session_id"`
	AchievedAt   int64   `db:"achieved_at" json:"achieved_at"`
}

// TableName returns the table name for PersonalRecord.
func (PersonalRecord) TableName() string {
	return "personal_records"
}
