// Package models provides data model definitions for RepStack Core.
package models

import "time"

// WorkoutSession is a completed workout. The session graph
// (session -> exercises -> sets) is inserted in one transaction when the
// user finishes a workout.
type WorkoutSession struct {
	ID              UUID   `db:"id" json:"id"`
	RoutineID       *UUID  `db:"routine_id" json:"routine_id,omitempty"`
	StartedAt       int64  `db:"started_at" json:"started_at"`
	FinishedAt      int64  `db:"finished_at" json:"finished_at"`
	DurationSeconds int    `db:"duration_seconds" json:"duration_seconds"`
	Notes           string `db:"notes" json:"notes,omitempty"`
}

// TableName returns the table name for WorkoutSession.
func (WorkoutSession) TableName() string {
	return "workout_sessions"
}

// StartedAtTime returns the StartedAt as time.Time.
func (w *WorkoutSession) StartedAtTime() time.Time {
	return time.Unix(w.StartedAt, 0)
}

// FinishedAtTime returns the FinishedAt as time.Time.
func (w *WorkoutSession) FinishedAtTime() time.Time {
	return time.Unix(w.FinishedAt, 0)
}

// SessionExercise is an exercise performed during a session.
type SessionExercise struct {
	ID           UUID   `db:"id" json:"id"`
	SessionID    UUID   `db:"session_id" json:"session_id"`
	ExerciseName string `db:"exercise_name" json:"exercise_name"`
	Position     int    `db:"position" json:"position"`
}

// TableName returns the table name for SessionExercise.
func (SessionExercise) TableName() string {
	return "session_exercises"
}

// SessionSet is a single logged set.
type SessionSet struct {
	ID                UUID    `db:"id" json:"id"`
	SessionExerciseID UUID    `db:"session_exercise_id" json:"session_exercise_id"`
	SetNumber         int     `db:"set_number" json:"set_number"`
	WeightKg          float64 `db:"weight_kg" json:"weight_kg"`
	Reps              int     `db:"reps" json:"reps"`
	RPE               float64 `db:"rpe" json:"rpe,omitempty"`
	Completed         bool    `db:"completed" json:"completed"`
}

// TableName returns the table name for SessionSet.
func (SessionSet) TableName() string {
	return "session_sets"
}
