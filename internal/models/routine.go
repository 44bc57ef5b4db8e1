// Package models provides data model definitions for RepStack Core.
package models

// Routine is a reusable workout template. Its block/exercise/set graph is
// replaced wholesale when the user edits the routine mid-workout.
type Routine struct {
	ID        UUID   `db:"id" json:"id"`
	FolderID  *UUID  `db:"folder_id" json:"folder_id,omitempty"`
	Name      string `db:"name" json:"name"`
	Notes     string `db:"notes" json:"notes,omitempty"`
	Position  int    `db:"position" json:"position"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for Routine.
func (Routine) TableName() string {
	return "routines"
}

// RoutineBlock is an ordered section inside a routine (straight sets,
// superset, circuit).
type RoutineBlock struct {
	ID        UUID   `db:"id" json:"id"`
	RoutineID UUID   `db:"routine_id" json:"routine_id"`
	Position  int    `db:"position" json:"position"`
	Kind      string `db:"kind" json:"kind"` // straight, superset, circuit
}

// TableName returns the table name for RoutineBlock.
func (RoutineBlock) TableName() string {
	return "routine_blocks"
}

// RoutineExercise is an exercise slot inside a block.
type RoutineExercise struct {
	ID           UUID   `db:"id" json:"id"`
	BlockID      UUID   `db:"block_id" json:"block_id"`
	ExerciseName string `db:"exercise_name" json:"exercise_name"`
	Position     int    `db:"position" json:"position"`
	RestSeconds  int    `db:"rest_seconds" json:"rest_seconds"`
}

// TableName returns the table name for RoutineExercise.
func (RoutineExercise) TableName() string {
	return "routine_exercises"
}

// RoutineSet is a planned set for a routine exercise.
type RoutineSet struct {
	ID                UUID    `db:"id" json:"id"`
	RoutineExerciseID UUID    `db:"routine_exercise_id" json:"routine_exercise_id"`
	SetNumber         int     `db:"set_number" json:"set_number"`
	TargetWeightKg    float64 `db:"target_weight_kg" json:"target_weight_kg"`
	TargetReps        int     `db:"target_reps" json:"target_reps"`
}

// TableName returns the table name for RoutineSet.
func (RoutineSet) TableName() string {
	return "routine_sets"
}
