// Package db provides CRUD repository operations for RepStack data models.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/repstack/backend/internal/models"
	"github.com/repstack/backend/internal/uuid"
)

// FinishedExercise is one exercise of a finished workout with its sets.
type FinishedExercise struct {
	Exercise *models.SessionExercise
	Sets     []*models.SessionSet
}

// FinishWorkoutInput is the full local write of a finished workout:
// optional routine-graph replacement, the session graph, and personal
// record candidates. Everything is applied in one transaction.
type FinishWorkoutInput struct {
	Session   *models.WorkoutSession
	Exercises []*FinishedExercise

	// RoutineReplacement, when set, replaces the routine's planned
	// block/exercise/set graph with the edits made during the workout.
	RoutineReplacement *RoutineGraph

	// Records are candidate personal records computed from the session's
	// sets. An existing record is only overwritten by a higher value.
	Records []*models.PersonalRecord
}

// FinishWorkout persists a finished workout atomically. If any step fails
// the transaction rolls back and no partial session, set or record rows
// remain.
func (r *Repository) FinishWorkout(input *FinishWorkoutInput) error {
	session := input.Session
	if session == nil {
		return fmt.Errorf("finish workout: session is required")
	}
	if session.ID == "" {
		session.ID = models.UUID(uuid.New())
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if input.RoutineReplacement != nil {
		if err := replaceRoutineGraph(tx, input.RoutineReplacement); err != nil {
			return err
		}
	}

	query := `INSERT INTO workout_sessions (id, routine_id, started_at, finished_at, duration_seconds, notes)
			  VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.Exec(query, session.ID, session.RoutineID, session.StartedAt,
		session.FinishedAt, session.DurationSeconds, session.Notes); err != nil {
		return fmt.Errorf("failed to insert workout session: %w", err)
	}

	for _, fe := range input.Exercises {
		ex := fe.Exercise
		if ex.ID == "" {
			ex.ID = models.UUID(uuid.New())
		}
		ex.SessionID = session.ID

		if _, err := tx.Exec(`INSERT INTO session_exercises (id, session_id, exercise_name, position)
							  VALUES (?, ?, ?, ?)`,
			ex.ID, ex.SessionID, ex.ExerciseName, ex.Position); err != nil {
			return fmt.Errorf("failed to insert session exercise: %w", err)
		}

		for _, set := range fe.Sets {
			if set.ID == "" {
				set.ID = models.UUID(uuid.New())
			}
			set.SessionExerciseID = ex.ID

			if _, err := tx.Exec(`INSERT INTO session_sets (id, session_exercise_id, set_number, weight_kg, reps, rpe, completed)
								  VALUES (?, ?, ?, ?, ?, ?, ?)`,
				set.ID, set.SessionExerciseID, set.SetNumber, set.WeightKg,
				set.Reps, set.RPE, set.Completed); err != nil {
				return fmt.Errorf("failed to insert session set: %w", err)
			}
		}
	}

	for _, record := range input.Records {
		if err := upsertPersonalRecord(tx, session.ID, record); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// replaceRoutineGraph swaps a routine's planned graph for the edited one.
// Deleting the blocks cascades to exercises and sets.
func replaceRoutineGraph(tx *sql.Tx, graph *RoutineGraph) error {
	routine := graph.Routine
	if routine == nil || routine.ID == "" {
		return fmt.Errorf("routine replacement requires a routine ID")
	}

	result, err := tx.Exec(`UPDATE routines SET name = ?, notes = ?, updated_at = ? WHERE id = ?`,
		routine.Name, routine.Notes, time.Now().Unix(), routine.ID)
	if err != nil {
		return fmt.Errorf("failed to update routine: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.Exec("DELETE FROM routine_blocks WHERE routine_id = ?", routine.ID); err != nil {
		return fmt.Errorf("failed to clear routine blocks: %w", err)
	}

	return insertRoutineGraph(tx, routine.ID, graph.Blocks)
}

// upsertPersonalRecord keeps the best value per (exercise, kind).
func upsertPersonalRecord(tx *sql.Tx, sessionID models.UUID, record *models.PersonalRecord) error {
	if record.ID == "" {
		record.ID = models.UUID(uuid.New())
	}
	record.SessionID = sessionID
	if record.AchievedAt == 0 {
		record.AchievedAt = time.Now().Unix()
	}

	query := `INSERT INTO personal_records (id, exercise_name, kind, value, session_id, achieved_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON CONFLICT(exercise_name, kind) DO UPDATE SET
				value = excluded.value,
				session_id = excluded.session_id,
				achieved_at = excluded.achieved_at
			  WHERE excluded.value > personal_records.value`
	if _, err := tx.Exec(query, record.ID, record.ExerciseName, record.Kind,
		record.Value, record.SessionID, record.AchievedAt); err != nil {
		return fmt.Errorf("failed to upsert personal record: %w", err)
	}
	return nil
}

// GetWorkoutSession loads a session with its exercises and sets.
func (r *Repository) GetWorkoutSession(id string) (*models.WorkoutSession, []*FinishedExercise, error) {
	var session models.WorkoutSession
	err := r.db.QueryRow(`SELECT id, routine_id, started_at, finished_at, duration_seconds, notes
						  FROM workout_sessions WHERE id = ?`, id).
		Scan(&session.ID, &session.RoutineID, &session.StartedAt,
			&session.FinishedAt, &session.DurationSeconds, &session.Notes)
	if err != nil {
		return nil, nil, err
	}

	exRows, err := r.db.Query(`SELECT id, session_id, exercise_name, position
							   FROM session_exercises WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, nil, err
	}
	defer exRows.Close()

	var exercises []*FinishedExercise
	for exRows.Next() {
		var ex models.SessionExercise
		if err := exRows.Scan(&ex.ID, &ex.SessionID, &ex.ExerciseName, &ex.Position); err != nil {
			return nil, nil, err
		}
		exercises = append(exercises, &FinishedExercise{Exercise: &ex})
	}
	if err := exRows.Err(); err != nil {
		return nil, nil, err
	}

	for _, fe := range exercises {
		setRows, err := r.db.Query(`SELECT id, session_exercise_id, set_number, weight_kg, reps, rpe, completed
									FROM session_sets WHERE session_exercise_id = ? ORDER BY set_number`, fe.Exercise.ID)
		if err != nil {
			return nil, nil, err
		}
		for setRows.Next() {
			var set models.SessionSet
			if err := setRows.Scan(&set.ID, &set.SessionExerciseID, &set.SetNumber,
				&set.WeightKg, &set.Reps, &set.RPE, &set.Completed); err != nil {
				setRows.Close()
				return nil, nil, err
			}
			fe.Sets = append(fe.Sets, &set)
		}
		if err := setRows.Err(); err != nil {
			setRows.Close()
			return nil, nil, err
		}
		setRows.Close()
	}

	return &session, exercises, nil
}

// ListPersonalRecords returns all records for an exercise.
func (r *Repository) ListPersonalRecords(exerciseName string) ([]*models.PersonalRecord, error) {
	rows, err := r.db.Query(`SELECT id, exercise_name, kind, value, session_id, achieved_at
							 FROM personal_records WHERE exercise_name = ? ORDER BY kind`, exerciseName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.PersonalRecord
	for rows.Next() {
		var record models.PersonalRecord
		if err := rows.Scan(&record.ID, &record.ExerciseName, &record.Kind,
			&record.Value, &record.SessionID, &record.AchievedAt); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// CountSessionRows reports how many session, exercise and set rows exist
// for a session ID. Used to verify all-or-nothing semantics.
func (r *Repository) CountSessionRows(sessionID string) (sessions, exercises, sets int, err error) {
	if err = r.db.QueryRow("SELECT COUNT(*) FROM workout_sessions WHERE id = ?", sessionID).Scan(&sessions); err != nil {
		return
	}
	if err = r.db.QueryRow("SELECT COUNT(*) FROM session_exercises WHERE session_id = ?", sessionID).Scan(&exercises); err != nil {
		return
	}
	err = r.db.QueryRow(`SELECT COUNT(*) FROM session_sets
						 WHERE session_exercise_id IN (SELECT id FROM session_exercises WHERE session_id = ?)`, sessionID).Scan(&sets)
	return
}
