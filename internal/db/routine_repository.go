// Package db provides CRUD repository operations for RepStack data models.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/repstack/backend/internal/models"
	"github.com/repstack/backend/internal/uuid"
)

// RoutineGraph is a routine with its full block/exercise/set tree.
type RoutineGraph struct {
	Routine *models.Routine
	Blocks  []*RoutineBlockGraph
}

// RoutineBlockGraph is a block with its exercises and planned sets.
type RoutineBlockGraph struct {
	Block     *models.RoutineBlock
	Exercises []*RoutineExerciseGraph
}

// RoutineExerciseGraph is an exercise slot with its planned sets.
type RoutineExerciseGraph struct {
	Exercise *models.RoutineExercise
	Sets     []*models.RoutineSet
}

// CreateRoutine inserts a routine and its graph in one transaction.
func (r *Repository) CreateRoutine(graph *RoutineGraph) error {
	now := time.Now().Unix()
	routine := graph.Routine
	if routine.ID == "" {
		routine.ID = models.UUID(uuid.New())
	}
	routine.CreatedAt = now
	routine.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO routines (id, folder_id, name, notes, position, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.Exec(query, routine.ID, routine.FolderID, routine.Name,
		routine.Notes, routine.Position, routine.CreatedAt, routine.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create routine: %w", err)
	}

	if err := insertRoutineGraph(tx, routine.ID, graph.Blocks); err != nil {
		return err
	}

	return tx.Commit()
}

// GetRoutineGraph loads a routine with its full graph.
func (r *Repository) GetRoutineGraph(id string) (*RoutineGraph, error) {
	var routine models.Routine
	err := r.db.QueryRow(`SELECT id, folder_id, name, notes, position, created_at, updated_at
						  FROM routines WHERE id = ?`, id).
		Scan(&routine.ID, &routine.FolderID, &routine.Name, &routine.Notes,
			&routine.Position, &routine.CreatedAt, &routine.UpdatedAt)
	if err != nil {
		return nil, err
	}

	graph := &RoutineGraph{Routine: &routine}

	blockRows, err := r.db.Query(`SELECT id, routine_id, position, kind
								  FROM routine_blocks WHERE routine_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer blockRows.Close()

	for blockRows.Next() {
		var block models.RoutineBlock
		if err := blockRows.Scan(&block.ID, &block.RoutineID, &block.Position, &block.Kind); err != nil {
			return nil, err
		}
		graph.Blocks = append(graph.Blocks, &RoutineBlockGraph{Block: &block})
	}
	if err := blockRows.Err(); err != nil {
		return nil, err
	}

	for _, bg := range graph.Blocks {
		exRows, err := r.db.Query(`SELECT id, block_id, exercise_name, position, rest_seconds
								   FROM routine_exercises WHERE block_id = ? ORDER BY position`, bg.Block.ID)
		if err != nil {
			return nil, err
		}
		if err := scanRoutineExercises(exRows, bg); err != nil {
			return nil, err
		}

		for _, eg := range bg.Exercises {
			setRows, err := r.db.Query(`SELECT id, routine_exercise_id, set_number, target_weight_kg, target_reps
										FROM routine_sets WHERE routine_exercise_id = ? ORDER BY set_number`, eg.Exercise.ID)
			if err != nil {
				return nil, err
			}
			if err := scanRoutineSets(setRows, eg); err != nil {
				return nil, err
			}
		}
	}

	return graph, nil
}

// scanRoutineExercises drains exercise rows into the block graph.
func scanRoutineExercises(rows *sql.Rows, bg *RoutineBlockGraph) error {
	defer rows.Close()
	for rows.Next() {
		var ex models.RoutineExercise
		if err := rows.Scan(&ex.ID, &ex.BlockID, &ex.ExerciseName, &ex.Position, &ex.RestSeconds); err != nil {
			return err
		}
		bg.Exercises = append(bg.Exercises, &RoutineExerciseGraph{Exercise: &ex})
	}
	return rows.Err()
}

// scanRoutineSets drains planned set rows into the exercise graph.
func scanRoutineSets(rows *sql.Rows, eg *RoutineExerciseGraph) error {
	defer rows.Close()
	for rows.Next() {
		var set models.RoutineSet
		if err := rows.Scan(&set.ID, &set.RoutineExerciseID, &set.SetNumber,
			&set.TargetWeightKg, &set.TargetReps); err != nil {
			return err
		}
		eg.Sets = append(eg.Sets, &set)
	}
	return rows.Err()
}

// insertRoutineGraph inserts blocks, exercises and planned sets for a
// routine inside an open transaction.
func insertRoutineGraph(tx *sql.Tx, routineID models.UUID, blocks []*RoutineBlockGraph) error {
	for _, bg := range blocks {
		block := bg.Block
		if block.ID == "" {
			block.ID = models.UUID(uuid.New())
		}
		block.RoutineID = routineID

		if _, err := tx.Exec(`INSERT INTO routine_blocks (id, routine_id, position, kind)
							  VALUES (?, ?, ?, ?)`,
			block.ID, block.RoutineID, block.Position, block.Kind); err != nil {
			return fmt.Errorf("failed to insert routine block: %w", err)
		}

		for _, eg := range bg.Exercises {
			ex := eg.Exercise
			if ex.ID == "" {
				ex.ID = models.UUID(uuid.New())
			}
			ex.BlockID = block.ID

			if _, err := tx.Exec(`INSERT INTO routine_exercises (id, block_id, exercise_name, position, rest_seconds)
								  VALUES (?, ?, ?, ?, ?)`,
				ex.ID, ex.BlockID, ex.ExerciseName, ex.Position, ex.RestSeconds); err != nil {
				return fmt.Errorf("failed to insert routine exercise: %w", err)
			}

			for _, set := range eg.Sets {
				if set.ID == "" {
					set.ID = models.UUID(uuid.New())
				}
				set.RoutineExerciseID = ex.ID

				if _, err := tx.Exec(`INSERT INTO routine_sets (id, routine_exercise_id, set_number, target_weight_kg, target_reps)
									  VALUES (?, ?, ?, ?, ?)`,
					set.ID, set.RoutineExerciseID, set.SetNumber,
					set.TargetWeightKg, set.TargetReps); err != nil {
					return fmt.Errorf("failed to insert routine set: %w", err)
				}
			}
		}
	}
	return nil
}
