package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repstack/backend/internal/models"
	"github.com/repstack/backend/internal/uuid"
)

func finishedBench(sessionID models.UUID) *FinishedExercise {
	exerciseID := models.UUID(uuid.New())
	return &FinishedExercise{
		Exercise: &models.SessionExercise{
			ID: exerciseID, SessionID: sessionID,
			ExerciseName: "Bench Press", Position: 0,
		},
		Sets: []*models.SessionSet{
			{ID: models.UUID(uuid.New()), SessionExerciseID: exerciseID,
				SetNumber: 1, WeightKg: 80, Reps: 8, Completed: true},
			{ID: models.UUID(uuid.New()), SessionExerciseID: exerciseID,
				SetNumber: 2, WeightKg: 85, Reps: 5, Completed: true},
		},
	}
}

func TestFinishWorkoutCommitsWholeGraph(t *testing.T) {
	repo := newTestRepo(t)

	sessionID := models.UUID(uuid.New())
	now := time.Now().Unix()
	input := &FinishWorkoutInput{
		Session: &models.WorkoutSession{
			ID: sessionID, StartedAt: now - 3600, FinishedAt: now,
			DurationSeconds: 3600, Notes: "solid",
		},
		Exercises: []*FinishedExercise{finishedBench(sessionID)},
		Records: []*models.PersonalRecord{{
			ID: models.UUID(uuid.New()), ExerciseName: "Bench Press",
			Kind: models.RecordKindMaxWeight, Value: 85,
			SessionID: sessionID, AchievedAt: now,
		}},
	}
	require.NoError(t, repo.FinishWorkout(input))

	session, exercises, err := repo.GetWorkoutSession(string(sessionID))
	require.NoError(t, err)
	assert.Equal(t, "solid", session.Notes)
	require.Len(t, exercises, 1)
	assert.Len(t, exercises[0].Sets, 2)

	records, err := repo.ListPersonalRecords("Bench Press")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 85.0, records[0].Value)
}

// TestFinishWorkoutRollsBackOnLateFailure forces a failure after the
// session row has been inserted and verifies nothing survives.
func TestFinishWorkoutRollsBackOnLateFailure(t *testing.T) {
	repo := newTestRepo(t)

	sessionID := models.UUID(uuid.New())
	now := time.Now().Unix()

	exercise := finishedBench(sessionID)
	// Duplicate primary key on the second set fails the transaction
	// after the session, exercise and first set are inserted.
	exercise.Sets[1].ID = exercise.Sets[0].ID

	input := &FinishWorkoutInput{
		Session: &models.WorkoutSession{
			ID: sessionID, StartedAt: now - 3600, FinishedAt: now,
			DurationSeconds: 3600,
		},
		Exercises: []*FinishedExercise{exercise},
		Records: []*models.PersonalRecord{{
			ID: models.UUID(uuid.New()), ExerciseName: "Bench Press",
			Kind: models.RecordKindMaxWeight, Value: 85,
			SessionID: sessionID, AchievedAt: now,
		}},
	}
	require.Error(t, repo.FinishWorkout(input))

	sessions, exercises, sets, err := repo.CountSessionRows(string(sessionID))
	require.NoError(t, err)
	assert.Zero(t, sessions, "session row leaked past rollback")
	assert.Zero(t, exercises, "exercise rows leaked past rollback")
	assert.Zero(t, sets, "set rows leaked past rollback")

	records, err := repo.ListPersonalRecords("Bench Press")
	require.NoError(t, err)
	assert.Empty(t, records, "record rows leaked past rollback")
}

func TestPersonalRecordUpsertKeepsBest(t *testing.T) {
	repo := newTestRepo(t)

	finish := func(value float64) models.UUID {
		sessionID := models.UUID(uuid.New())
		now := time.Now().Unix()
		input := &FinishWorkoutInput{
			Session: &models.WorkoutSession{
				ID: sessionID, StartedAt: now - 1800, FinishedAt: now,
				DurationSeconds: 1800,
			},
			Exercises: []*FinishedExercise{finishedBench(sessionID)},
			Records: []*models.PersonalRecord{{
				ID: models.UUID(uuid.New()), ExerciseName: "Bench Press",
				Kind: models.RecordKindMaxWeight, Value: value,
				SessionID: sessionID, AchievedAt: now,
			}},
		}
		require.NoError(t, repo.FinishWorkout(input))
		return sessionID
	}

	best := finish(90)
	finish(80) // must not regress the record

	records, err := repo.ListPersonalRecords("Bench Press")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 90.0, records[0].Value)
	assert.Equal(t, best, records[0].SessionID)
}

func TestFinishWorkoutReplacesRoutineGraph(t *testing.T) {
	repo := newTestRepo(t)

	// Seed a routine with one block.
	now := time.Now().Unix()
	routineID := models.UUID(uuid.New())
	blockID := models.UUID(uuid.New())
	require.NoError(t, repo.CreateRoutine(&RoutineGraph{
		Routine: &models.Routine{
			ID: routineID, Name: "Upper A", CreatedAt: now, UpdatedAt: now,
		},
		Blocks: []*RoutineBlockGraph{{
			Block: &models.RoutineBlock{ID: blockID, RoutineID: routineID, Kind: "straight"},
		}},
	}))

	// Finish a workout that replaced the routine's graph mid-session.
	sessionID := models.UUID(uuid.New())
	newBlockID := models.UUID(uuid.New())
	newExerciseID := models.UUID(uuid.New())
	input := &FinishWorkoutInput{
		Session: &models.WorkoutSession{
			ID: sessionID, RoutineID: &routineID,
			StartedAt: now - 3600, FinishedAt: now, DurationSeconds: 3600,
		},
		Exercises: []*FinishedExercise{finishedBench(sessionID)},
		RoutineReplacement: &RoutineGraph{
			Routine: &models.Routine{ID: routineID, Name: "Upper A v2"},
			Blocks: []*RoutineBlockGraph{{
				Block: &models.RoutineBlock{
					ID: newBlockID, RoutineID: routineID, Kind: "superset",
				},
				Exercises: []*RoutineExerciseGraph{{
					Exercise: &models.RoutineExercise{
						ID: newExerciseID, BlockID: newBlockID,
						ExerciseName: "Incline Press", RestSeconds: 120,
					},
				}},
			}},
		},
	}
	require.NoError(t, repo.FinishWorkout(input))

	graph, err := repo.GetRoutineGraph(string(routineID))
	require.NoError(t, err)
	assert.Equal(t, "Upper A v2", graph.Routine.Name)
	require.Len(t, graph.Blocks, 1)
	assert.Equal(t, newBlockID, graph.Blocks[0].Block.ID, "old block should be gone")
	assert.Equal(t, "superset", graph.Blocks[0].Block.Kind)
}
