package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repstack/backend/internal/models"
	"github.com/repstack/backend/internal/uuid"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	database := newMigratedDB(t)
	repo := NewRepository(database.DB)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testFolder(name string, position int) *models.Folder {
	now := time.Now().Unix()
	return &models.Folder{
		ID:        models.UUID(uuid.New()),
		Name:      name,
		Color:     "#3B82F6",
		Icon:      "barbell",
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestFolderCRUD(t *testing.T) {
	repo := newTestRepo(t)

	folder := testFolder("Push", 0)
	require.NoError(t, repo.CreateFolder(folder))

	got, err := repo.GetFolder(string(folder.ID))
	require.NoError(t, err)
	assert.Equal(t, folder.Name, got.Name)
	assert.Equal(t, folder.Color, got.Color)

	got.Name = "Push Day"
	got.UpdatedAt = time.Now().Unix()
	require.NoError(t, repo.UpdateFolder(got))

	updated, err := repo.GetFolder(string(folder.ID))
	require.NoError(t, err)
	assert.Equal(t, "Push Day", updated.Name)

	require.NoError(t, repo.DeleteFolder(string(folder.ID)))
	_, err = repo.GetFolder(string(folder.ID))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListFoldersOrder(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.CreateFolder(testFolder("Second", 1)))
	require.NoError(t, repo.CreateFolder(testFolder("First", 0)))
	require.NoError(t, repo.CreateFolder(testFolder("Third", 2)))

	folders, err := repo.ListFolders()
	require.NoError(t, err)
	require.Len(t, folders, 3)
	assert.Equal(t, "First", folders[0].Name)
	assert.Equal(t, "Third", folders[2].Name)
}

func TestDeleteFolderUnfilesRoutines(t *testing.T) {
	repo := newTestRepo(t)

	folder := testFolder("Strength", 0)
	require.NoError(t, repo.CreateFolder(folder))

	now := time.Now().Unix()
	graph := &RoutineGraph{
		Routine: &models.Routine{
			ID:        models.UUID(uuid.New()),
			FolderID:  &folder.ID,
			Name:      "5x5",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	require.NoError(t, repo.CreateRoutine(graph))

	require.NoError(t, repo.DeleteFolder(string(folder.ID)))

	// ON DELETE SET NULL: routine survives, unfiled.
	got, err := repo.GetRoutineGraph(string(graph.Routine.ID))
	require.NoError(t, err)
	assert.Nil(t, got.Routine.FolderID)
}

func TestMacroEntryCRUD(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now().Unix()
	entry := &models.MacroEntry{
		ID:        models.UUID(uuid.New()),
		EntryDate: "2026-08-30",
		Meal:      "lunch",
		Calories:  650,
		ProteinG:  42,
		CarbsG:    70,
		FatG:      20,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.CreateMacroEntry(entry))

	byDate, err := repo.ListMacroEntriesByDate("2026-08-30")
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, 650.0, byDate[0].Calories)

	entry.Calories = 700
	require.NoError(t, repo.UpdateMacroEntry(entry))
	got, err := repo.GetMacroEntry(string(entry.ID))
	require.NoError(t, err)
	assert.Equal(t, 700.0, got.Calories)

	require.NoError(t, repo.DeleteMacroEntry(string(entry.ID)))
	empty, err := repo.ListMacroEntriesByDate("2026-08-30")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMacroTargetSingleRow(t *testing.T) {
	repo := newTestRepo(t)

	first := &models.MacroTarget{
		ID: models.UUID(uuid.New()), Calories: 2000, ProteinG: 150,
		CarbsG: 200, FatG: 70, UpdatedAt: time.Now().Unix(),
	}
	require.NoError(t, repo.SetMacroTarget(first))

	second := &models.MacroTarget{
		ID: models.UUID(uuid.New()), Calories: 2400, ProteinG: 170,
		CarbsG: 240, FatG: 80, UpdatedAt: time.Now().Unix(),
	}
	require.NoError(t, repo.SetMacroTarget(second))

	got, err := repo.GetMacroTarget()
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	var count int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM macro_targets").Scan(&count))
	assert.Equal(t, 1, count, "setting a target replaces the previous row")
}

func TestPreferencesDefaultsAndUpsert(t *testing.T) {
	repo := newTestRepo(t)

	prefs, err := repo.GetPreferences()
	require.NoError(t, err)
	assert.Equal(t, models.PreferencesRowID, prefs.ID)
	assert.Equal(t, "kg", prefs.WeightUnit)

	prefs.WeightUnit = "lb"
	prefs.Theme = "dark"
	prefs.UpdatedAt = time.Now().Unix()
	require.NoError(t, repo.UpsertPreferences(prefs))

	got, err := repo.GetPreferences()
	require.NoError(t, err)
	assert.Equal(t, "lb", got.WeightUnit)
	assert.Equal(t, "dark", got.Theme)

	var count int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM user_preferences").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRoutineGraphRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now().Unix()
	routineID := models.UUID(uuid.New())
	blockID := models.UUID(uuid.New())
	exerciseID := models.UUID(uuid.New())

	graph := &RoutineGraph{
		Routine: &models.Routine{
			ID: routineID, Name: "Upper A", Position: 0,
			CreatedAt: now, UpdatedAt: now,
		},
		Blocks: []*RoutineBlockGraph{{
			Block: &models.RoutineBlock{
				ID: blockID, RoutineID: routineID, Position: 0, Kind: "straight",
			},
			Exercises: []*RoutineExerciseGraph{{
				Exercise: &models.RoutineExercise{
					ID: exerciseID, BlockID: blockID,
					ExerciseName: "Bench Press", Position: 0, RestSeconds: 180,
				},
				Sets: []*models.RoutineSet{
					{ID: models.UUID(uuid.New()), RoutineExerciseID: exerciseID,
						SetNumber: 1, TargetWeightKg: 80, TargetReps: 5},
					{ID: models.UUID(uuid.New()), RoutineExerciseID: exerciseID,
						SetNumber: 2, TargetWeightKg: 80, TargetReps: 5},
				},
			}},
		}},
	}
	require.NoError(t, repo.CreateRoutine(graph))

	got, err := repo.GetRoutineGraph(string(routineID))
	require.NoError(t, err)
	assert.Equal(t, "Upper A", got.Routine.Name)
	require.Len(t, got.Blocks, 1)
	require.Len(t, got.Blocks[0].Exercises, 1)
	assert.Equal(t, "Bench Press", got.Blocks[0].Exercises[0].Exercise.ExerciseName)
	assert.Len(t, got.Blocks[0].Exercises[0].Sets, 2)
}
