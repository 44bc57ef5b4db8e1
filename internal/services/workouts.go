package services

import (
	"strings"
	"time"

	"github.com/repstack/backend/internal/db"
	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/models"
	syncpkg "github.com/repstack/backend/internal/sync"
	"github.com/repstack/backend/internal/uuid"
)

// WorkoutService handles finishing workouts: the session graph, optional
// routine edits and personal records are committed in one local
// transaction before a single WORKOUT_FINISH mutation is dispatched.
type WorkoutService struct {
	repo       *db.Repository
	dispatcher Dispatcher
}

// NewWorkoutService creates a WorkoutService.
func NewWorkoutService(repo *db.Repository, dispatcher Dispatcher) *WorkoutService {
	return &WorkoutService{repo: repo, dispatcher: dispatcher}
}

// FinishedSetInput is one logged set as entered during the workout.
type FinishedSetInput struct {
	WeightKg  float64
	Reps      int
	RPE       float64
	Completed bool
}

// FinishedExerciseInput is one exercise with its sets in performed order.
type FinishedExerciseInput struct {
	ExerciseName string
	Sets         []FinishedSetInput
}

// FinishWorkoutRequest carries everything the finish screen submits.
type FinishWorkoutRequest struct {
	RoutineID *models.UUID
	StartedAt int64
	Notes     string
	Exercises []FinishedExerciseInput

	// RoutineReplacement carries mid-workout routine edits; nil means
	// the routine is unchanged.
	RoutineReplacement *db.RoutineGraph
}

// FinishWorkout validates the request, commits the whole workout in one
// transaction and dispatches the mutation. Either every row lands or
// none do.
func (s *WorkoutService) FinishWorkout(req FinishWorkoutRequest) (*models.WorkoutSession, []*models.PersonalRecord, error) {
	if len(req.Exercises) == 0 {
		return nil, nil, errors.New(errors.ErrSessionInvalid, "a finished workout needs at least one exercise")
	}
	if req.StartedAt <= 0 {
		return nil, nil, errors.New(errors.ErrSessionInvalid, "started_at is required")
	}
	for _, ex := range req.Exercises {
		if strings.TrimSpace(ex.ExerciseName) == "" {
			return nil, nil, errors.New(errors.ErrSessionInvalid, "exercise name must not be empty")
		}
	}

	now := time.Now()
	finishedAt := now.Unix()
	duration := int(finishedAt - req.StartedAt)
	if duration < 0 {
		return nil, nil, errors.New(errors.ErrSessionInvalid, "started_at is in the future")
	}

	session := &models.WorkoutSession{
		ID:              models.UUID(uuid.New()),
		RoutineID:       req.RoutineID,
		StartedAt:       req.StartedAt,
		FinishedAt:      finishedAt,
		DurationSeconds: duration,
		Notes:           req.Notes,
	}

	exercises := buildSessionGraph(session.ID, req.Exercises)
	records := recordCandidates(session.ID, finishedAt, exercises)

	input := &db.FinishWorkoutInput{
		Session:            session,
		Exercises:          exercises,
		RoutineReplacement: req.RoutineReplacement,
		Records:            records,
	}

	if err := s.repo.FinishWorkout(input); err != nil {
		return nil, nil, errors.Wrap(errors.ErrTxFailed, "failed to finish workout", err)
	}

	dispatchMutation(s.dispatcher, syncpkg.CodeWorkoutFinish, buildFinishPayload(input))
	return session, records, nil
}

// GetSession returns a finished workout with its exercise and set rows.
func (s *WorkoutService) GetSession(id string) (*models.WorkoutSession, []*db.FinishedExercise, error) {
	session, exercises, err := s.repo.GetWorkoutSession(id)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrNotFound, "workout session not found", err)
	}
	return session, exercises, nil
}

// RecordsFor returns the personal records held for an exercise.
func (s *WorkoutService) RecordsFor(exerciseName string) ([]*models.PersonalRecord, error) {
	return s.repo.ListPersonalRecords(exerciseName)
}

// buildSessionGraph assigns IDs and positions to the submitted exercises
// and sets.
func buildSessionGraph(sessionID models.UUID, inputs []FinishedExerciseInput) []*db.FinishedExercise {
	exercises := make([]*db.FinishedExercise, 0, len(inputs))
	for pos, in := range inputs {
		exercise := &models.SessionExercise{
			ID:           models.UUID(uuid.New()),
			SessionID:    sessionID,
			ExerciseName: strings.TrimSpace(in.ExerciseName),
			Position:     pos,
		}

		sets := make([]*models.SessionSet, 0, len(in.Sets))
		for num, set := range in.Sets {
			sets = append(sets, &models.SessionSet{
				ID:                models.UUID(uuid.New()),
				SessionExerciseID: exercise.ID,
				SetNumber:         num + 1,
				WeightKg:          set.WeightKg,
				Reps:              set.Reps,
				RPE:               set.RPE,
				Completed:         set.Completed,
			})
		}

		exercises = append(exercises, &db.FinishedExercise{Exercise: exercise, Sets: sets})
	}
	return exercises
}

// estimate1RM is the Epley formula: weight * (1 + reps/30). Single reps
// estimate the weight itself.
func estimate1RM(weightKg float64, reps int) float64 {
	if reps <= 1 {
		return weightKg
	}
	return weightKg * (1 + float64(reps)/30)
}

// recordCandidates computes the best completed value per exercise for
// each record kind. The upsert only overwrites a stored record when the
// candidate beats it, so candidates need no comparison here.
func recordCandidates(sessionID models.UUID, achievedAt int64, exercises []*db.FinishedExercise) []*models.PersonalRecord {
	type best struct {
		maxWeight float64
		maxReps   int
		best1RM   float64
		any       bool
	}

	byExercise := make(map[string]*best)
	order := make([]string, 0, len(exercises))
	for _, ex := range exercises {
		name := ex.Exercise.ExerciseName
		b, ok := byExercise[name]
		if !ok {
			b = &best{}
			byExercise[name] = b
			order = append(order, name)
		}
		for _, set := range ex.Sets {
			if !set.Completed || set.Reps <= 0 {
				continue
			}
			b.any = true
			if set.WeightKg > b.maxWeight {
				b.maxWeight = set.WeightKg
			}
			if set.Reps > b.maxReps {
				b.maxReps = set.Reps
			}
			if est := estimate1RM(set.WeightKg, set.Reps); est > b.best1RM {
				b.best1RM = est
			}
		}
	}

	var records []*models.PersonalRecord
	for _, name := range order {
		b := byExercise[name]
		if !b.any {
			continue
		}
		kinds := []struct {
			kind  string
			value float64
		}{
			{models.RecordKindMaxWeight, b.maxWeight},
			{models.RecordKindMaxReps, float64(b.maxReps)},
			{models.RecordKindBestEst1RM, b.best1RM},
		}
		for _, k := range kinds {
			records = append(records, &models.PersonalRecord{
				ID:           models.UUID(uuid.New()),
				ExerciseName: name,
				Kind:         k.kind,
				Value:        k.value,
				SessionID:    sessionID,
				AchievedAt:   achievedAt,
			})
		}
	}
	return records
}

// buildFinishPayload mirrors the committed rows into the wire payload.
func buildFinishPayload(input *db.FinishWorkoutInput) syncpkg.WorkoutFinishPayload {
	payload := syncpkg.WorkoutFinishPayload{
		Session: input.Session,
		Records: input.Records,
	}

	for _, ex := range input.Exercises {
		payload.Exercises = append(payload.Exercises, syncpkg.WorkoutExercisePayload{
			Exercise: ex.Exercise,
			Sets:     ex.Sets,
		})
	}

	if input.RoutineReplacement != nil {
		graph := &syncpkg.RoutineGraphPayload{Routine: input.RoutineReplacement.Routine}
		for _, block := range input.RoutineReplacement.Blocks {
			bp := syncpkg.RoutineBlockPayload{Block: block.Block}
			for _, ex := range block.Exercises {
				bp.Exercises = append(bp.Exercises, syncpkg.RoutineExercisePayload{
					Exercise: ex.Exercise,
					Sets:     ex.Sets,
				})
			}
			graph.Blocks = append(graph.Blocks, bp)
		}
		payload.Routine = graph
	}

	return payload
}
