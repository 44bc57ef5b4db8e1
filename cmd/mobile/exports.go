package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/repstack/backend/internal/connectivity"
	"github.com/repstack/backend/internal/db"
	"github.com/repstack/backend/internal/models"
	"github.com/repstack/backend/internal/services"
	"github.com/repstack/backend/internal/telemetry"
)

// =============================================================================
// Response envelope
// =============================================================================

type ffiResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func okResult(data interface{}) *C.char {
	return cJSON(ffiResult{Success: true, Data: data})
}

func failResult(err error) *C.char {
	setLastError(err.Error())
	return cJSON(ffiResult{Success: false, Error: err.Error()})
}

func notReady() *C.char {
	return cJSON(ffiResult{Success: false, Error: "core not initialized, call Init first"})
}

// =============================================================================
// Folders
// =============================================================================

//export FolderCreate
func FolderCreate(name, color, icon *C.char, position int32) *C.char {
	if engine == nil {
		return notReady()
	}
	folder, err := engine.folders.CreateFolder(
		C.GoString(name), C.GoString(color), C.GoString(icon), int(position))
	if err != nil {
		return failResult(err)
	}
	return okResult(folder)
}

//export FolderUpdate
func FolderUpdate(id, name, color, icon *C.char, position int32) *C.char {
	if engine == nil {
		return notReady()
	}
	folder, err := engine.folders.UpdateFolder(
		C.GoString(id), C.GoString(name), C.GoString(color), C.GoString(icon), int(position))
	if err != nil {
		return failResult(err)
	}
	return okResult(folder)
}

//export FolderDelete
func FolderDelete(id *C.char) *C.char {
	if engine == nil {
		return notReady()
	}
	if err := engine.folders.DeleteFolder(C.GoString(id)); err != nil {
		return failResult(err)
	}
	return okResult(nil)
}

//export FolderGet
func FolderGet(id *C.char) *C.char {
	if engine == nil {
		return notReady()
	}
	folder, err := engine.folders.GetFolder(C.GoString(id))
	if err != nil {
		return failResult(err)
	}
	return okResult(folder)
}

//export FolderList
func FolderList() *C.char {
	if engine == nil {
		return notReady()
	}
	folders, err := engine.folders.ListFolders()
	if err != nil {
		return failResult(err)
	}
	return okResult(folders)
}

// =============================================================================
// Macro tracking
// =============================================================================

type macroEntryRequest struct {
	EntryDate string  `json:"entry_date"`
	Meal      string  `json:"meal"`
	Calories  float64 `json:"calories"`
	ProteinG  float64 `json:"protein_g"`
	CarbsG    float64 `json:"carbs_g"`
	FatG      float64 `json:"fat_g"`
}

func (r macroEntryRequest) input() services.MacroEntryInput {
	return services.MacroEntryInput{
		EntryDate: r.EntryDate,
		Meal:      r.Meal,
		Calories:  r.Calories,
		ProteinG:  r.ProteinG,
		CarbsG:    r.CarbsG,
		FatG:      r.FatG,
	}
}

//export MacroEntryLog
func MacroEntryLog(requestJSON *C.char) *C.char {
	if engine == nil {
		return notReady()
	}
	var req macroEntryRequest
	if err := json.Unmarshal([]byte(C.GoString(requestJSON)), &req); err != nil {
		return failResult(fmt.Errorf("invalid request: %w", err))
	}
	entry, err := engine.macros.LogEntry(req.input())
	if err != nil {
		return failResult(err)
	}
	return okResult(entry)
}

//export MacroEntryUpdate
func MacroEntryUpdate(id, requestJSON *C.char) *C.char {
	if engine == nil {
		return notReady()
	}
	var req macroEntryRequest
	if err := json.Unmarshal([]byte(C.GoString(requestJSON)), &req); err != nil {
		return failResult(fmt.Errorf("invalid request: %w", err))
	}
	entry, err := engine.macros.UpdateEntry(C.GoString(id), req.input())
	if err != nil {
		return failResult(err)
	}
	return okResult(entry)
}

//export MacroEntryDelete
func MacroEntryDelete(id *C.char) *C.char {
	if engine == nil {
		return notReady()
	}
	if err := engine.macros.DeleteEntry(C.GoString(id)); err != nil {
		return failResult(err)
	}
	return okResult(nil)
}

//export MacroDay
// MacroDay returns a day's entries with running totals against the
// active target. date is YYYY-MM-DD.
func MacroDay(date *C.char) *C.char {
	if engine == nil {
		return notReady()
	}
	totals, err := engine.macros.EntriesForDate(C.GoString(date))
	if err != nil {
		return failResult(err)
	}
	return okResult(totals)
}

//export MacroTargetSet
func MacroTargetSet(calories, proteinG, carbsG, fatG float64) *C.char {
	if engine == nil {
		return notReady()
	}
	target, err := engine.macros.SetTarget(calories, proteinG, carbsG, fatG)
	if err != nil {
		return failResult(err)
	}
	return okResult(target)
}

// =============================================================================
// Workouts
// =============================================================================

type finishSetRequest struct {
	WeightKg  float64 `json:"weight_kg"`
	Reps      int     `json:"reps"`
	RPE       float64 `json:"rpe"`
	Completed bool    `json:"completed"`
}

type finishExerciseRequest struct {
	ExerciseName string             `json:"exercise_name"`
	Sets         []finishSetRequest `json:"sets"`
}

type finishWorkoutRequest struct {
	RoutineID *models.UUID            `json:"routine_id"`
	StartedAt int64                   `json:"started_at"`
	Notes     string                  `json:"notes"`
	Exercises []finishExerciseRequest `json:"exercises"`
	Routine   *db.RoutineGraph        `json:"routine,omitempty"`
}

type finishWorkoutResponse struct {
	Session *models.WorkoutSession   `json:"session"`
	Records []*models.PersonalRecord `json:"records"`
}

//export WorkoutFinish
// WorkoutFinish commits the finished workout in a single transaction
// and returns the session plus any personal records it set.
func WorkoutFinish(requestJSON *C.char) *C.char {
	if engine == nil {
		return notReady()
	}
	var req finishWorkoutRequest
	if err := json.Unmarshal([]byte(C.GoString(requestJSON)), &req); err != nil {
		return failResult(fmt.Errorf("invalid request: %w", err))
	}

	exercises := make([]services.FinishedExerciseInput, 0, len(req.Exercises))
	for _, ex := range req.Exercises {
		sets := make([]services.FinishedSetInput, 0, len(ex.Sets))
		for _, set := range ex.Sets {
			sets = append(sets, services.FinishedSetInput{
				WeightKg:  set.WeightKg,
				Reps:      set.Reps,
				RPE:       set.RPE,
				Completed: set.Completed,
			})
		}
		exercises = append(exercises, services.FinishedExerciseInput{
			ExerciseName: ex.ExerciseName,
			Sets:         sets,
		})
	}

	session, records, err := engine.workouts.FinishWorkout(services.FinishWorkoutRequest{
		RoutineID:          req.RoutineID,
		StartedAt:          req.StartedAt,
		Notes:              req.Notes,
		Exercises:          exercises,
		RoutineReplacement: req.Routine,
	})
	if err != nil {
		return failResult(err)
	}
	return okResult(finishWorkoutResponse{Session: session, Records: records})
}

//export WorkoutRecords
// WorkoutRecords returns the personal records held for an exercise.
func WorkoutRecords(exerciseName *C.char) *C.char {
	if engine == nil {
		return notReady()
	}
	records, err := engine.workouts.RecordsFor(C.GoString(exerciseName))
	if err != nil {
		return failResult(err)
	}
	return okResult(records)
}

// =============================================================================
// Preferences
// =============================================================================

//export PreferencesGet
func PreferencesGet() *C.char {
	if engine == nil {
		return notReady()
	}
	prefs, err := engine.prefs.Get()
	if err != nil {
		return failResult(err)
	}
	return okResult(prefs)
}

//export PreferencesUpdate
// PreferencesUpdate applies the new preferences locally and schedules a
// debounced sync dispatch. The returned state is authoritative even
// though the dispatch may not have fired yet.
func PreferencesUpdate(requestJSON *C.char) *C.char {
	if engine == nil {
		return notReady()
	}
	var req struct {
		WeightUnit       string `json:"weight_unit"`
		DistanceUnit     string `json:"distance_unit"`
		Theme            string `json:"theme"`
		RestTimerSeconds int    `json:"rest_timer_seconds"`
	}
	if err := json.Unmarshal([]byte(C.GoString(requestJSON)), &req); err != nil {
		return failResult(fmt.Errorf("invalid request: %w", err))
	}
	prefs, err := engine.prefs.Update(services.PreferencesInput{
		WeightUnit:       req.WeightUnit,
		DistanceUnit:     req.DistanceUnit,
		Theme:            req.Theme,
		RestTimerSeconds: req.RestTimerSeconds,
	})
	if err != nil {
		return failResult(err)
	}
	return okResult(prefs)
}

// =============================================================================
// Sync and connectivity
// =============================================================================

//export SetNetworkStatus
// SetNetworkStatus is called by the host platform whenever reachability
// changes. connected reports link state; reachable reports whether the
// internet is actually reachable through it. A connected network that
// is not reachable (a captive portal) counts as offline.
func SetNetworkStatus(connected, reachable bool) {
	if engine == nil {
		return
	}
	isReachable := reachable
	engine.checker.Set(connectivity.Status{Connected: connected, InternetReachable: &isReachable})
	engine.scheduler.SetOnlineStatus(connected && reachable)
}

//export NotifyForeground
// NotifyForeground is called when the app returns to the foreground.
// Triggers a drain if the device is online and the queue has entries.
func NotifyForeground() {
	if engine == nil {
		return
	}
	engine.scheduler.NotifyForeground()
}

//export SyncNow
// SyncNow drains the queue immediately. Returns the drain result, or
// success with no data if a drain was already running.
func SyncNow() *C.char {
	if engine == nil {
		return notReady()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	result, err := engine.scheduler.DrainNow(ctx)
	if err != nil {
		return failResult(err)
	}
	return okResult(result)
}

//export SyncStatus
// SyncStatus reports the pending queue depth, dead-letter count and
// scheduler state. Telemetry counters are included when enabled.
func SyncStatus() *C.char {
	if engine == nil {
		return notReady()
	}
	pending, err := engine.queue.Count()
	if err != nil {
		return failResult(err)
	}
	dead, err := engine.queue.DeadLettered()
	if err != nil {
		return failResult(err)
	}

	status := map[string]interface{}{
		"pending":      pending,
		"dead_letters": len(dead),
		"scheduler":    engine.scheduler.GetStatus(),
	}
	if telemetry.IsEnabled() {
		status["counters"] = telemetry.Get()
	}
	return okResult(status)
}

//export SyncRetryDeadLetters
// SyncRetryDeadLetters moves dead-lettered entries back to pending and
// nudges a drain.
func SyncRetryDeadLetters() *C.char {
	if engine == nil {
		return notReady()
	}
	n, err := engine.queue.RetryDeadLettered()
	if err != nil {
		return failResult(err)
	}
	if n > 0 {
		engine.scheduler.NotifyForeground()
	}
	return okResult(map[string]int{"requeued": n})
}
