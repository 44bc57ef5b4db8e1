// Package sync implements the local-first sync engine: committed local
// mutations are pushed to the remote backend when possible and queued
// durably when not. The dispatcher and queue treat payloads as opaque;
// each domain service owns the shape of its own payload.
package sync

import (
	"encoding/json"
	"fmt"

	"github.com/repstack/backend/internal/models"
)

// MutationCode identifies the remote operation for a mutation. The set is
// closed; adding a remote operation means adding a code here and a payload
// type below.
type MutationCode string

const (
	CodeFolderCreate      MutationCode = "FOLDER_CREATE"
	CodeFolderUpdate      MutationCode = "FOLDER_UPDATE"
	CodeFolderDelete      MutationCode = "FOLDER_DELETE"
	CodeMacroEntryCreate  MutationCode = "MACRO_ENTRY_CREATE"
	CodeMacroEntryUpdate  MutationCode = "MACRO_ENTRY_UPDATE"
	CodeMacroEntryDelete  MutationCode = "MACRO_ENTRY_DELETE"
	CodeMacroTargetSet    MutationCode = "MACRO_TARGET_SET"
	CodeWorkoutFinish     MutationCode = "WORKOUT_FINISH"
	CodePreferencesUpdate MutationCode = "PREFERENCES_UPDATE"
)

// Valid reports whether the code is a member of the closed set.
func (c MutationCode) Valid() bool {
	switch c {
	case CodeFolderCreate, CodeFolderUpdate, CodeFolderDelete,
		CodeMacroEntryCreate, CodeMacroEntryUpdate, CodeMacroEntryDelete,
		CodeMacroTargetSet, CodeWorkoutFinish, CodePreferencesUpdate:
		return true
	}
	return false
}

// String returns the wire form of the code.
func (c MutationCode) String() string {
	return string(c)
}

// Mutation is the unit of synchronization: a code plus an opaque,
// serialized payload. The engine never inspects the payload beyond
// passing it through.
type Mutation struct {
	Code    MutationCode    `json:"code"`
	Payload json.RawMessage `json:"payload"`
}

// NewMutation serializes a typed payload into a Mutation.
func NewMutation(code MutationCode, payload interface{}) (Mutation, error) {
	if !code.Valid() {
		return Mutation{}, fmt.Errorf("unknown mutation code: %s", code)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Mutation{}, fmt.Errorf("failed to marshal payload for %s: %w", code, err)
	}
	return Mutation{Code: code, Payload: data}, nil
}

// =====================================================
// Payload contracts, keyed by code
// =====================================================

// FolderPayload mirrors a committed folder row
// (FOLDER_CREATE, FOLDER_UPDATE).
type FolderPayload struct {
	ID       models.UUID `json:"id"`
	Name     string      `json:"name"`
	Color    string      `json:"color"`
	Icon     string      `json:"icon"`
	Position int         `json:"position"`
}

// DeletePayload identifies a deleted entity
// (FOLDER_DELETE, MACRO_ENTRY_DELETE).
type DeletePayload struct {
	ID models.UUID `json:"id"`
}

// MacroEntryPayload mirrors a committed macro entry
// (MACRO_ENTRY_CREATE, MACRO_ENTRY_UPDATE).
type MacroEntryPayload struct {
	ID        models.UUID `json:"id"`
	EntryDate string      `json:"entry_date"`
	Meal      string      `json:"meal"`
	Calories  float64     `json:"calories"`
	ProteinG  float64     `json:"protein_g"`
	CarbsG    float64     `json:"carbs_g"`
	FatG      float64     `json:"fat_g"`
}

// MacroTargetPayload mirrors the active macro target (MACRO_TARGET_SET).
type MacroTargetPayload struct {
	ID       models.UUID `json:"id"`
	Calories float64     `json:"calories"`
	ProteinG float64     `json:"protein_g"`
	CarbsG   float64     `json:"carbs_g"`
	FatG     float64     `json:"fat_g"`
}

// WorkoutFinishPayload mirrors the committed session graph plus any
// routine edits and record updates (WORKOUT_FINISH).
type WorkoutFinishPayload struct {
	Session   *models.WorkoutSession   `json:"session"`
	Exercises []WorkoutExercisePayload `json:"exercises"`
	Routine   *RoutineGraphPayload     `json:"routine,omitempty"`
	Records   []*models.PersonalRecord `json:"records,omitempty"`
}

// WorkoutExercisePayload is one performed exercise with its sets.
type WorkoutExercisePayload struct {
	Exercise *models.SessionExercise `json:"exercise"`
	Sets     []*models.SessionSet    `json:"sets"`
}

// RoutineGraphPayload is a routine's replacement graph after mid-workout
// edits.
type RoutineGraphPayload struct {
	Routine *models.Routine       `json:"routine"`
	Blocks  []RoutineBlockPayload `json:"blocks"`
}

// RoutineBlockPayload is one block of a replacement graph.
type RoutineBlockPayload struct {
	Block     *models.RoutineBlock     `json:"block"`
	Exercises []RoutineExercisePayload `json:"exercises"`
}

// RoutineExercisePayload is one exercise slot of a replacement graph.
type RoutineExercisePayload struct {
	Exercise *models.RoutineExercise `json:"exercise"`
	Sets     []*models.RoutineSet    `json:"sets"`
}

// PreferencesPayload mirrors the committed preferences row
// (PREFERENCES_UPDATE).
type PreferencesPayload struct {
	WeightUnit       string `json:"weight_unit"`
	DistanceUnit     string `json:"distance_unit"`
	Theme            string `json:"theme"`
	RestTimerSeconds int    `json:"rest_timer_seconds"`
}
