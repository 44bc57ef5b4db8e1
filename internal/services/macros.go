package services

import (
	"time"

	"github.com/repstack/backend/internal/db"
	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/models"
	syncpkg "github.com/repstack/backend/internal/sync"
	"github.com/repstack/backend/internal/uuid"
)

// Valid meal slots for a macro entry.
var validMeals = map[string]bool{
	"breakfast": true,
	"lunch":     true,
	"dinner":    true,
	"snack":     true,
}

// MacroService manages daily macro logging and the active macro target.
type MacroService struct {
	repo       *db.Repository
	dispatcher Dispatcher
}

// NewMacroService creates a MacroService.
func NewMacroService(repo *db.Repository, dispatcher Dispatcher) *MacroService {
	return &MacroService{repo: repo, dispatcher: dispatcher}
}

// MacroEntryInput is the caller-supplied part of a macro entry.
type MacroEntryInput struct {
	EntryDate string  // YYYY-MM-DD
	Meal      string  // breakfast, lunch, dinner, snack
	Calories  float64
	ProteinG  float64
	CarbsG    float64
	FatG      float64
}

func (in *MacroEntryInput) validate() error {
	if _, err := time.Parse("2006-01-02", in.EntryDate); err != nil {
		return errors.New(errors.ErrValidation, "entry_date must be YYYY-MM-DD")
	}
	if !validMeals[in.Meal] {
		return errors.New(errors.ErrValidation, "meal must be breakfast, lunch, dinner or snack")
	}
	if in.Calories < 0 || in.ProteinG < 0 || in.CarbsG < 0 || in.FatG < 0 {
		return errors.New(errors.ErrValidation, "macro values must not be negative")
	}
	return nil
}

// LogEntry records one meal for a day.
func (s *MacroService) LogEntry(in MacroEntryInput) (*models.MacroEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	entry := &models.MacroEntry{
		ID:        models.UUID(uuid.New()),
		EntryDate: in.EntryDate,
		Meal:      in.Meal,
		Calories:  in.Calories,
		ProteinG:  in.ProteinG,
		CarbsG:    in.CarbsG,
		FatG:      in.FatG,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateMacroEntry(entry); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to log macro entry", err)
	}

	dispatchMutation(s.dispatcher, syncpkg.CodeMacroEntryCreate, entryPayload(entry))
	return entry, nil
}

// UpdateEntry rewrites an existing macro entry.
func (s *MacroService) UpdateEntry(id string, in MacroEntryInput) (*models.MacroEntry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	entry, err := s.repo.GetMacroEntry(id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrMacroNotFound, "macro entry not found", err)
	}

	entry.EntryDate = in.EntryDate
	entry.Meal = in.Meal
	entry.Calories = in.Calories
	entry.ProteinG = in.ProteinG
	entry.CarbsG = in.CarbsG
	entry.FatG = in.FatG
	entry.UpdatedAt = time.Now().Unix()

	if err := s.repo.UpdateMacroEntry(entry); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to update macro entry", err)
	}

	dispatchMutation(s.dispatcher, syncpkg.CodeMacroEntryUpdate, entryPayload(entry))
	return entry, nil
}

// DeleteEntry removes a macro entry.
func (s *MacroService) DeleteEntry(id string) error {
	if err := s.repo.DeleteMacroEntry(id); err != nil {
		return errors.Wrap(errors.ErrMacroNotFound, "macro entry not found", err)
	}

	dispatchMutation(s.dispatcher, syncpkg.CodeMacroEntryDelete, syncpkg.DeletePayload{ID: models.UUID(id)})
	return nil
}

// DayTotals aggregates a day's entries against the active target.
type DayTotals struct {
	EntryDate string               `json:"entry_date"`
	Entries   []*models.MacroEntry `json:"entries"`
	Calories  float64              `json:"calories"`
	ProteinG  float64              `json:"protein_g"`
	CarbsG    float64              `json:"carbs_g"`
	FatG      float64              `json:"fat_g"`
	Target    *models.MacroTarget  `json:"target,omitempty"`
}

// EntriesForDate returns a day's entries with running totals and the
// active target, if one is set.
func (s *MacroService) EntriesForDate(date string) (*DayTotals, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, errors.New(errors.ErrValidation, "date must be YYYY-MM-DD")
	}

	entries, err := s.repo.ListMacroEntriesByDate(date)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to list macro entries", err)
	}

	totals := &DayTotals{EntryDate: date, Entries: entries}
	for _, e := range entries {
		totals.Calories += e.Calories
		totals.ProteinG += e.ProteinG
		totals.CarbsG += e.CarbsG
		totals.FatG += e.FatG
	}

	target, err := s.repo.GetMacroTarget()
	if err == nil {
		totals.Target = target
	}

	return totals, nil
}

// SetTarget replaces the active daily macro target.
func (s *MacroService) SetTarget(calories, proteinG, carbsG, fatG float64) (*models.MacroTarget, error) {
	if calories < 0 || proteinG < 0 || carbsG < 0 || fatG < 0 {
		return nil, errors.New(errors.ErrValidation, "target values must not be negative")
	}

	target := &models.MacroTarget{
		ID:        models.UUID(uuid.New()),
		Calories:  calories,
		ProteinG:  proteinG,
		CarbsG:    carbsG,
		FatG:      fatG,
		UpdatedAt: time.Now().Unix(),
	}

	if err := s.repo.SetMacroTarget(target); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to set macro target", err)
	}

	dispatchMutation(s.dispatcher, syncpkg.CodeMacroTargetSet, syncpkg.MacroTargetPayload{
		ID:       target.ID,
		Calories: target.Calories,
		ProteinG: target.ProteinG,
		CarbsG:   target.CarbsG,
		FatG:     target.FatG,
	})

	return target, nil
}

func entryPayload(entry *models.MacroEntry) syncpkg.MacroEntryPayload {
	return syncpkg.MacroEntryPayload{
		ID:        entry.ID,
		EntryDate: entry.EntryDate,
		Meal:      entry.Meal,
		Calories:  entry.Calories,
		ProteinG:  entry.ProteinG,
		CarbsG:    entry.CarbsG,
		FatG:      entry.FatG,
	}
}
