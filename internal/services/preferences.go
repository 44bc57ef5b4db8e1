package services

import (
	"time"

	"github.com/repstack/backend/internal/db"
	"github.com/repstack/backend/internal/errors"
	"github.com/repstack/backend/internal/logging"
	"github.com/repstack/backend/internal/models"
	syncpkg "github.com/repstack/backend/internal/sync"
)

var (
	validWeightUnits   = map[string]bool{"kg": true, "lb": true}
	validDistanceUnits = map[string]bool{"km": true, "mi": true}
	validThemes        = map[string]bool{"system": true, "light": true, "dark": true}
)

// PreferencesService manages the single user preferences row. Writes are
// debounced: toggling a setting repeatedly coalesces into one persisted
// update and one sync mutation.
type PreferencesService struct {
	repo       *db.Repository
	dispatcher Dispatcher
	debouncer  *syncpkg.DebouncedWriter
}

// NewPreferencesService creates a PreferencesService with the given
// debounce interval.
func NewPreferencesService(repo *db.Repository, dispatcher Dispatcher, debounce time.Duration) *PreferencesService {
	return &PreferencesService{
		repo:       repo,
		dispatcher: dispatcher,
		debouncer:  syncpkg.NewDebouncedWriter(debounce),
	}
}

// PreferencesInput is a full replacement of the preferences row.
type PreferencesInput struct {
	WeightUnit       string
	DistanceUnit     string
	Theme            string
	RestTimerSeconds int
}

func (in *PreferencesInput) validate() error {
	if !validWeightUnits[in.WeightUnit] {
		return errors.New(errors.ErrValidation, "weight_unit must be kg or lb")
	}
	if !validDistanceUnits[in.DistanceUnit] {
		return errors.New(errors.ErrValidation, "distance_unit must be km or mi")
	}
	if !validThemes[in.Theme] {
		return errors.New(errors.ErrValidation, "theme must be system, light or dark")
	}
	if in.RestTimerSeconds < 0 || in.RestTimerSeconds > 3600 {
		return errors.New(errors.ErrValidation, "rest_timer_seconds must be between 0 and 3600")
	}
	return nil
}

// Get returns the preferences row, creating defaults on first access.
func (s *PreferencesService) Get() (*models.UserPreferences, error) {
	return s.repo.GetPreferences()
}

// Update validates the input and schedules the write. The returned value
// is what the row will hold once the debounce interval elapses; callers
// render it immediately.
func (s *PreferencesService) Update(in PreferencesInput) (*models.UserPreferences, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	prefs := &models.UserPreferences{
		ID:               models.PreferencesRowID,
		WeightUnit:       in.WeightUnit,
		DistanceUnit:     in.DistanceUnit,
		Theme:            in.Theme,
		RestTimerSeconds: in.RestTimerSeconds,
		UpdatedAt:        time.Now().Unix(),
	}

	s.debouncer.ScheduleWrite(func() { s.commit(prefs) })
	return prefs, nil
}

// Flush forces any pending preferences write through. Called on app
// background and shutdown.
func (s *PreferencesService) Flush() {
	s.debouncer.Flush()
}

// Close flushes and stops accepting writes.
func (s *PreferencesService) Close() {
	s.debouncer.Close()
}

func (s *PreferencesService) commit(prefs *models.UserPreferences) {
	if err := s.repo.UpsertPreferences(prefs); err != nil {
		logging.Error("Failed to persist preferences", err, nil)
		return
	}

	dispatchMutation(s.dispatcher, syncpkg.CodePreferencesUpdate, syncpkg.PreferencesPayload{
		WeightUnit:       prefs.WeightUnit,
		DistanceUnit:     prefs.DistanceUnit,
		Theme:            prefs.Theme,
		RestTimerSeconds: prefs.RestTimerSeconds,
	})
}
