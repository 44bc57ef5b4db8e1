// Package models provides data model definitions for RepStack Core.
package models

// UserPreferences holds app-wide user settings. A single row keyed by a
// fixed ID; updates overwrite in place.
type UserPreferences struct {
	ID               UUID   `db:"id" json:"id"`
	WeightUnit       string `db:"weight_unit" json:"weight_unit"`     // kg, lb
	DistanceUnit     string `db:"distance_unit" json:"distance_unit"` // km, mi
	Theme            string `db:"theme" json:"theme"`                 // system, light, dark
	RestTimerSeconds int    `db:"rest_timer_seconds" json:"rest_timer_seconds"`
	UpdatedAt        int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for UserPreferences.
func (UserPreferences) TableName() string {
	return "user_preferences"
}

// PreferencesRowID is the fixed primary key of the single preferences row.
const PreferencesRowID = UUID("00000000-0000-4000-8000-000000000001")
