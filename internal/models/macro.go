// Package models provides data model definitions for RepStack Core.
package models

// MacroEntry is one logged meal/snack for a calendar day.
type MacroEntry struct {
	ID        UUID    `db:"id" json:"id"`
	EntryDate string  `db:"entry_date" json:"entry_date"` // YYYY-MM-DD
	Meal      string  `db:"meal" json:"meal"`             // breakfast, lunch, dinner, snack
	Calories  float64 `db:"calories" json:"calories"`
	ProteinG  float64 `db:"protein_g" json:"protein_g"`
	CarbsG    float64 `db:"carbs_g" json:"carbs_g"`
	FatG      float64 `db:"fat_g" json:"fat_g"`
	CreatedAt int64   `db:"created_at" json:"created_at"`
	UpdatedAt int64   `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for MacroEntry.
func (MacroEntry) TableName() string {
	return "macro_entries"
}

// MacroTarget is the user's current daily macro target. A single active
// row; setting a new target replaces it.
type MacroTarget struct {
	ID        UUID    `db:"id" json:"id"`
	Calories  float64 `db:"calories" json:"calories"`
	ProteinG  float64 `db:"protein_g" json:"protein_g"`
	CarbsG    float64 `db:"carbs_g" json:"carbs_g"`
	FatG      float64 `db:"fat_g" json:"fat_g"`
	UpdatedAt int64   `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for MacroTarget.
func (MacroTarget) TableName() string {
	return "macro_targets"
}
