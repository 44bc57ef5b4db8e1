// Package models provides data model definitions for RepStack Core.
package models

import "time"

// Folder groups routines in the library view.
type Folder struct {
	ID        UUID   `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Color     string `db:"color" json:"color"` // Hex color, e.g. #3B82F6
	Icon      string `db:"icon" json:"icon"`
	Position  int    `db:"position" json:"position"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for Folder.
func (Folder) TableName() string {
	return "folders"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (f *Folder) CreatedAtTime() time.Time {
	return time.Unix(f.CreatedAt, 0)
}
