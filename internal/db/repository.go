// Package db provides CRUD repository operations for RepStack data models.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/repstack/backend/internal/models"
	"github.com/repstack/backend/internal/uuid"
)

// Repository provides CRUD operations for all models. Multi-step domain
// writes run inside a single SQLite transaction; the caller sees success
// only after commit.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries.
	// Statements are prepared on first use and cached for reuse.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// Folder Operations
// =====================================================

// CreateFolder creates a new folder. The ID is generated on-device so the
// write commits without any network round trip.
func (r *Repository) CreateFolder(folder *models.Folder) error {
	now := time.Now().Unix()
	if folder.ID == "" {
		folder.ID = models.UUID(uuid.New())
	}
	folder.CreatedAt = now
	folder.UpdatedAt = now

	query := `INSERT INTO folders (id, name, color, icon, position, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, folder.ID, folder.Name, folder.Color, folder.Icon,
		folder.Position, folder.CreatedAt, folder.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// GetFolder retrieves a folder by ID.
func (r *Repository) GetFolder(id string) (*models.Folder, error) {
	query := `SELECT id, name, color, icon, position, created_at, updated_at
			  FROM folders WHERE id = ?`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var folder models.Folder
	err = stmt.QueryRow(id).Scan(&folder.ID, &folder.Name, &folder.Color,
		&folder.Icon, &folder.Position, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// ListFolders returns all folders ordered by position, then name.
func (r *Repository) ListFolders() ([]*models.Folder, error) {
	query := `SELECT id, name, color, icon, position, created_at, updated_at
			  FROM folders ORDER BY position, name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*models.Folder
	for rows.Next() {
		var folder models.Folder
		if err := rows.Scan(&folder.ID, &folder.Name, &folder.Color,
			&folder.Icon, &folder.Position, &folder.CreatedAt, &folder.UpdatedAt); err != nil {
			return nil, err
		}
		folders = append(folders, &folder)
	}
	return folders, rows.Err()
}

// UpdateFolder updates a folder's mutable fields.
func (r *Repository) UpdateFolder(folder *models.Folder) error {
	folder.UpdatedAt = time.Now().Unix()

	query := `UPDATE folders SET name = ?, color = ?, icon = ?, position = ?, updated_at = ?
			  WHERE id = ?`
	result, err := r.db.Exec(query, folder.Name, folder.Color, folder.Icon,
		folder.Position, folder.UpdatedAt, folder.ID)
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteFolder deletes a folder. Routines in the folder are kept and
// detached (folder_id set NULL by the schema).
func (r *Repository) DeleteFolder(id string) error {
	result, err := r.db.Exec("DELETE FROM folders WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// =====================================================
// Macro Operations
// =====================================================

// CreateMacroEntry creates a new macro entry.
func (r *Repository) CreateMacroEntry(entry *models.MacroEntry) error {
	now := time.Now().Unix()
	if entry.ID == "" {
		entry.ID = models.UUID(uuid.New())
	}
	entry.CreatedAt = now
	entry.UpdatedAt = now

	query := `INSERT INTO macro_entries (id, entry_date, meal, calories, protein_g, carbs_g, fat_g, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, entry.ID, entry.EntryDate, entry.Meal, entry.Calories,
		entry.ProteinG, entry.CarbsG, entry.FatG, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create macro entry: %w", err)
	}
	return nil
}

// GetMacroEntry retrieves a macro entry by ID.
func (r *Repository) GetMacroEntry(id string) (*models.MacroEntry, error) {
	query := `SELECT id, entry_date, meal, calories, protein_g, carbs_g, fat_g, created_at, updated_at
			  FROM macro_entries WHERE id = ?`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}

	var entry models.MacroEntry
	err = stmt.QueryRow(id).Scan(&entry.ID, &entry.EntryDate, &entry.Meal,
		&entry.Calories, &entry.ProteinG, &entry.CarbsG, &entry.FatG,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListMacroEntriesByDate returns all entries for a calendar day (YYYY-MM-DD).
func (r *Repository) ListMacroEntriesByDate(date string) ([]*models.MacroEntry, error) {
	query := `SELECT id, entry_date, meal, calories, protein_g, carbs_g, fat_g, created_at, updated_at
			  FROM macro_entries WHERE entry_date = ? ORDER BY created_at`
	rows, err := r.db.Query(query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.MacroEntry
	for rows.Next() {
		var entry models.MacroEntry
		if err := rows.Scan(&entry.ID, &entry.EntryDate, &entry.Meal,
			&entry.Calories, &entry.ProteinG, &entry.CarbsG, &entry.FatG,
			&entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// UpdateMacroEntry updates a macro entry's nutrient values.
func (r *Repository) UpdateMacroEntry(entry *models.MacroEntry) error {
	entry.UpdatedAt = time.Now().Unix()

	query := `UPDATE macro_entries SET entry_date = ?, meal = ?, calories = ?, protein_g = ?, carbs_g = ?, fat_g = ?, updated_at = ?
			  WHERE id = ?`
	result, err := r.db.Exec(query, entry.EntryDate, entry.Meal, entry.Calories,
		entry.ProteinG, entry.CarbsG, entry.FatG, entry.UpdatedAt, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to update macro entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMacroEntry deletes a macro entry.
func (r *Repository) DeleteMacroEntry(id string) error {
	result, err := r.db.Exec("DELETE FROM macro_entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete macro entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetMacroTarget replaces the active macro target. There is at most one
// active row; the replace happens in one transaction.
func (r *Repository) SetMacroTarget(target *models.MacroTarget) error {
	if target.ID == "" {
		target.ID = models.UUID(uuid.New())
	}
	target.UpdatedAt = time.Now().Unix()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM macro_targets"); err != nil {
		return fmt.Errorf("failed to clear macro target: %w", err)
	}

	query := `INSERT INTO macro_targets (id, calories, protein_g, carbs_g, fat_g, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.Exec(query, target.ID, target.Calories, target.ProteinG,
		target.CarbsG, target.FatG, target.UpdatedAt); err != nil {
		return fmt.Errorf("failed to set macro target: %w", err)
	}

	return tx.Commit()
}

// GetMacroTarget returns the active macro target.
func (r *Repository) GetMacroTarget() (*models.MacroTarget, error) {
	query := `SELECT id, calories, protein_g, carbs_g, fat_g, updated_at
			  FROM macro_targets LIMIT 1`

	var target models.MacroTarget
	err := r.db.QueryRow(query).Scan(&target.ID, &target.Calories,
		&target.ProteinG, &target.CarbsG, &target.FatG, &target.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// =====================================================
// User Preferences Operations
// =====================================================

// GetPreferences returns the preferences row, creating the default row on
// first access.
func (r *Repository) GetPreferences() (*models.UserPreferences, error) {
	query := `SELECT id, weight_unit, distance_unit, theme, rest_timer_seconds, updated_at
			  FROM user_preferences WHERE id = ?`

	var prefs models.UserPreferences
	err := r.db.QueryRow(query, models.PreferencesRowID).Scan(&prefs.ID,
		&prefs.WeightUnit, &prefs.DistanceUnit, &prefs.Theme,
		&prefs.RestTimerSeconds, &prefs.UpdatedAt)
	if err == sql.ErrNoRows {
		defaults := &models.UserPreferences{
			ID:               models.PreferencesRowID,
			WeightUnit:       "kg",
			DistanceUnit:     "km",
			Theme:            "system",
			RestTimerSeconds: 90,
		}
		if err := r.UpsertPreferences(defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpsertPreferences writes the single preferences row.
func (r *Repository) UpsertPreferences(prefs *models.UserPreferences) error {
	prefs.ID = models.PreferencesRowID
	prefs.UpdatedAt = time.Now().Unix()

	query := `INSERT INTO user_preferences (id, weight_unit, distance_unit, theme, rest_timer_seconds, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
				weight_unit = excluded.weight_unit,
				distance_unit = excluded.distance_unit,
				theme = excluded.theme,
				rest_timer_seconds = excluded.rest_timer_seconds,
				updated_at = excluded.updated_at`
	_, err := r.db.Exec(query, prefs.ID, prefs.WeightUnit, prefs.DistanceUnit,
		prefs.Theme, prefs.RestTimerSeconds, prefs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}
