package db

import (
	"testing"
)

// TestMigrateUp verifies the embedded migrations apply cleanly and are
// recorded.
func TestMigrateUp(t *testing.T) {
	database := openTestDB(t)

	migrator := NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatalf("Up failed: %v", err)
	}

	version, err := migrator.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version < 1 {
		t.Errorf("expected version >= 1, got %d", version)
	}

	applied, err := migrator.GetAppliedMigrations()
	if err != nil {
		t.Fatalf("GetAppliedMigrations failed: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("no migrations recorded")
	}
	if applied[0].Checksum == "" {
		t.Error("expected checksum recorded for applied migration")
	}
}

// TestMigrateUpIsIdempotent verifies a second Up run applies nothing.
func TestMigrateUpIsIdempotent(t *testing.T) {
	database := openTestDB(t)

	migrator := NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := migrator.Up(); err != nil {
		t.Fatalf("first Up failed: %v", err)
	}

	before, _ := migrator.CurrentVersion()
	if err := migrator.Up(); err != nil {
		t.Fatalf("second Up failed: %v", err)
	}
	after, _ := migrator.CurrentVersion()

	if before != after {
		t.Errorf("version changed on idempotent run: %d -> %d", before, after)
	}
}

// TestMigrationCreatesCoreTables verifies the schema the engine depends
// on exists after migration.
func TestMigrationCreatesCoreTables(t *testing.T) {
	database := newMigratedDB(t)

	tables := []string{
		"folders", "routines", "routine_blocks", "routine_exercises",
		"routine_sets", "workout_sessions", "session_exercises",
		"session_sets", "personal_records", "macro_entries",
		"macro_targets", "user_preferences", "sync_queue",
	}
	for _, table := range tables {
		var name string
		err := database.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}
}
