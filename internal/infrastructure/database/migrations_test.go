package database

import (
	"context"
	"embed"
	"testing"
	"time"
)

// testMigrationsDir is the directory containing test migration files.
const testMigrationsDir = "testdata"

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

// useTestMigrations points the package at the test migration files and
// restores the originals on cleanup.
func useTestMigrations(t *testing.T) {
	t.Helper()

	origFS := MigrationsFS
	origDir := MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})

	MigrationsFS = testMigrationsFS
	MigrationsDir = testMigrationsDir
}

// appliedCount returns the number of recorded migrations.
func appliedCount(t *testing.T, db *DB, ctx context.Context) int {
	t.Helper()

	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if err != nil {
		t.Fatalf("counting applied migrations: %v", err)
	}
	return count
}

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	useTestMigrations(t)

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Verify table was created
	var tableName string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='test_plots'",
	).Scan(&tableName)
	if err != nil {
		t.Fatalf("table test_plots not created: %v", err)
	}

	// Verify migration was recorded
	if got := appliedCount(t, db, ctx); got != 1 {
		t.Errorf("expected 1 applied migration, got %d", got)
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if got := appliedCount(t, db, ctx); got != 1 {
		t.Errorf("expected 1 applied migration after rerun, got %d", got)
	}
}

// TestMigrateDown verifies migration rollback.
func TestMigrateDown(t *testing.T) {
	useTestMigrations(t)

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Apply migrations first
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Rollback
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	// Verify table was dropped
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='test_plots'",
	).Scan(&count)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	if count != 0 {
		t.Error("table test_plots should have been dropped")
	}

	// Verify migration record removed
	if got := appliedCount(t, db, ctx); got != 0 {
		t.Errorf("expected 0 applied migrations after rollback, got %d", got)
	}
}

// TestMigrateNoMigrations verifies behaviour with no migrations.
func TestMigrateNoMigrations(t *testing.T) {
	origFS := MigrationsFS
	origDir := MigrationsDir
	defer func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	}()

	// Use empty FS
	var emptyFS embed.FS
	MigrationsFS = emptyFS
	MigrationsDir = "."

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()

	// Should succeed with no migrations
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

// TestLoadMigrations verifies up/down pairing from the embedded filesystem.
func TestLoadMigrations(t *testing.T) {
	useTestMigrations(t)

	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}

	if len(migrations) != 1 {
		t.Fatalf("expected 1 migration, got %d", len(migrations))
	}

	m := migrations[0]
	if m.Version != "20260301_090000" {
		t.Errorf("Version = %q, want %q", m.Version, "20260301_090000")
	}
	if m.Name != "create_test_plots" {
		t.Errorf("Name = %q, want %q", m.Name, "create_test_plots")
	}
	if m.UpSQL == "" {
		t.Error("expected non-empty up SQL")
	}
	if m.DownSQL == "" {
		t.Error("expected non-empty down SQL")
	}
}

// TestParseMigrationFilename verifies filename parsing.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantName    string
		wantIsUp    bool
		wantOk      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20260301_090000_create_plots.up.sql",
			wantVersion: "20260301_090000",
			wantName:    "create_plots",
			wantIsUp:    true,
			wantOk:      true,
		},
		{
			name:        "valid down migration",
			filename:    "20260301_090000_create_plots.down.sql",
			wantVersion: "20260301_090000",
			wantName:    "create_plots",
			wantIsUp:    false,
			wantOk:      true,
		},
		{
			name:     "not sql file",
			filename: "readme.txt",
			wantOk:   false,
		},
		{
			name:     "missing direction",
			filename: "20260301_090000_create_plots.sql",
			wantOk:   false,
		},
		{
			name:     "invalid format",
			filename: "invalid.up.sql",
			wantOk:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, name, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOk {
				t.Errorf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok {
				if version != tt.wantVersion {
					t.Errorf("version = %v, want %v", version, tt.wantVersion)
				}
				if name != tt.wantName {
					t.Errorf("name = %v, want %v", name, tt.wantName)
				}
				if isUp != tt.wantIsUp {
					t.Errorf("isUp = %v, want %v", isUp, tt.wantIsUp)
				}
			}
		})
	}
}
