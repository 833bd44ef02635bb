package registry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the registry tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE TABLE sensors (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
			account_id TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			binding TEXT NOT NULL,
			unit TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			UNIQUE (device_id, binding)
		) STRICT;
		CREATE TABLE actuators (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
			account_id TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			binding TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'unknown',
			last_activated TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			UNIQUE (device_id, binding)
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// seedDevice inserts a device with two sensors and one actuator.
func seedDevice(t *testing.T, db *sql.DB, deviceID string) {
	t.Helper()

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO devices (id, account_id, name) VALUES (?, ?, ?)`,
			[]any{deviceID, "acct-001", "Greenhouse Unit"}},
		{`INSERT INTO sensors (id, device_id, account_id, name, kind, binding, unit) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{deviceID + "-sm1", deviceID, "acct-001", "Soil Moisture 1", "soil_moisture", "soil_moisture_1", "%"}},
		{`INSERT INTO sensors (id, device_id, account_id, name, kind, binding, unit) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{deviceID + "-vol", deviceID, "acct-001", "Tank Volume", "volume", "water_volume", "ml"}},
		{`INSERT INTO actuators (id, device_id, account_id, name, kind, binding) VALUES (?, ?, ?, ?, ?, ?)`,
			[]any{deviceID + "-pump1", deviceID, "acct-001", "Pump 1", "water_pump", "pump_1"}},
	}

	for _, s := range stmts {
		if _, err := db.Exec(s.query, s.args...); err != nil {
			t.Fatalf("seeding test data: %v", err)
		}
	}
}

func TestSQLiteRepository_GetDevice(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()
	seedDevice(t, db, "dev-001")

	t.Run("returns existing device", func(t *testing.T) {
		got, err := repo.GetDevice(ctx, "dev-001")
		if err != nil {
			t.Fatalf("GetDevice() error = %v", err)
		}
		if got.AccountID != "acct-001" {
			t.Errorf("AccountID = %q, want %q", got.AccountID, "acct-001")
		}
		if got.Name != "Greenhouse Unit" {
			t.Errorf("Name = %q, want %q", got.Name, "Greenhouse Unit")
		}
	})

	t.Run("returns ErrUnknownDevice for missing device", func(t *testing.T) {
		_, err := repo.GetDevice(ctx, "dev-missing")
		if !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("GetDevice() error = %v, want ErrUnknownDevice", err)
		}
	})
}

func TestSQLiteRepository_GetBindings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()
	seedDevice(t, db, "dev-001")

	t.Run("indexes sensors and actuators by binding", func(t *testing.T) {
		got, err := repo.GetBindings(ctx, "dev-001")
		if err != nil {
			t.Fatalf("GetBindings() error = %v", err)
		}

		if len(got.Sensors) != 2 {
			t.Fatalf("len(Sensors) = %d, want 2", len(got.Sensors))
		}
		s, ok := got.Sensors["soil_moisture_1"]
		if !ok {
			t.Fatal("missing soil_moisture_1 binding")
		}
		if s.Kind != SensorSoilMoisture {
			t.Errorf("Kind = %q, want %q", s.Kind, SensorSoilMoisture)
		}
		if s.Unit != "%" {
			t.Errorf("Unit = %q, want %q", s.Unit, "%")
		}

		a, ok := got.Actuators["pump_1"]
		if !ok {
			t.Fatal("missing pump_1 binding")
		}
		if a.Status != StatusUnknown {
			t.Errorf("Status = %q, want %q", a.Status, StatusUnknown)
		}
		if a.LastActivated != nil {
			t.Errorf("LastActivated = %v, want nil", a.LastActivated)
		}
	})

	t.Run("returns ErrUnknownDevice for missing device", func(t *testing.T) {
		_, err := repo.GetBindings(ctx, "dev-missing")
		if !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("GetBindings() error = %v, want ErrUnknownDevice", err)
		}
	})
}

func TestSQLiteRepository_UpdateActuatorStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()
	seedDevice(t, db, "dev-001")

	t.Run("updates status and last_activated", func(t *testing.T) {
		activated := time.Now().UTC().Truncate(time.Second)
		err := repo.UpdateActuatorStatus(ctx, "dev-001-pump1", StatusActive, &activated)
		if err != nil {
			t.Fatalf("UpdateActuatorStatus() error = %v", err)
		}

		got, err := repo.GetActuator(ctx, "dev-001-pump1")
		if err != nil {
			t.Fatalf("GetActuator() error = %v", err)
		}
		if got.Status != StatusActive {
			t.Errorf("Status = %q, want %q", got.Status, StatusActive)
		}
		if got.LastActivated == nil || !got.LastActivated.Equal(activated) {
			t.Errorf("LastActivated = %v, want %v", got.LastActivated, activated)
		}
	})

	t.Run("preserves last_activated when nil", func(t *testing.T) {
		err := repo.UpdateActuatorStatus(ctx, "dev-001-pump1", StatusInactive, nil)
		if err != nil {
			t.Fatalf("UpdateActuatorStatus() error = %v", err)
		}

		got, err := repo.GetActuator(ctx, "dev-001-pump1")
		if err != nil {
			t.Fatalf("GetActuator() error = %v", err)
		}
		if got.Status != StatusInactive {
			t.Errorf("Status = %q, want %q", got.Status, StatusInactive)
		}
		if got.LastActivated == nil {
			t.Error("LastActivated = nil, want preserved timestamp")
		}
	})

	t.Run("returns ErrActuatorNotFound for missing actuator", func(t *testing.T) {
		err := repo.UpdateActuatorStatus(ctx, "act-missing", StatusActive, nil)
		if !errors.Is(err, ErrActuatorNotFound) {
			t.Errorf("UpdateActuatorStatus() error = %v, want ErrActuatorNotFound", err)
		}
	})
}
