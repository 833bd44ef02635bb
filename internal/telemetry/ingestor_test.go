package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/agrolink-core/internal/registry"
)

// setupTestDB creates an in-memory SQLite database with the registry and
// readings tables.
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
		CREATE TABLE sensor_readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sensor_id TEXT NOT NULL REFERENCES sensors(id),
			value REAL NOT NULL,
			unit TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
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

// seedDevice inserts a device with two sensors and one pump actuator.
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

// newTestIngestor wires an ingestor over a seeded in-memory database.
func newTestIngestor(t *testing.T, db *sql.DB) (*Ingestor, *SQLiteReadingsRepository) {
	t.Helper()

	reg := registry.NewRegistry(registry.NewSQLiteRepository(db))
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	readings := NewSQLiteReadingsRepository(db)
	return NewIngestor(reg, readings), readings
}

func TestIngestor_Ingest(t *testing.T) {
	db := setupTestDB(t)
	seedDevice(t, db, "dev-001")
	ingestor, readings := newTestIngestor(t, db)
	ctx := context.Background()

	t.Run("stores resolvable fields and reports skipped", func(t *testing.T) {
		result, err := ingestor.Ingest(ctx, IngestInput{
			DeviceID: "dev-001",
			Sensors: map[string]float64{
				"soil_moisture_1": 42.0,
				"unknown_field":   1,
			},
		})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.StoredCount != 1 {
			t.Errorf("StoredCount = %d, want 1", result.StoredCount)
		}
		if !reflect.DeepEqual(result.Skipped, []string{"unknown_field"}) {
			t.Errorf("Skipped = %v, want [unknown_field]", result.Skipped)
		}

		stored, err := readings.ListBySensor(ctx, "dev-001-sm1", 10)
		if err != nil {
			t.Fatalf("ListBySensor() error = %v", err)
		}
		if len(stored) != 1 {
			t.Fatalf("len(stored) = %d, want 1", len(stored))
		}
		if stored[0].Value != 42.0 {
			t.Errorf("Value = %v, want 42.0", stored[0].Value)
		}
		if stored[0].Unit != "%" {
			t.Errorf("Unit = %q, want %%", stored[0].Unit)
		}
	})

	t.Run("stores multiple fields atomically", func(t *testing.T) {
		result, err := ingestor.Ingest(ctx, IngestInput{
			DeviceID: "dev-001",
			Sensors: map[string]float64{
				"soil_moisture_1": 40.5,
				"water_volume":    1250,
			},
		})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.StoredCount != 2 {
			t.Errorf("StoredCount = %d, want 2", result.StoredCount)
		}
		if len(result.Skipped) != 0 {
			t.Errorf("Skipped = %v, want empty", result.Skipped)
		}
	})

	t.Run("stores out-of-range values verbatim", func(t *testing.T) {
		result, err := ingestor.Ingest(ctx, IngestInput{
			DeviceID: "dev-001",
			Sensors:  map[string]float64{"soil_moisture_1": -273.15},
		})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if result.StoredCount != 1 {
			t.Fatalf("StoredCount = %d, want 1", result.StoredCount)
		}

		stored, err := readings.ListBySensor(ctx, "dev-001-sm1", 1)
		if err != nil {
			t.Fatalf("ListBySensor() error = %v", err)
		}
		if stored[0].Value != -273.15 {
			t.Errorf("Value = %v, want -273.15 stored as-is", stored[0].Value)
		}
	})

	t.Run("honours device-supplied timestamp", func(t *testing.T) {
		deviceTime := time.Date(2026, 8, 30, 6, 15, 0, 0, time.UTC)
		_, err := ingestor.Ingest(ctx, IngestInput{
			DeviceID:  "dev-001",
			Sensors:   map[string]float64{"water_volume": 900},
			Timestamp: &deviceTime,
		})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		stored, err := readings.ListBySensor(ctx, "dev-001-vol", 10)
		if err != nil {
			t.Fatalf("ListBySensor() error = %v", err)
		}
		found := false
		for _, r := range stored {
			if r.Timestamp.Equal(deviceTime) {
				found = true
			}
		}
		if !found {
			t.Error("no reading stored with the device-supplied timestamp")
		}
	})

	t.Run("rejects malformed envelope", func(t *testing.T) {
		cases := []struct {
			name string
			in   IngestInput
		}{
			{"missing device id", IngestInput{Sensors: map[string]float64{"soil_moisture_1": 1}}},
			{"missing sensors", IngestInput{DeviceID: "dev-001"}},
			{"empty sensors", IngestInput{DeviceID: "dev-001", Sensors: map[string]float64{}}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := ingestor.Ingest(ctx, tc.in)
				if !errors.Is(err, ErrInvalidPayload) {
					t.Errorf("Ingest() error = %v, want ErrInvalidPayload", err)
				}
			})
		}
	})

	t.Run("fails closed for unknown device", func(t *testing.T) {
		_, err := ingestor.Ingest(ctx, IngestInput{
			DeviceID: "dev-unknown",
			Sensors:  map[string]float64{"soil_moisture_1": 1},
		})
		if !errors.Is(err, registry.ErrUnknownDevice) {
			t.Errorf("Ingest() error = %v, want ErrUnknownDevice", err)
		}
	})
}

func TestSQLiteReadingsRepository_Ordering(t *testing.T) {
	db := setupTestDB(t)
	seedDevice(t, db, "dev-001")
	repo := NewSQLiteReadingsRepository(db)
	ctx := context.Background()

	// Two readings sharing a timestamp: insertion order breaks the tie.
	shared := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	batches := [][]Reading{
		{{SensorID: "dev-001-sm1", Value: 1, Unit: "%", Timestamp: shared}},
		{{SensorID: "dev-001-sm1", Value: 2, Unit: "%", Timestamp: shared}},
	}
	for _, batch := range batches {
		if err := repo.InsertBatch(ctx, batch); err != nil {
			t.Fatalf("InsertBatch() error = %v", err)
		}
	}

	got, err := repo.ListBySensor(ctx, "dev-001-sm1", 10)
	if err != nil {
		t.Fatalf("ListBySensor() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	// Newest first: the later insert wins the tie.
	if got[0].Value != 2 || got[1].Value != 1 {
		t.Errorf("order = [%v, %v], want [2, 1]", got[0].Value, got[1].Value)
	}
}
