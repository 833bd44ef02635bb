package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ReadingsRepository defines the interface for sensor reading persistence.
type ReadingsRepository interface {
	// InsertBatch stores a batch of readings in a single transaction.
	// All readings commit together or not at all.
	InsertBatch(ctx context.Context, readings []Reading) error

	// ListBySensor retrieves readings for a sensor, newest first,
	// capped at limit. Ties on timestamp resolve by insertion order.
	ListBySensor(ctx context.Context, sensorID string, limit int) ([]Reading, error)
}

// SQLiteReadingsRepository implements ReadingsRepository using SQLite.
type SQLiteReadingsRepository struct {
	db *sql.DB
}

// NewSQLiteReadingsRepository creates a new SQLite-backed readings repository.
func NewSQLiteReadingsRepository(db *sql.DB) *SQLiteReadingsRepository {
	return &SQLiteReadingsRepository{db: db}
}

// InsertBatch stores a batch of readings in a single transaction.
func (r *SQLiteReadingsRepository) InsertBatch(ctx context.Context, readings []Reading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sensor_readings (sensor_id, value, unit, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing batch insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, reading := range readings {
		_, err := stmt.ExecContext(ctx,
			reading.SensorID,
			reading.Value,
			reading.Unit,
			reading.Timestamp.UTC().Format(time.RFC3339),
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting reading for %s: %w", reading.SensorID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}

	return nil
}

// ListBySensor retrieves readings for a sensor, newest first.
func (r *SQLiteReadingsRepository) ListBySensor(ctx context.Context, sensorID string, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, sensor_id, value, unit, timestamp, created_at
		FROM sensor_readings
		WHERE sensor_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var reading Reading
		var timestamp, createdAt string

		err := rows.Scan(&reading.ID, &reading.SensorID, &reading.Value, &reading.Unit, &timestamp, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}

		reading.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		reading.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		readings = append(readings, reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}

	return readings, nil
}
