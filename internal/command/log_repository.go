package command

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LogRepository defines the interface for reading the actuator audit log.
// Entries are written by Repository.Enqueue; this interface is read-only.
type LogRepository interface {
	// ListByActuator retrieves audit entries for an actuator, newest
	// first, capped at limit.
	ListByActuator(ctx context.Context, actuatorID string, limit int) ([]LogEntry, error)
}

// SQLiteLogRepository implements LogRepository using SQLite.
type SQLiteLogRepository struct {
	db *sql.DB
}

// NewSQLiteLogRepository creates a new SQLite-backed log repository.
func NewSQLiteLogRepository(db *sql.DB) *SQLiteLogRepository {
	return &SQLiteLogRepository{db: db}
}

// ListByActuator retrieves audit entries for an actuator, newest first.
func (r *SQLiteLogRepository) ListByActuator(ctx context.Context, actuatorID string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, actuator_id, command_id, action, duration_minutes, triggered_by, created_at
		FROM actuator_logs
		WHERE actuator_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, actuatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying actuator logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var action, triggeredBy, createdAt string
		var commandID sql.NullString
		var duration sql.NullInt64

		err := rows.Scan(&e.ID, &e.ActuatorID, &commandID, &action, &duration, &triggeredBy, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}

		e.Action = Action(action)
		e.TriggeredBy = TriggeredBy(triggeredBy)
		if commandID.Valid {
			e.CommandID = &commandID.String
		}
		if duration.Valid {
			d := int(duration.Int64)
			e.DurationMinutes = &d
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating log entries: %w", err)
	}

	return entries, nil
}
