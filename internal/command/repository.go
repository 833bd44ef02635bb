package command

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for command persistence.
//
// Implementations must guarantee that every lifecycle transition is a
// conditional update on the current status, so concurrent polls, acks,
// and sweeps serialize per command without process-wide locks.
type Repository interface {
	// Enqueue atomically supersedes any pending command for the same
	// actuator, inserts cmd as the sole pending command, and writes the
	// optimistic audit entry. All three happen in one transaction.
	Enqueue(ctx context.Context, cmd *Command, entry *LogEntry) error

	// Dispatch transitions all pending commands for the device to
	// dispatched and returns them. A command already dispatched by a
	// concurrent poll is never returned again.
	Dispatch(ctx context.Context, deviceID string, now time.Time) ([]Command, error)

	// Acknowledge transitions a dispatched command to acknowledged.
	// Returns the command and whether this call performed the
	// transition; false means the command was already in a terminal
	// state (benign, e.g. a duplicate device ack).
	// Returns ErrCommandNotFound if the ID does not exist.
	Acknowledge(ctx context.Context, id string, now time.Time) (*Command, bool, error)

	// ExpireOlderThan transitions dispatched commands whose dispatch
	// time is before cutoff to expired, returning how many changed.
	// Safe to race acknowledgments: the status precondition means
	// whichever transition commits first wins.
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// GetByID retrieves a command by ID.
	// Returns ErrCommandNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Command, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed command repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Enqueue supersedes, inserts, and logs in one transaction.
func (r *SQLiteRepository) Enqueue(ctx context.Context, cmd *Command, entry *LogEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning enqueue transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// At most one pending command per actuator: any existing pending
	// command is superseded, never silently dropped.
	_, err = tx.ExecContext(ctx, `
		UPDATE actuator_commands
		SET status = ?
		WHERE actuator_id = ? AND status = ?`,
		string(StatusSuperseded), cmd.ActuatorID, string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("superseding pending commands: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO actuator_commands (
			id, actuator_id, device_id, action, duration_minutes,
			status, triggered_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cmd.ID,
		cmd.ActuatorID,
		cmd.DeviceID,
		string(cmd.Action),
		nullableInt(cmd.DurationMinutes),
		string(cmd.Status),
		string(cmd.TriggeredBy),
		cmd.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting command: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO actuator_logs (
			id, actuator_id, command_id, action, duration_minutes,
			triggered_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActuatorID,
		nullableString(entry.CommandID),
		string(entry.Action),
		nullableInt(entry.DurationMinutes),
		string(entry.TriggeredBy),
		entry.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing enqueue: %w", err)
	}

	return nil
}

// Dispatch transitions pending commands for a device to dispatched.
func (r *SQLiteRepository) Dispatch(ctx context.Context, deviceID string, now time.Time) ([]Command, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM actuator_commands
		WHERE device_id = ? AND status = ?
		ORDER BY created_at, id`,
		deviceID, string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending commands: %w", err)
	}

	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning command id: %w", err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating pending commands: %w", err)
	}
	rows.Close()

	// The conditional update is the mutual-exclusion gate: of any set of
	// concurrent polls, exactly one wins each command.
	var dispatched []Command
	for _, id := range candidates {
		result, err := r.db.ExecContext(ctx, `
			UPDATE actuator_commands
			SET status = ?, dispatched_at = ?
			WHERE id = ? AND status = ?`,
			string(StatusDispatched),
			now.UTC().Format(time.RFC3339),
			id,
			string(StatusPending),
		)
		if err != nil {
			return nil, fmt.Errorf("dispatching command %s: %w", id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			// Lost the race to a concurrent poll or a supersession.
			continue
		}

		cmd, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		dispatched = append(dispatched, *cmd)
	}

	return dispatched, nil
}

// Acknowledge transitions a dispatched command to acknowledged.
func (r *SQLiteRepository) Acknowledge(ctx context.Context, id string, now time.Time) (*Command, bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE actuator_commands
		SET status = ?, acknowledged_at = ?
		WHERE id = ? AND status = ?`,
		string(StatusAcknowledged),
		now.UTC().Format(time.RFC3339),
		id,
		string(StatusDispatched),
	)
	if err != nil {
		return nil, false, fmt.Errorf("acknowledging command: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("checking rows affected: %w", err)
	}

	cmd, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	return cmd, rowsAffected == 1, nil
}

// ExpireOlderThan transitions overdue dispatched commands to expired.
func (r *SQLiteRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE actuator_commands
		SET status = ?
		WHERE status = ? AND dispatched_at < ?`,
		string(StatusExpired),
		string(StatusDispatched),
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("expiring commands: %w", err)
	}

	expired, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return expired, nil
}

// GetByID retrieves a command by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Command, error) {
	query := `
		SELECT id, actuator_id, device_id, action, duration_minutes,
			status, triggered_by, created_at, dispatched_at, acknowledged_at
		FROM actuator_commands
		WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	cmd, err := scanCommand(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommandNotFound
		}
		return nil, fmt.Errorf("querying command by id: %w", err)
	}
	return cmd, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanCommand scans a row into a Command.
func scanCommand(scanner rowScanner) (*Command, error) {
	var c Command
	var action, status, triggeredBy string
	var duration sql.NullInt64
	var createdAt string
	var dispatchedAt, acknowledgedAt sql.NullString

	err := scanner.Scan(
		&c.ID,
		&c.ActuatorID,
		&c.DeviceID,
		&action,
		&duration,
		&status,
		&triggeredBy,
		&createdAt,
		&dispatchedAt,
		&acknowledgedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Action = Action(action)
	c.Status = Status(status)
	c.TriggeredBy = TriggeredBy(triggeredBy)

	if duration.Valid {
		d := int(duration.Int64)
		c.DurationMinutes = &d
	}

	var parseErr error
	c.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	if dispatchedAt.Valid {
		t, err := time.Parse(time.RFC3339, dispatchedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing dispatched_at: %w", err)
		}
		c.DispatchedAt = &t
	}
	if acknowledgedAt.Valid {
		t, err := time.Parse(time.RFC3339, acknowledgedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing acknowledged_at: %w", err)
		}
		c.AcknowledgedAt = &t
	}

	return &c, nil
}

// nullableInt returns a sql.NullInt64 for optional int pointers.
func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// nullableString returns a sql.NullString for optional string pointers.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
