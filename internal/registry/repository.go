package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for registry persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetDevice retrieves a device by its identifier.
	// Returns ErrUnknownDevice if the device does not exist.
	GetDevice(ctx context.Context, id string) (*Device, error)

	// ListDevices retrieves all devices.
	ListDevices(ctx context.Context) ([]Device, error)

	// GetBindings retrieves a device with its sensors and actuators
	// indexed by binding name.
	// Returns ErrUnknownDevice if the device does not exist.
	GetBindings(ctx context.Context, deviceID string) (*DeviceBindings, error)

	// GetSensor retrieves a sensor by ID.
	// Returns ErrSensorNotFound if the sensor does not exist.
	GetSensor(ctx context.Context, id string) (*Sensor, error)

	// GetActuator retrieves an actuator by ID.
	// Returns ErrActuatorNotFound if the actuator does not exist.
	GetActuator(ctx context.Context, id string) (*Actuator, error)

	// UpdateActuatorStatus sets the status of an actuator and, when
	// lastActivated is non-nil, its last activation time.
	// Returns ErrActuatorNotFound if the actuator does not exist.
	UpdateActuatorStatus(ctx context.Context, id string, status ActuatorStatus, lastActivated *time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetDevice retrieves a device by its identifier.
func (r *SQLiteRepository) GetDevice(ctx context.Context, id string) (*Device, error) {
	query := `
		SELECT id, account_id, name, created_at, updated_at
		FROM devices
		WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownDevice
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// ListDevices retrieves all devices.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Device, error) {
	query := `
		SELECT id, account_id, name, created_at, updated_at
		FROM devices
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	return devices, nil
}

// GetBindings retrieves a device with its sensors and actuators indexed
// by binding name.
func (r *SQLiteRepository) GetBindings(ctx context.Context, deviceID string) (*DeviceBindings, error) {
	device, err := r.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	bindings := &DeviceBindings{
		Device:    *device,
		Sensors:   make(map[string]Sensor),
		Actuators: make(map[string]Actuator),
	}

	sensors, err := r.listSensors(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	for _, s := range sensors {
		bindings.Sensors[s.Binding] = s
	}

	actuators, err := r.listActuators(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	for _, a := range actuators {
		bindings.Actuators[a.Binding] = a
	}

	return bindings, nil
}

// GetSensor retrieves a sensor by ID.
func (r *SQLiteRepository) GetSensor(ctx context.Context, id string) (*Sensor, error) {
	query := `
		SELECT id, device_id, account_id, name, kind, binding, unit, created_at
		FROM sensors
		WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	sensor, err := scanSensor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSensorNotFound
		}
		return nil, fmt.Errorf("querying sensor by id: %w", err)
	}
	return sensor, nil
}

// GetActuator retrieves an actuator by ID.
func (r *SQLiteRepository) GetActuator(ctx context.Context, id string) (*Actuator, error) {
	query := `
		SELECT id, device_id, account_id, name, kind, binding, status, last_activated, created_at, updated_at
		FROM actuators
		WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	actuator, err := scanActuator(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActuatorNotFound
		}
		return nil, fmt.Errorf("querying actuator by id: %w", err)
	}
	return actuator, nil
}

// UpdateActuatorStatus sets the status of an actuator.
func (r *SQLiteRepository) UpdateActuatorStatus(ctx context.Context, id string, status ActuatorStatus, lastActivated *time.Time) error {
	now := time.Now().UTC()

	var result sql.Result
	var err error
	if lastActivated != nil {
		query := `
			UPDATE actuators
			SET status = ?, last_activated = ?, updated_at = ?
			WHERE id = ?`
		result, err = r.db.ExecContext(ctx, query,
			string(status),
			lastActivated.UTC().Format(time.RFC3339),
			now.Format(time.RFC3339),
			id,
		)
	} else {
		query := `
			UPDATE actuators
			SET status = ?, updated_at = ?
			WHERE id = ?`
		result, err = r.db.ExecContext(ctx, query,
			string(status),
			now.Format(time.RFC3339),
			id,
		)
	}
	if err != nil {
		return fmt.Errorf("updating actuator status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrActuatorNotFound
	}

	return nil
}

// listSensors retrieves all sensors for a device.
func (r *SQLiteRepository) listSensors(ctx context.Context, deviceID string) ([]Sensor, error) {
	query := `
		SELECT id, device_id, account_id, name, kind, binding, unit, created_at
		FROM sensors
		WHERE device_id = ?
		ORDER BY binding`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying sensors: %w", err)
	}
	defer rows.Close()

	var sensors []Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sensor: %w", err)
		}
		sensors = append(sensors, *sensor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensors: %w", err)
	}

	return sensors, nil
}

// listActuators retrieves all actuators for a device.
func (r *SQLiteRepository) listActuators(ctx context.Context, deviceID string) ([]Actuator, error) {
	query := `
		SELECT id, device_id, account_id, name, kind, binding, status, last_activated, created_at, updated_at
		FROM actuators
		WHERE device_id = ?
		ORDER BY binding`

	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying actuators: %w", err)
	}
	defer rows.Close()

	var actuators []Actuator
	for rows.Next() {
		actuator, err := scanActuator(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning actuator: %w", err)
		}
		actuators = append(actuators, *actuator)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actuators: %w", err)
	}

	return actuators, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice scans a row into a Device.
func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var createdAt, updatedAt string

	err := scanner.Scan(&d.ID, &d.AccountID, &d.Name, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var parseErr error
	d.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &d, nil
}

// scanSensor scans a row into a Sensor.
func scanSensor(scanner rowScanner) (*Sensor, error) {
	var s Sensor
	var kind, createdAt string

	err := scanner.Scan(&s.ID, &s.DeviceID, &s.AccountID, &s.Name, &kind, &s.Binding, &s.Unit, &createdAt)
	if err != nil {
		return nil, err
	}

	s.Kind = SensorKind(kind)

	var parseErr error
	s.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}

	return &s, nil
}

// scanActuator scans a row into an Actuator.
func scanActuator(scanner rowScanner) (*Actuator, error) {
	var a Actuator
	var kind, status string
	var lastActivated sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(&a.ID, &a.DeviceID, &a.AccountID, &a.Name, &kind, &a.Binding, &status, &lastActivated, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Kind = ActuatorKind(kind)
	a.Status = ActuatorStatus(status)

	if lastActivated.Valid {
		t, err := time.Parse(time.RFC3339, lastActivated.String)
		if err == nil {
			a.LastActivated = &t
		}
	}

	var parseErr error
	a.CreatedAt, parseErr = time.Parse(time.RFC3339, createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	a.UpdatedAt, parseErr = time.Parse(time.RFC3339, updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &a, nil
}
