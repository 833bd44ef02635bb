package telemetry

import "time"

// Reading is a single stored sensor measurement.
//
// Readings are append-only: never mutated or deleted by this core.
// Ordering is by timestamp with insertion order (rowid) breaking ties.
type Reading struct {
	ID        int64     `json:"id"`
	SensorID  string    `json:"sensor_id"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestInput is a validated-envelope telemetry push from a device.
//
// Sensors maps binding names to raw values. Values are stored as
// provided: no unit conversion, no rounding, no clamping. Timestamp is
// optional; when nil the receipt time is used.
type IngestInput struct {
	DeviceID  string
	Sensors   map[string]float64
	Timestamp *time.Time
}

// IngestResult reports what happened to a telemetry batch.
//
// Skipped lists binding names that did not resolve to a sensor on the
// device. A skipped field is a partial failure, not an error: sibling
// fields still commit.
type IngestResult struct {
	StoredCount int      `json:"stored_count"`
	Skipped     []string `json:"skipped"`
}

// ReconcileResult reports what happened to a reported actuator state map.
type ReconcileResult struct {
	Updated int      `json:"updated"`
	Skipped []string `json:"skipped"`
}
