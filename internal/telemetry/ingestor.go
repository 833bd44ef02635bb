package telemetry

import (
	"context"
	"sort"
	"time"

	"github.com/nerrad567/agrolink-core/internal/registry"
)

// Logger defines the logging interface used by the telemetry package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ReadingMirror receives accepted readings for time-series analytics.
// Implementations must be non-blocking; the ingest path never waits on
// the mirror. Satisfied by the influxdb client.
type ReadingMirror interface {
	WriteSensorReading(deviceID, sensorID, kind string, value float64, unit string, timestamp time.Time)
}

// EventSink receives ingest notifications for the dashboard event bus.
// Satisfied by the events publisher.
type EventSink interface {
	TelemetryIngested(deviceID string, storedCount int, skipped []string)
}

// Ingestor validates and normalizes inbound sensor payloads into reading
// records. Resolution goes through the registry's per-device binding
// index; there is no global sensor search.
type Ingestor struct {
	registry *registry.Registry
	readings ReadingsRepository
	mirror   ReadingMirror
	events   EventSink
	logger   Logger
}

// NewIngestor creates a telemetry ingestor.
func NewIngestor(reg *registry.Registry, readings ReadingsRepository) *Ingestor {
	return &Ingestor{
		registry: reg,
		readings: readings,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the ingestor.
func (i *Ingestor) SetLogger(logger Logger) {
	i.logger = logger
}

// SetMirror sets an optional reading mirror (nil disables mirroring).
func (i *Ingestor) SetMirror(mirror ReadingMirror) {
	i.mirror = mirror
}

// SetEvents sets an optional event sink (nil disables events).
func (i *Ingestor) SetEvents(events EventSink) {
	i.events = events
}

// Ingest processes one telemetry push from a device.
//
// Envelope validation failures return ErrInvalidPayload and store
// nothing. An unknown device returns registry.ErrUnknownDevice. Fields
// that do not resolve to a sensor binding are skipped and reported in
// the result; resolved fields are stored as one atomic batch. Values are
// stored verbatim. The device-supplied timestamp is honoured when
// present, otherwise receipt time is used.
func (i *Ingestor) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	if in.DeviceID == "" || len(in.Sensors) == 0 {
		return nil, ErrInvalidPayload
	}

	bindings, err := i.registry.Resolve(ctx, in.DeviceID)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC()
	if in.Timestamp != nil {
		timestamp = in.Timestamp.UTC()
	}

	// Deterministic field order keeps batches and skip lists stable.
	fields := make([]string, 0, len(in.Sensors))
	for name := range in.Sensors {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var readings []Reading
	var resolved []registry.Sensor
	var skipped []string
	for _, name := range fields {
		sensor, ok := bindings.Sensors[name]
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		readings = append(readings, Reading{
			SensorID:  sensor.ID,
			Value:     in.Sensors[name],
			Unit:      sensor.Unit,
			Timestamp: timestamp,
		})
		resolved = append(resolved, sensor)
	}

	if err := i.readings.InsertBatch(ctx, readings); err != nil {
		return nil, err
	}

	if i.mirror != nil {
		for idx, reading := range readings {
			sensor := resolved[idx]
			i.mirror.WriteSensorReading(in.DeviceID, sensor.ID, string(sensor.Kind), reading.Value, reading.Unit, reading.Timestamp)
		}
	}

	result := &IngestResult{
		StoredCount: len(readings),
		Skipped:     skipped,
	}

	if i.events != nil {
		i.events.TelemetryIngested(in.DeviceID, result.StoredCount, result.Skipped)
	}

	i.logger.Debug("telemetry ingested",
		"device_id", in.DeviceID,
		"stored", result.StoredCount,
		"skipped", len(result.Skipped),
	)

	return result, nil
}
