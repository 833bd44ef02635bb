package telemetry

import (
	"context"
	"sort"
	"time"

	"github.com/nerrad567/agrolink-core/internal/registry"
)

// StatusSink receives actuator status transitions for the dashboard
// event bus. Satisfied by the events publisher.
type StatusSink interface {
	ActuatorStatusChanged(deviceID, actuatorID string, status registry.ActuatorStatus)
}

// StatusMirror receives actuator status transitions for time-series
// analytics. Satisfied by the InfluxDB client.
type StatusMirror interface {
	WriteActuatorStatus(deviceID, actuatorID, status string, timestamp time.Time)
}

// Reconciler mirrors device-reported actuator state into the registry.
//
// Reconciliation is a status mirror, not an audited action: it never
// writes ActuatorLog entries. Command-driven transitions are handled
// separately by the command queue on acknowledgment.
type Reconciler struct {
	registry *registry.Registry
	events   StatusSink
	mirror   StatusMirror
	logger   Logger
}

// NewReconciler creates an actuator state reconciler.
func NewReconciler(reg *registry.Registry) *Reconciler {
	return &Reconciler{
		registry: reg,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the reconciler.
func (r *Reconciler) SetLogger(logger Logger) {
	r.logger = logger
}

// SetEvents sets an optional event sink (nil disables events).
func (r *Reconciler) SetEvents(events StatusSink) {
	r.events = events
}

// SetMirror sets an optional status mirror (nil disables mirroring).
func (r *Reconciler) SetMirror(mirror StatusMirror) {
	r.mirror = mirror
}

// Reconcile applies a device-reported actuator state map.
//
// Each entry maps a binding name to the reported on/off boolean. Bindings
// that do not resolve are skipped (partial failure, same policy as the
// ingestor). An actuator transitioning to active gets its last-activated
// time set to the reconciliation time.
func (r *Reconciler) Reconcile(ctx context.Context, deviceID string, reported map[string]bool) (*ReconcileResult, error) {
	bindings, err := r.registry.Resolve(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(reported))
	for name := range reported {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	now := time.Now().UTC()
	result := &ReconcileResult{}
	for _, name := range fields {
		actuator, ok := bindings.Actuators[name]
		if !ok {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		status := registry.StatusInactive
		var lastActivated *time.Time
		if reported[name] {
			status = registry.StatusActive
			if actuator.Status != registry.StatusActive {
				lastActivated = &now
			}
		}

		if err := r.registry.SetActuatorStatus(ctx, deviceID, actuator.ID, status, lastActivated); err != nil {
			return nil, err
		}
		result.Updated++

		if actuator.Status != status {
			if r.events != nil {
				r.events.ActuatorStatusChanged(deviceID, actuator.ID, status)
			}
			if r.mirror != nil {
				r.mirror.WriteActuatorStatus(deviceID, actuator.ID, string(status), now)
			}
		}
	}

	r.logger.Debug("actuator state reconciled",
		"device_id", deviceID,
		"updated", result.Updated,
		"skipped", len(result.Skipped),
	)

	return result, nil
}
