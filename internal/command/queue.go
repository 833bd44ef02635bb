package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/agrolink-core/internal/registry"
)

// Logger defines the logging interface used by the command package.
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

// EventSink receives command lifecycle notifications for the dashboard
// event bus. Satisfied by the events publisher.
type EventSink interface {
	CommandEnqueued(cmd Command)
	CommandDispatched(cmd Command)
	CommandAcknowledged(cmd Command)
	CommandsExpired(count int64)
}

// Queue is the command lifecycle state machine.
//
// It exclusively owns ActuatorCommand transitions; no other component
// mutates command state. Delivery is at-least-once-dispatched,
// best-effort-acknowledged: a pending command is never silently dropped
// except via explicit supersession, and an unacknowledged command is
// never retried automatically (re-issue is an explicit Enqueue).
type Queue struct {
	repo     Repository
	registry *registry.Registry
	events   EventSink
	logger   Logger
}

// NewQueue creates a command queue.
func NewQueue(repo Repository, reg *registry.Registry) *Queue {
	return &Queue{
		repo:     repo,
		registry: reg,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the queue.
func (q *Queue) SetLogger(logger Logger) {
	q.logger = logger
}

// SetEvents sets an optional event sink (nil disables events).
func (q *Queue) SetEvents(events EventSink) {
	q.events = events
}

// Enqueue creates a pending command for an actuator.
//
// Any existing pending command for the same actuator is superseded in
// the same transaction, so at most one pending command exists per
// actuator at any time. The audit entry is written optimistically at
// enqueue time, before device pickup.
func (q *Queue) Enqueue(ctx context.Context, in EnqueueInput) (*Command, error) {
	if !in.Action.Valid() {
		return nil, ErrInvalidAction
	}
	if in.TriggeredBy == "" {
		in.TriggeredBy = TriggerManual
	}
	if !in.TriggeredBy.Valid() {
		return nil, ErrInvalidTrigger
	}

	actuator, err := q.registry.GetActuator(ctx, in.ActuatorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cmd := &Command{
		ID:              uuid.NewString(),
		ActuatorID:      actuator.ID,
		DeviceID:        actuator.DeviceID,
		Action:          in.Action,
		DurationMinutes: in.DurationMinutes,
		Status:          StatusPending,
		TriggeredBy:     in.TriggeredBy,
		CreatedAt:       now,
	}
	entry := &LogEntry{
		ID:              uuid.NewString(),
		ActuatorID:      actuator.ID,
		CommandID:       &cmd.ID,
		Action:          in.Action,
		DurationMinutes: in.DurationMinutes,
		TriggeredBy:     in.TriggeredBy,
		CreatedAt:       now,
	}

	if err := q.repo.Enqueue(ctx, cmd, entry); err != nil {
		return nil, err
	}

	if q.events != nil {
		q.events.CommandEnqueued(*cmd)
	}

	q.logger.Info("command enqueued",
		"command_id", cmd.ID,
		"actuator_id", cmd.ActuatorID,
		"action", cmd.Action,
		"triggered_by", cmd.TriggeredBy,
	)

	return cmd, nil
}

// Poll returns all pending commands for a device, transitioning each to
// dispatched. Safe under concurrent polls from the same device: the
// status precondition on the transition means a command is dispatched
// exactly once, and an already-dispatched command is never re-served.
// Returns registry.ErrUnknownDevice for an unrecognised device.
func (q *Queue) Poll(ctx context.Context, deviceID string) ([]Command, error) {
	// Identity check fails closed before touching the queue.
	if _, err := q.registry.Resolve(ctx, deviceID); err != nil {
		return nil, err
	}

	dispatched, err := q.repo.Dispatch(ctx, deviceID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if q.events != nil {
		for _, cmd := range dispatched {
			q.events.CommandDispatched(cmd)
		}
	}

	if len(dispatched) > 0 {
		q.logger.Info("commands dispatched", "device_id", deviceID, "count", len(dispatched))
	}

	return dispatched, nil
}

// Acknowledge records device confirmation of a dispatched command.
//
// Duplicate acks and acks against commands in any non-dispatched state
// are benign no-ops. An unknown ID returns ErrCommandNotFound. On the
// transition, the actuator's stored status is updated to match the
// executed action.
func (q *Queue) Acknowledge(ctx context.Context, id string) (*Command, error) {
	now := time.Now().UTC()
	cmd, transitioned, err := q.repo.Acknowledge(ctx, id, now)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		q.logger.Debug("duplicate or stale ack ignored", "command_id", id, "status", cmd.Status)
		return cmd, nil
	}

	// Mirror the confirmed execution into actuator status.
	status := registry.StatusInactive
	var lastActivated *time.Time
	if cmd.Action == ActionStart {
		status = registry.StatusActive
		lastActivated = &now
	}
	if err := q.registry.SetActuatorStatus(ctx, cmd.DeviceID, cmd.ActuatorID, status, lastActivated); err != nil {
		// The ack itself committed; status mirror failure is logged, not
		// surfaced, so the device does not re-ack forever.
		q.logger.Error("actuator status update after ack failed",
			"command_id", cmd.ID,
			"actuator_id", cmd.ActuatorID,
			"error", err,
		)
	}

	if q.events != nil {
		q.events.CommandAcknowledged(*cmd)
	}

	q.logger.Info("command acknowledged", "command_id", cmd.ID, "actuator_id", cmd.ActuatorID)
	return cmd, nil
}

// ExpireSweep transitions dispatched commands older than the deadline to
// expired, signaling delivery uncertainty to operators. Safe to run
// concurrently with polls and acks: a sweep racing an ack simply loses
// harmlessly.
func (q *Queue) ExpireSweep(ctx context.Context, deadline time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-deadline)
	expired, err := q.repo.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		if q.events != nil {
			q.events.CommandsExpired(expired)
		}
		q.logger.Warn("commands expired without acknowledgment", "count", expired)
	}

	return expired, nil
}

// Get retrieves a command by ID for status display.
func (q *Queue) Get(ctx context.Context, id string) (*Command, error) {
	return q.repo.GetByID(ctx, id)
}
