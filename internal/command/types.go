package command

import "time"

// Action is what a command asks the actuator to do.
type Action string

// Actions.
const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// Valid reports whether the action is recognised.
func (a Action) Valid() bool {
	return a == ActionStart || a == ActionStop
}

// TriggeredBy records what issued a command.
type TriggeredBy string

// Trigger sources.
const (
	TriggerManual    TriggeredBy = "manual"
	TriggerScheduled TriggeredBy = "scheduled"
	TriggerSystem    TriggeredBy = "system"
)

// Valid reports whether the trigger source is recognised.
func (t TriggeredBy) Valid() bool {
	return t == TriggerManual || t == TriggerScheduled || t == TriggerSystem
}

// Status is a command's lifecycle state.
//
// Transitions: pending -> dispatched -> acknowledged | expired, and
// pending -> superseded. All transitions are guarded by conditional
// updates on the current status; only this package performs them.
type Status string

// Lifecycle states.
const (
	// StatusPending means created but not yet handed to the device.
	StatusPending Status = "pending"

	// StatusDispatched means served in response to a device poll.
	StatusDispatched Status = "dispatched"

	// StatusAcknowledged means the device confirmed execution.
	StatusAcknowledged Status = "acknowledged"

	// StatusExpired means the device never acknowledged within the deadline.
	StatusExpired Status = "expired"

	// StatusSuperseded means a newer command for the same actuator
	// replaced this one before dispatch.
	StatusSuperseded Status = "superseded"
)

// Command is an outbound actuator instruction with lifecycle tracking.
type Command struct {
	ID              string      `json:"id"`
	ActuatorID      string      `json:"actuator_id"`
	DeviceID        string      `json:"device_id"`
	Action          Action      `json:"action"`
	DurationMinutes *int        `json:"duration_minutes,omitempty"`
	Status          Status      `json:"status"`
	TriggeredBy     TriggeredBy `json:"triggered_by"`
	CreatedAt       time.Time   `json:"created_at"`
	DispatchedAt    *time.Time  `json:"dispatched_at,omitempty"`
	AcknowledgedAt  *time.Time  `json:"acknowledged_at,omitempty"`
}

// LogEntry is an immutable audit record of an issued action.
//
// Entries are written optimistically at enqueue time: the command is
// recorded as issued even before device pickup, because device-side
// confirmation is not guaranteed.
type LogEntry struct {
	ID              string      `json:"id"`
	ActuatorID      string      `json:"actuator_id"`
	CommandID       *string     `json:"command_id,omitempty"`
	Action          Action      `json:"action"`
	DurationMinutes *int        `json:"duration_minutes,omitempty"`
	TriggeredBy     TriggeredBy `json:"triggered_by"`
	CreatedAt       time.Time   `json:"created_at"`
}

// EnqueueInput describes a command to issue.
type EnqueueInput struct {
	ActuatorID      string
	Action          Action
	DurationMinutes *int
	TriggeredBy     TriggeredBy
}
