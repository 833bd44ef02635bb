package events

import (
	"encoding/json"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nerrad567/agrolink-core/internal/command"
	"github.com/nerrad567/agrolink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/agrolink-core/internal/registry"
)

// Logger defines the logging interface used by the publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// breaker trip threshold: consecutive publish failures before the
// breaker opens and publishes are dropped instead of attempted.
const breakerTripFailures = 5

// Publisher pushes ingest and command lifecycle events onto the MQTT
// bus for dashboards and analytics consumers.
//
// Publishing is fire-and-forget: a failed or dropped event never affects
// the operation that produced it. A circuit breaker stops hammering a
// broken broker; while open, events are silently dropped and the breaker
// probes the broker again after its timeout.
//
// Satisfies telemetry.EventSink, telemetry.StatusSink, and
// command.EventSink.
type Publisher struct {
	client  *mqtt.Client
	breaker *gobreaker.CircuitBreaker
	topics  mqtt.Topics
	logger  Logger
}

// NewPublisher creates an event publisher over a connected MQTT client.
func NewPublisher(client *mqtt.Client) *Publisher {
	settings := gobreaker.Settings{
		Name:    "mqtt-events",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripFailures
		},
	}

	return &Publisher{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the publisher.
func (p *Publisher) SetLogger(logger Logger) {
	p.logger = logger
}

// publish marshals and sends one event through the breaker.
func (p *Publisher) publish(topic string, payload any) {
	p.send(topic, payload, false)
}

// publishRetained marshals and sends one retained message through the
// breaker. Used for status topics so late subscribers see current state.
func (p *Publisher) publishRetained(topic string, payload any) {
	p.send(topic, payload, true)
}

func (p *Publisher) send(topic string, payload any, retained bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("event payload marshal failed", "topic", topic, "error", err)
		return
	}

	_, err = p.breaker.Execute(func() (any, error) {
		if retained {
			return nil, p.client.PublishRetained(topic, data)
		}
		return nil, p.client.PublishEvent(topic, data)
	})
	if err != nil {
		p.logger.Debug("event dropped", "topic", topic, "error", err)
	}
}

// TelemetryIngested announces an accepted telemetry batch.
func (p *Publisher) TelemetryIngested(deviceID string, storedCount int, skipped []string) {
	p.publish(p.topics.Telemetry(deviceID), map[string]any{
		"event":        "telemetry.ingested",
		"device_id":    deviceID,
		"stored_count": storedCount,
		"skipped":      skipped,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// ActuatorStatusChanged announces a reconciled actuator status transition.
// Retained so dashboards connecting later still see the current status.
func (p *Publisher) ActuatorStatusChanged(deviceID, actuatorID string, status registry.ActuatorStatus) {
	p.publishRetained(p.topics.ActuatorStatus(actuatorID), map[string]any{
		"event":       "actuator.status_changed",
		"device_id":   deviceID,
		"actuator_id": actuatorID,
		"status":      status,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// CommandEnqueued announces a newly issued command.
func (p *Publisher) CommandEnqueued(cmd command.Command) {
	p.publishLifecycle(cmd, "enqueued")
}

// CommandDispatched announces a command handed to its device.
func (p *Publisher) CommandDispatched(cmd command.Command) {
	p.publishLifecycle(cmd, "dispatched")
}

// CommandAcknowledged announces a device-confirmed command.
func (p *Publisher) CommandAcknowledged(cmd command.Command) {
	p.publishLifecycle(cmd, "acknowledged")
}

// CommandsExpired announces a sweep that expired unacknowledged commands.
func (p *Publisher) CommandsExpired(count int64) {
	p.publish(p.topics.SystemStatus(), map[string]any{
		"event":     "commands.expired",
		"count":     count,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *Publisher) publishLifecycle(cmd command.Command, event string) {
	p.publish(p.topics.CommandEvent(cmd.ID, event), map[string]any{
		"event":            "command." + event,
		"command_id":       cmd.ID,
		"actuator_id":      cmd.ActuatorID,
		"device_id":        cmd.DeviceID,
		"action":           cmd.Action,
		"duration_minutes": cmd.DurationMinutes,
		"status":           cmd.Status,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}
