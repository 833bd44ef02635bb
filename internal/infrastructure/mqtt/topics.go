package mqtt

import "fmt"

// Topic prefixes for the AgroLink event bus.
//
// The bus is outbound-only from Core: dashboards and analytics consumers
// subscribe, field devices never do (they poll HTTP). Scheme:
//
//	agrolink/telemetry/{device_id}
//	agrolink/actuator/{actuator_id}/status
//	agrolink/command/{command_id}/{event}
//	agrolink/system/status
const (
	// TopicPrefix is the base for all AgroLink topics.
	TopicPrefix = "agrolink"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "agrolink/system"
)

// Topics provides builders for AgroLink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.Telemetry("esp32-greenhouse-1")
//	// Returns: "agrolink/telemetry/esp32-greenhouse-1"
type Topics struct{}

// Telemetry returns the topic for accepted telemetry batches from a device.
//
// Example: agrolink/telemetry/esp32-greenhouse-1
func (Topics) Telemetry(deviceID string) string {
	return fmt.Sprintf("%s/telemetry/%s", TopicPrefix, deviceID)
}

// ActuatorStatus returns the topic for actuator status transitions.
//
// Example: agrolink/actuator/pump-1/status
func (Topics) ActuatorStatus(actuatorID string) string {
	return fmt.Sprintf("%s/actuator/%s/status", TopicPrefix, actuatorID)
}

// CommandEvent returns the topic for command lifecycle events.
// Event is one of: enqueued, dispatched, acknowledged. Expiry sweeps are
// announced in aggregate on the system status topic, and supersession is
// visible to subscribers as the replacing command's enqueued event.
//
// Example: agrolink/command/cmd-abc123/dispatched
func (Topics) CommandEvent(commandID, event string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, commandID, event)
}

// SystemStatus returns the system status topic.
//
// Example: agrolink/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTelemetry returns a pattern matching telemetry from all devices.
//
// Pattern: agrolink/telemetry/+
func (Topics) AllTelemetry() string {
	return fmt.Sprintf("%s/telemetry/+", TopicPrefix)
}

// AllCommandEvents returns a pattern matching all command lifecycle events.
//
// Pattern: agrolink/command/+/+
func (Topics) AllCommandEvents() string {
	return fmt.Sprintf("%s/command/+/+", TopicPrefix)
}
