package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (256KB).
// Event payloads are small JSON documents; anything larger is a bug.
const maxPayloadSize = 256 << 10

// Publish sends a message to the specified MQTT topic.
//
// QoS levels: 0 at most once, 1 at least once, 2 exactly once.
// Retained messages are stored by the broker and delivered to new
// subscribers; use them for status topics, never for lifecycle events.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishEvent publishes a non-retained message with the configured default QoS.
// Use for telemetry and command lifecycle events.
func (c *Client) PublishEvent(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), false)
}

// PublishRetained publishes a retained message with the configured default QoS.
// Use for status topics where new subscribers should see the current state.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
