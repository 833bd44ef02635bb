// Package mqtt provides the outbound event bus for AgroLink Core.
//
// Core publishes accepted telemetry batches, actuator status transitions,
// and command lifecycle events so dashboards and analytics pipelines can
// follow the system in real time. The bus is strictly one-directional:
// nothing in Core subscribes, and field devices never hold a broker
// connection (they poll the HTTP gateway instead).
//
// The client wraps paho.mqtt.golang with connection management, a Last
// Will for offline detection, and bounded publish timeouts. The initial
// connection retries with exponential backoff; after that paho's
// auto-reconnect keeps the session alive.
package mqtt
