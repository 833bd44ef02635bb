// Package events publishes ingest and command lifecycle notifications to
// the MQTT bus.
//
// Consumers are dashboards and analytics pipelines only; field devices
// never subscribe, their contract is the HTTP poll loop. Every publish
// is fire-and-forget behind a circuit breaker, so a degraded broker
// costs one failed publish per event at worst and nothing once the
// breaker opens.
package events
