// Package telemetry ingests sensor payloads and reconciles device-reported
// actuator state for AgroLink Core.
//
// The Ingestor turns one inbound payload into individual reading records:
// each named value resolves through the registry's per-device binding
// index, unresolvable fields are skipped and reported, and all resolved
// readings commit in a single transaction. Values are stored exactly as
// provided; sanity bounds-checking belongs to higher layers.
//
// The Reconciler mirrors reported pump state into actuator status. It is
// deliberately not audited: ActuatorLog entries are written only by the
// command queue.
//
// Accepted readings are optionally mirrored to InfluxDB and announced on
// the MQTT event bus; both are best effort and never block or fail the
// ingest path.
package telemetry
