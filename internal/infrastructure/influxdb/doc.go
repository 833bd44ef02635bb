// Package influxdb mirrors accepted sensor readings and actuator status
// transitions into InfluxDB for charting and long-range analytics.
//
// The mirror is strictly best effort. SQLite is the system of record;
// if InfluxDB is disabled, unreachable, or slow, ingestion continues
// unaffected because all writes go through the client's non-blocking
// batched WriteAPI. Async write failures surface through an error
// callback and are logged, never returned to devices.
package influxdb
