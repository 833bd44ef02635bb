package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading mirrors a single accepted sensor reading.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Tags are kept low cardinality (device, sensor, kind); the value and
// unit go into fields.
//
// Example:
//
//	client.WriteSensorReading("esp32-gh-1", "sensor-sm1", "soil_moisture", 42.5, "%", ts)
func (c *Client) WriteSensorReading(deviceID, sensorID, kind string, value float64, unit string, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"device_id": deviceID,
			"sensor_id": sensorID,
			"kind":      kind,
		},
		map[string]interface{}{
			"value": value,
			"unit":  unit,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteActuatorStatus mirrors an actuator status transition.
//
// Status is encoded as active=1/inactive=0 so dashboards can draw duty
// cycles without string parsing.
func (c *Client) WriteActuatorStatus(deviceID, actuatorID, status string, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	active := 0
	if status == "active" {
		active = 1
	}

	point := write.NewPoint(
		"actuator_status",
		map[string]string{
			"device_id":   deviceID,
			"actuator_id": actuatorID,
		},
		map[string]interface{}{
			"active": active,
			"status": status,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}
