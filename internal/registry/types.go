package registry

import "time"

// SensorKind classifies what a sensor measures.
type SensorKind string

// Sensor kinds.
const (
	SensorSoilMoisture SensorKind = "soil_moisture"
	SensorVolume       SensorKind = "volume"
)

// ActuatorKind classifies what an actuator drives.
type ActuatorKind string

// Actuator kinds.
const (
	ActuatorWaterPump ActuatorKind = "water_pump"
)

// ActuatorStatus is the last known state of an actuator.
type ActuatorStatus string

// Actuator statuses. Unknown is the provisioning default, held until the
// device first reports or a command is acknowledged.
const (
	StatusActive   ActuatorStatus = "active"
	StatusInactive ActuatorStatus = "inactive"
	StatusUnknown  ActuatorStatus = "unknown"
)

// Device is a physical field unit. Devices are provisioned out-of-band;
// the core only resolves them.
type Device struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sensor is a logical measurement channel on a device.
//
// Binding is the device-side channel name (e.g. "soil_moisture_1") that
// telemetry payloads use to address this sensor.
type Sensor struct {
	ID        string     `json:"id"`
	DeviceID  string     `json:"device_id"`
	AccountID string     `json:"account_id"`
	Name      string     `json:"name"`
	Kind      SensorKind `json:"kind"`
	Binding   string     `json:"binding"`
	Unit      string     `json:"unit"`
	CreatedAt time.Time  `json:"created_at"`
}

// Actuator is a controllable output on a device.
type Actuator struct {
	ID            string         `json:"id"`
	DeviceID      string         `json:"device_id"`
	AccountID     string         `json:"account_id"`
	Name          string         `json:"name"`
	Kind          ActuatorKind   `json:"kind"`
	Binding       string         `json:"binding"`
	Status        ActuatorStatus `json:"status"`
	LastActivated *time.Time     `json:"last_activated,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DeviceBindings is the resolved view of a device: the device record plus
// its sensors and actuators indexed by binding name. Ingestion and polling
// both start from this lookup.
type DeviceBindings struct {
	Device    Device
	Sensors   map[string]Sensor
	Actuators map[string]Actuator
}

// DeepCopy returns a copy of the bindings with fresh maps.
// Used when serving from cache so callers can safely modify the result.
func (b *DeviceBindings) DeepCopy() *DeviceBindings {
	if b == nil {
		return nil
	}

	clone := &DeviceBindings{
		Device:    b.Device,
		Sensors:   make(map[string]Sensor, len(b.Sensors)),
		Actuators: make(map[string]Actuator, len(b.Actuators)),
	}

	for k, s := range b.Sensors {
		clone.Sensors[k] = s
	}
	for k, a := range b.Actuators {
		a2 := a
		if a.LastActivated != nil {
			t := *a.LastActivated
			a2.LastActivated = &t
		}
		clone.Actuators[k] = a2
	}

	return clone
}
