package registry

import "errors"

// Domain errors for the registry package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, registry.ErrUnknownDevice) {
//	    // handle unknown device case
//	}
var (
	// ErrUnknownDevice is returned when a device identifier has no binding.
	// The registry fails closed: an unrecognised device is rejected, never
	// mapped to a default account.
	ErrUnknownDevice = errors.New("registry: unknown device")

	// ErrSensorNotFound is returned when a sensor ID does not exist.
	ErrSensorNotFound = errors.New("registry: sensor not found")

	// ErrActuatorNotFound is returned when an actuator ID does not exist.
	ErrActuatorNotFound = errors.New("registry: actuator not found")
)
