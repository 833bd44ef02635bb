package telemetry

import "errors"

// Domain errors for the telemetry package.
var (
	// ErrInvalidPayload is returned when a telemetry envelope is structurally
	// malformed (missing device identifier or sensor map). Nothing is stored.
	ErrInvalidPayload = errors.New("telemetry: invalid payload")
)
