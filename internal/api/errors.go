package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes. Devices and the dashboard branch on Code, never on the
// message text, so codes are a fixed vocabulary.
const (
	ErrCodeValidation     = "validation_error"
	ErrCodeUnknownDevice  = "unknown_device"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeTransientStore = "transient_store_error"
	ErrCodeInternal       = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeValidationError writes a 400 error response.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnknownDevice writes a 404 error response for an unrecognised device.
func writeUnknownDevice(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, ErrCodeUnknownDevice, "unknown device")
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeStoreError maps a storage failure into the device-facing error
// vocabulary. A deadline hit becomes a 503 so the device retries on its
// next poll cycle; anything else is an opaque 500. Internal error text is
// never echoed to the caller.
func writeStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusServiceUnavailable, ErrCodeTransientStore, "storage temporarily unavailable")
		return
	}
	writeInternalError(w, message)
}
