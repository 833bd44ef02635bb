package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/agrolink-core/internal/registry"
	"github.com/nerrad567/agrolink-core/internal/telemetry"
)

// sensorDataRequest is the telemetry envelope pushed by a device.
//
// Sensors maps device-side binding names to raw values. Actuators is an
// optional map of binding names to reported on/off state. Timestamp is
// the device's own measurement time; absent, receipt time is used.
type sensorDataRequest struct {
	DeviceID  string             `json:"device_id"`
	Sensors   map[string]float64 `json:"sensors"`
	Actuators map[string]bool    `json:"actuators,omitempty"`
	Timestamp *time.Time         `json:"timestamp,omitempty"`
}

// sensorDataResponse reports the outcome of a telemetry push.
type sensorDataResponse struct {
	Success     bool     `json:"success"`
	StoredCount int      `json:"stored_count"`
	Skipped     []string `json:"skipped"`
}

// handleSensorData ingests a telemetry payload and reconciles any
// reported actuator state.
//
// Unresolvable fields are skipped, not fatal: sibling fields still
// commit, and the skipped names are reported back so a misconfigured
// device is visible in its own response. A structurally malformed
// envelope stores nothing.
func (s *Server) handleSensorData(w http.ResponseWriter, r *http.Request) {
	var req sensorDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}

	ctx, cancel := s.storageCtx(r)
	defer cancel()

	result, err := s.ingestor.Ingest(ctx, telemetry.IngestInput{
		DeviceID:  req.DeviceID,
		Sensors:   req.Sensors,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		switch {
		case errors.Is(err, telemetry.ErrInvalidPayload):
			s.metrics.telemetryRejected.Inc()
			writeValidationError(w, "missing device_id or sensors")
		case errors.Is(err, registry.ErrUnknownDevice):
			s.metrics.telemetryRejected.Inc()
			writeUnknownDevice(w)
		default:
			writeStoreError(w, err, "failed to store readings")
		}
		return
	}

	skipped := result.Skipped

	// Reported actuator state rides in the same envelope. The readings
	// above have already committed, so a reconcile failure here is
	// logged rather than failing the push; returning an error would
	// make the device re-send and duplicate its readings.
	if len(req.Actuators) > 0 {
		rec, err := s.reconciler.Reconcile(ctx, req.DeviceID, req.Actuators)
		if err != nil {
			s.logger.Error("actuator reconcile failed",
				"device_id", req.DeviceID,
				"error", err,
			)
		} else {
			skipped = append(skipped, rec.Skipped...)
		}
	}

	s.metrics.readingsStored.Add(float64(result.StoredCount))

	if skipped == nil {
		skipped = []string{}
	}
	writeJSON(w, http.StatusOK, sensorDataResponse{
		Success:     true,
		StoredCount: result.StoredCount,
		Skipped:     skipped,
	})
}
