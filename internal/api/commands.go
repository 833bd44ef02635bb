package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/agrolink-core/internal/command"
	"github.com/nerrad567/agrolink-core/internal/registry"
)

// pumpCommandRequest is the body for POST /pump-command.
//
// PumpID is the device-side binding name of the pump (e.g. "pump_1"),
// matching the names devices use in their telemetry envelopes.
type pumpCommandRequest struct {
	DeviceID        string `json:"device_id"`
	PumpID          string `json:"pump_id"`
	Action          string `json:"action"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
	TriggeredBy     string `json:"triggered_by,omitempty"`
}

// polledCommand is the device-facing view of a dispatched command.
// Devices address pumps by binding name, not by logical actuator ID.
type polledCommand struct {
	ID              string         `json:"id"`
	PumpID          string         `json:"pump_id"`
	Action          command.Action `json:"action"`
	DurationMinutes *int           `json:"duration_minutes,omitempty"`
}

// handlePumpCommand enqueues a pump command for asynchronous pickup.
//
// Any pending command for the same pump is superseded; the response
// echoes the accepted command with its lifecycle state.
func (s *Server) handlePumpCommand(w http.ResponseWriter, r *http.Request) {
	var req pumpCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}
	if req.DeviceID == "" || req.PumpID == "" {
		writeValidationError(w, "missing device_id or pump_id")
		return
	}

	ctx, cancel := s.storageCtx(r)
	defer cancel()

	bindings, err := s.registry.Resolve(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownDevice) {
			writeUnknownDevice(w)
			return
		}
		writeStoreError(w, err, "failed to resolve device")
		return
	}

	actuator, ok := bindings.Actuators[req.PumpID]
	if !ok {
		writeNotFound(w, "unknown pump")
		return
	}

	cmd, err := s.queue.Enqueue(ctx, command.EnqueueInput{
		ActuatorID:      actuator.ID,
		Action:          command.Action(req.Action),
		DurationMinutes: req.DurationMinutes,
		TriggeredBy:     command.TriggeredBy(req.TriggeredBy),
	})
	if err != nil {
		switch {
		case errors.Is(err, command.ErrInvalidAction):
			writeValidationError(w, "action must be start or stop")
		case errors.Is(err, command.ErrInvalidTrigger):
			writeValidationError(w, "unrecognised triggered_by")
		case errors.Is(err, registry.ErrActuatorNotFound):
			writeNotFound(w, "unknown pump")
		default:
			writeStoreError(w, err, "failed to enqueue command")
		}
		return
	}

	s.metrics.commandsEnqueued.Inc()
	writeJSON(w, http.StatusCreated, cmd)
}

// handlePollCommands hands all pending commands for a device to the
// caller, transitioning each to dispatched. Devices poll this
// periodically; a command is handed out exactly once.
func (s *Server) handlePollCommands(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeValidationError(w, "missing device_id")
		return
	}

	ctx, cancel := s.storageCtx(r)
	defer cancel()

	bindings, err := s.registry.Resolve(ctx, deviceID)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownDevice) {
			writeUnknownDevice(w)
			return
		}
		writeStoreError(w, err, "failed to resolve device")
		return
	}

	dispatched, err := s.queue.Poll(ctx, deviceID)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownDevice) {
			writeUnknownDevice(w)
			return
		}
		writeStoreError(w, err, "failed to poll commands")
		return
	}

	// Translate logical actuator IDs back to the binding names the
	// device knows its pumps by.
	bindingByID := make(map[string]string, len(bindings.Actuators))
	for binding, a := range bindings.Actuators {
		bindingByID[a.ID] = binding
	}

	commands := make([]polledCommand, 0, len(dispatched))
	for _, cmd := range dispatched {
		commands = append(commands, polledCommand{
			ID:              cmd.ID,
			PumpID:          bindingByID[cmd.ActuatorID],
			Action:          cmd.Action,
			DurationMinutes: cmd.DurationMinutes,
		})
	}

	s.metrics.commandsDispatched.Add(float64(len(commands)))
	writeJSON(w, http.StatusOK, map[string]any{"commands": commands})
}

// handleAckCommand records device confirmation of a dispatched command.
// Duplicate acks are benign no-ops and still return the command.
func (s *Server) handleAckCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := s.storageCtx(r)
	defer cancel()

	cmd, err := s.queue.Acknowledge(ctx, id)
	if err != nil {
		if errors.Is(err, command.ErrCommandNotFound) {
			writeNotFound(w, "command not found")
			return
		}
		writeStoreError(w, err, "failed to acknowledge command")
		return
	}

	s.metrics.commandsAcked.Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"command": cmd,
	})
}

// handleGetCommand returns a single command with its lifecycle state,
// for operator status display.
func (s *Server) handleGetCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := s.storageCtx(r)
	defer cancel()

	cmd, err := s.queue.Get(ctx, id)
	if err != nil {
		if errors.Is(err, command.ErrCommandNotFound) {
			writeNotFound(w, "command not found")
			return
		}
		writeStoreError(w, err, "failed to get command")
		return
	}

	writeJSON(w, http.StatusOK, cmd)
}
