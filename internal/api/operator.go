package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/agrolink-core/internal/auth"
	"github.com/nerrad567/agrolink-core/internal/registry"
)

// Dev-only operator credentials. Account management lives in the
// external provisioning service; this login exists so a standalone core
// is usable from the dashboard without that service running.
const (
	devUsername = "admin"
	devPassword = "admin"
	devAccount  = "acct-dev"
)

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleLogin authenticates an operator and returns a JWT access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid JSON body")
		return
	}

	if req.Username != devUsername || req.Password != devPassword {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl == 0 {
		ttl = 15 // minutes
	}

	token, err := auth.GenerateAccessToken(req.Username, devAccount, auth.RoleAdmin, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60, // seconds
	})
}

// handleListDevices returns all provisioned devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storageCtx(r)
	defer cancel()

	devices, err := s.registry.ListDevices(ctx)
	if err != nil {
		writeStoreError(w, err, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device with its sensor and actuator
// bindings.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := s.storageCtx(r)
	defer cancel()

	bindings, err := s.registry.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownDevice) {
			writeUnknownDevice(w)
			return
		}
		writeStoreError(w, err, "failed to get device")
		return
	}

	sensors := make([]registry.Sensor, 0, len(bindings.Sensors))
	for _, sensor := range bindings.Sensors {
		sensors = append(sensors, sensor)
	}
	actuators := make([]registry.Actuator, 0, len(bindings.Actuators))
	for _, actuator := range bindings.Actuators {
		actuators = append(actuators, actuator)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device":    bindings.Device,
		"sensors":   sensors,
		"actuators": actuators,
	})
}

// handleActuatorLogs returns the audit trail for an actuator, newest first.
func (s *Server) handleActuatorLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := s.storageCtx(r)
	defer cancel()

	if _, err := s.registry.GetActuator(ctx, id); err != nil {
		if errors.Is(err, registry.ErrActuatorNotFound) {
			writeNotFound(w, "actuator not found")
			return
		}
		writeStoreError(w, err, "failed to get actuator")
		return
	}

	entries, err := s.logRepo.ListByActuator(ctx, id, queryLimit(r))
	if err != nil {
		writeStoreError(w, err, "failed to list actuator logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": entries, "count": len(entries)})
}

// handleSensorReadings returns a page of stored readings for a sensor,
// newest first.
func (s *Server) handleSensorReadings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := s.storageCtx(r)
	defer cancel()

	if _, err := s.registry.GetSensor(ctx, id); err != nil {
		if errors.Is(err, registry.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found")
			return
		}
		writeStoreError(w, err, "failed to get sensor")
		return
	}

	readings, err := s.readings.ListBySensor(ctx, id, queryLimit(r))
	if err != nil {
		writeStoreError(w, err, "failed to list readings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"readings": readings, "count": len(readings)})
}

// queryLimit parses an optional ?limit= parameter. Zero means the
// repository default applies.
func queryLimit(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
