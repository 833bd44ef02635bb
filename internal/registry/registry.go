package registry

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry resolves device identifiers to their sensor and actuator
// bindings. It wraps a Repository and adds an in-memory cache so the
// lookup on every ingestion and poll request stays O(1).
//
// Bindings are provisioned out-of-band; the registry only performs
// lookups and status updates, never creates bindings. The cache is
// populated on startup via RefreshCache() and kept in sync by the
// status-mutating methods.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*DeviceBindings // Cached bindings by device ID
	cacheMu sync.RWMutex               // Protects cache
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*DeviceBindings),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all device bindings from the repository into the
// cache. This should be called on application startup and after
// provisioning changes.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	fresh := make(map[string]*DeviceBindings, len(devices))
	for _, d := range devices {
		bindings, err := r.repo.GetBindings(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("loading bindings for %s: %w", d.ID, err)
		}
		fresh[d.ID] = bindings
	}

	r.cacheMu.Lock()
	r.cache = fresh
	r.cacheMu.Unlock()

	r.logger.Info("device binding cache refreshed", "count", len(devices))
	return nil
}

// Resolve maps a device identifier to its sensor and actuator bindings.
// Returns ErrUnknownDevice when the identifier has no binding; there is
// no default account fallback.
// The returned bindings are a deep copy; callers can safely modify them.
func (r *Registry) Resolve(ctx context.Context, deviceID string) (*DeviceBindings, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[deviceID]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	// Fall back to repository (might be a device provisioned after the
	// last cache refresh)
	bindings, err := r.repo.GetBindings(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[deviceID] = bindings.DeepCopy()
	r.cacheMu.Unlock()

	return bindings, nil
}

// ListDevices retrieves all devices.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	return r.repo.ListDevices(ctx)
}

// GetDevice retrieves a device by ID.
// Returns ErrUnknownDevice if the device does not exist.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		d := cached.Device
		return &d, nil
	}

	return r.repo.GetDevice(ctx, id)
}

// GetSensor retrieves a sensor by ID.
func (r *Registry) GetSensor(ctx context.Context, id string) (*Sensor, error) {
	return r.repo.GetSensor(ctx, id)
}

// GetActuator retrieves an actuator by ID.
func (r *Registry) GetActuator(ctx context.Context, id string) (*Actuator, error) {
	return r.repo.GetActuator(ctx, id)
}

// SetActuatorStatus updates the stored status of an actuator and keeps
// the cache in sync. When lastActivated is non-nil it is recorded as the
// actuator's last activation time.
func (r *Registry) SetActuatorStatus(ctx context.Context, deviceID, actuatorID string, status ActuatorStatus, lastActivated *time.Time) error {
	if err := r.repo.UpdateActuatorStatus(ctx, actuatorID, status, lastActivated); err != nil {
		return err
	}

	// Update cache using deep copy so concurrent readers never observe a
	// partially updated entry.
	r.cacheMu.Lock()
	if cached, ok := r.cache[deviceID]; ok {
		updated := cached.DeepCopy()
		for binding, a := range updated.Actuators {
			if a.ID != actuatorID {
				continue
			}
			a.Status = status
			if lastActivated != nil {
				t := lastActivated.UTC()
				a.LastActivated = &t
			}
			a.UpdatedAt = time.Now().UTC()
			updated.Actuators[binding] = a
			break
		}
		r.cache[deviceID] = updated
	}
	r.cacheMu.Unlock()

	r.logger.Debug("actuator status updated", "actuator_id", actuatorID, "status", status)
	return nil
}

// DeviceCount returns the number of cached devices.
func (r *Registry) DeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
