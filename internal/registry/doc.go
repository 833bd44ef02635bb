// Package registry provides the Device Registry for AgroLink Core.
//
// The registry is the identity layer for every inbound device request: an
// opaque device identifier is resolved to the logical sensors and
// actuators it owns, indexed by their physical binding names (the channel
// names a device uses in its payloads, such as "soil_moisture_1" or
// "pump_1"). Resolution fails closed with ErrUnknownDevice; there is no
// default account and no cross-device sensor search.
//
// Bindings are created by provisioning, which is outside this core. The
// registry performs lookups and actuator status updates only.
//
// # Usage
//
//	repo := registry.NewSQLiteRepository(db)
//	reg := registry.NewRegistry(repo)
//	reg.SetLogger(log)
//
//	// Load bindings into cache on startup
//	if err := reg.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	// Resolve a device on ingestion or poll
//	bindings, err := reg.Resolve(ctx, "esp32-greenhouse-1")
//	if errors.Is(err, registry.ErrUnknownDevice) {
//	    // reject the request
//	}
//	sensor, ok := bindings.Sensors["soil_moisture_1"]
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected by
// a read-write mutex, and cached bindings are served as deep copies.
package registry
