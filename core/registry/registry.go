// Package registry maps opaque device identifiers to the address information
// needed to route backend calls. Entries are maintained by the integration
// instances that discover the devices; the dispatcher only reads them.
package registry

import "sync"

// Entry holds the routing information recorded for one device.
type Entry struct {
	DeviceAddress string
	InterfaceID   string
}

// DeviceRegistry is a concurrency-safe device id -> Entry map.
type DeviceRegistry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New returns an empty DeviceRegistry.
func New() *DeviceRegistry {
	return &DeviceRegistry{entries: make(map[string]Entry)}
}

// Add records or replaces the entry for deviceID.
func (r *DeviceRegistry) Add(deviceID string, e Entry) {
	r.mu.Lock()
	r.entries[deviceID] = e
	r.mu.Unlock()
}

// Remove drops the entry for deviceID, if present.
func (r *DeviceRegistry) Remove(deviceID string) {
	r.mu.Lock()
	delete(r.entries, deviceID)
	r.mu.Unlock()
}

// Resolve looks up deviceID. The second return value is false when the id is
// unknown or not yet mapped.
func (r *DeviceRegistry) Resolve(deviceID string) (Entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[deviceID]
	r.mu.RUnlock()
	return e, ok
}

// Len reports the number of registered devices.
func (r *DeviceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
