package service

import (
	"fmt"

	"github.com/hmctl/hmdispatch/core/control"
	"github.com/hmctl/hmdispatch/core/model"
)

// routingPair resolves a device id and channel number to the backend routing
// pair. The second return value is false when the device is unknown.
func (d *Dispatcher) routingPair(deviceID string, channel int) (model.RoutingPair, bool) {
	entry, ok := d.devices.Resolve(deviceID)
	if !ok {
		return model.RoutingPair{}, false
	}
	return model.RoutingPair{
		InterfaceID:    entry.InterfaceID,
		ChannelAddress: fmt.Sprintf("%s:%d", entry.DeviceAddress, channel),
	}, true
}

// unitByInterfaceID returns the first active control unit holding a client
// for the interface id, or nil. A linear scan is fine at the data volumes
// involved.
func (d *Dispatcher) unitByInterfaceID(interfaceID string) control.ControlUnit {
	for _, cu := range d.units.All() {
		if cu != nil && cu.HasClient(interfaceID) {
			return cu
		}
	}
	return nil
}

// hubByEntityID returns the hub whose entity id matches, or nil.
func (d *Dispatcher) hubByEntityID(entityID string) control.Hub {
	for _, cu := range d.units.All() {
		if cu == nil {
			continue
		}
		if hub := cu.Hub(); hub != nil && hub.EntityID() == entityID {
			return hub
		}
	}
	return nil
}

// entityByID returns the entity with the given id from the first instance
// that knows it, or nil.
func (d *Dispatcher) entityByID(entityID string) model.Entity {
	for _, cu := range d.units.All() {
		if cu == nil {
			continue
		}
		if e := cu.Entity(entityID); e != nil {
			return e
		}
	}
	return nil
}

// entitiesByPlatform collects the entities of one platform across all active
// instances, in instance order.
func (d *Dispatcher) entitiesByPlatform(p model.Platform) []model.Entity {
	var out []model.Entity
	for _, cu := range d.units.All() {
		if cu == nil {
			continue
		}
		out = append(out, cu.EntitiesByPlatform(p)...)
	}
	return out
}
