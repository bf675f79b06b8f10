// Package control defines the backend collaborators the dispatcher forwards
// validated calls to. The hard work of talking to the device network lives
// behind these interfaces, not in this repository.
package control

import (
	"context"

	"github.com/hmctl/hmdispatch/core/model"
)

// Hub exposes the system-variable surface of one integration instance.
type Hub interface {
	EntityID() string
	SetVariable(ctx context.Context, name string, value any) error
}

// ControlUnit is one active integration instance. It owns a set of interface
// clients (keyed by interface id) and the entities discovered through them.
type ControlUnit interface {
	// HasClient reports whether the unit holds an active client for the
	// given interface id.
	HasClient(interfaceID string) bool

	SetValue(ctx context.Context, interfaceID, channelAddress, parameter string, value any, rxMode string) error
	PutParamset(ctx context.Context, interfaceID, channelAddress, paramsetKey string, paramset map[string]any, rxMode string) error
	// SetInstallMode opens the pairing window on the interface for seconds
	// seconds. deviceAddress may be empty.
	SetInstallMode(ctx context.Context, interfaceID string, seconds, mode int, deviceAddress string) error

	// Hub returns the instance hub, or nil when the instance has none.
	Hub() Hub
	// Entity returns the entity with the given id, or nil.
	Entity(entityID string) model.Entity
	// EntitiesByPlatform returns the instance entities of one platform.
	EntitiesByPlatform(p model.Platform) []model.Entity
}
