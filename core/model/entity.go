package model

import (
	"context"
	"time"
)

// Platform categorizes entities by the kind of function they expose.
type Platform string

const (
	PlatformBinarySensor Platform = "binary_sensor"
	PlatformClimate      Platform = "climate"
	PlatformCover        Platform = "cover"
	PlatformLight        Platform = "light"
	PlatformLock         Platform = "lock"
	PlatformSensor       Platform = "sensor"
	PlatformSwitch       Platform = "switch"
)

// Entity is a remotely controllable or observable object owned by a control
// unit and addressed by its entity id.
type Entity interface {
	EntityID() string
	Name() string
	Platform() Platform
}

// AwayModeController is implemented by climate entities that support
// calendar-scheduled away mode. Whether an entity supports the operations is
// decided by this capability check, not by its concrete type.
type AwayModeController interface {
	// EnableAwayModeByCalendar overrides the climate schedule with a fixed
	// set point for the window [start, end].
	EnableAwayModeByCalendar(ctx context.Context, start, end time.Time, setPoint float64) error
	DisableAwayMode(ctx context.Context) error
}
