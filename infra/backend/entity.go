package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/hmctl/hmdispatch/core/model"
)

// hmTimeLayout is the timestamp format the device firmware expects in party
// mode paramsets.
const hmTimeLayout = "2006_01_02 15:04"

// Control modes of the thermostat CONTROL_MODE parameter.
const (
	controlModeAuto  = 0
	controlModeParty = 2
)

// Device is a plain configured entity without extra capabilities.
type Device struct {
	entityID string
	name     string
	platform model.Platform
}

func (d *Device) EntityID() string         { return d.entityID }
func (d *Device) Name() string             { return d.name }
func (d *Device) Platform() model.Platform { return d.platform }

// Thermostat is a climate entity whose away mode is driven through party-mode
// paramsets on its channel.
type Thermostat struct {
	Device
	unit        *Unit
	interfaceID string
	address     string
	channel     int
}

var _ model.AwayModeController = (*Thermostat)(nil)

func newEntity(u *Unit, cfg DeviceConfig) model.Entity {
	base := Device{
		entityID: cfg.EntityID,
		name:     cfg.Name,
		platform: model.Platform(cfg.Platform),
	}
	if base.platform == model.PlatformClimate {
		return &Thermostat{
			Device:      base,
			unit:        u,
			interfaceID: cfg.InterfaceID,
			address:     cfg.Address,
			channel:     cfg.Channel,
		}
	}
	return &base
}

func (t *Thermostat) channelAddress() string {
	return fmt.Sprintf("%s:%d", t.address, t.channel)
}

// EnableAwayModeByCalendar switches the thermostat into party mode with a
// fixed set point for the window [start, end].
func (t *Thermostat) EnableAwayModeByCalendar(ctx context.Context, start, end time.Time, setPoint float64) error {
	paramset := map[string]any{
		"CONTROL_MODE":                controlModeParty,
		"PARTY_TIME_START":            start.Format(hmTimeLayout),
		"PARTY_TIME_END":              end.Format(hmTimeLayout),
		"PARTY_SET_POINT_TEMPERATURE": setPoint,
	}
	return t.unit.PutParamset(ctx, t.interfaceID, t.channelAddress(), "VALUES", paramset, "")
}

// DisableAwayMode collapses the party window onto the current time, which
// returns the thermostat to its regular schedule.
func (t *Thermostat) DisableAwayMode(ctx context.Context) error {
	now := time.Now().Format(hmTimeLayout)
	paramset := map[string]any{
		"CONTROL_MODE":     controlModeAuto,
		"PARTY_TIME_START": now,
		"PARTY_TIME_END":   now,
	}
	return t.unit.PutParamset(ctx, t.interfaceID, t.channelAddress(), "VALUES", paramset, "")
}
