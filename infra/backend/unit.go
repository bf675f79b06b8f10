package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hmctl/hmdispatch/core/control"
	"github.com/hmctl/hmdispatch/core/model"
	"github.com/hmctl/hmdispatch/infra/logger"
)

// CommandPublisher delivers encoded command payloads to the device network.
type CommandPublisher interface {
	PublishCommand(ctx context.Context, topic string, payload []byte) error
}

// Wire formats of the backend commands. The bridge process on the other side
// of the bus translates them into XML-RPC calls.
type setValueCommand struct {
	InterfaceID    string `json:"interface_id"`
	ChannelAddress string `json:"channel_address"`
	Parameter      string `json:"parameter"`
	Value          any    `json:"value"`
	RxMode         string `json:"rx_mode,omitempty"`
}

type putParamsetCommand struct {
	InterfaceID    string         `json:"interface_id"`
	ChannelAddress string         `json:"channel_address"`
	ParamsetKey    string         `json:"paramset_key"`
	Paramset       map[string]any `json:"paramset"`
	RxMode         string         `json:"rx_mode,omitempty"`
}

type installModeCommand struct {
	InterfaceID string `json:"interface_id"`
	Time        int    `json:"time"`
	Mode        int    `json:"mode"`
	Address     string `json:"address,omitempty"`
}

type setVariableCommand struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Unit is an MQTT-backed control unit. Commands are published per interface
// under the unit command topic.
type Unit struct {
	name       string
	topic      string
	interfaces map[string]bool
	hub        *Hub
	entities   []model.Entity
	byID       map[string]model.Entity
	pub        CommandPublisher
	log        logger.Logger
}

var _ control.ControlUnit = (*Unit)(nil)

// NewUnit builds a unit from its configuration. The publisher is shared
// across units.
func NewUnit(cfg Config, pub CommandPublisher) (*Unit, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	u := &Unit{
		name:       cfg.Name,
		topic:      cfg.CommandTopic,
		interfaces: make(map[string]bool, len(cfg.Interfaces)),
		byID:       make(map[string]model.Entity, len(cfg.Devices)),
		pub:        pub,
		log:        logger.New("backend_" + cfg.Name),
	}
	for _, id := range cfg.Interfaces {
		u.interfaces[id] = true
	}
	if cfg.HubEntityID != "" {
		u.hub = &Hub{entityID: cfg.HubEntityID, unit: u}
	}
	for _, d := range cfg.Devices {
		ent := newEntity(u, d)
		u.entities = append(u.entities, ent)
		u.byID[ent.EntityID()] = ent
	}
	return u, nil
}

// Name returns the configured unit name.
func (u *Unit) Name() string { return u.name }

func (u *Unit) HasClient(interfaceID string) bool { return u.interfaces[interfaceID] }

func (u *Unit) SetValue(ctx context.Context, interfaceID, channelAddress, parameter string, value any, rxMode string) error {
	return u.publish(ctx, interfaceID, "setValue", setValueCommand{
		InterfaceID:    interfaceID,
		ChannelAddress: channelAddress,
		Parameter:      parameter,
		Value:          value,
		RxMode:         rxMode,
	})
}

func (u *Unit) PutParamset(ctx context.Context, interfaceID, channelAddress, paramsetKey string, paramset map[string]any, rxMode string) error {
	return u.publish(ctx, interfaceID, "putParamset", putParamsetCommand{
		InterfaceID:    interfaceID,
		ChannelAddress: channelAddress,
		ParamsetKey:    paramsetKey,
		Paramset:       paramset,
		RxMode:         rxMode,
	})
}

func (u *Unit) SetInstallMode(ctx context.Context, interfaceID string, seconds, mode int, deviceAddress string) error {
	return u.publish(ctx, interfaceID, "installMode", installModeCommand{
		InterfaceID: interfaceID,
		Time:        seconds,
		Mode:        mode,
		Address:     deviceAddress,
	})
}

func (u *Unit) Hub() control.Hub {
	if u.hub == nil {
		return nil
	}
	return u.hub
}

func (u *Unit) Entity(entityID string) model.Entity { return u.byID[entityID] }

func (u *Unit) EntitiesByPlatform(p model.Platform) []model.Entity {
	var out []model.Entity
	for _, e := range u.entities {
		if e.Platform() == p {
			out = append(out, e)
		}
	}
	return out
}

func (u *Unit) publish(ctx context.Context, interfaceID, command string, msg any) error {
	if !u.interfaces[interfaceID] {
		return fmt.Errorf("backend: unit %s has no client for interface %s", u.name, interfaceID)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("backend: encode %s command: %w", command, err)
	}
	topic := fmt.Sprintf("%s/%s/%s", u.topic, interfaceID, command)
	u.log.Debugf("publishing %s to %s", command, topic)
	return u.pub.PublishCommand(ctx, topic, payload)
}

// Hub exposes the unit system-variable surface.
type Hub struct {
	entityID string
	unit     *Unit
}

var _ control.Hub = (*Hub)(nil)

func (h *Hub) EntityID() string { return h.entityID }

func (h *Hub) SetVariable(ctx context.Context, name string, value any) error {
	payload, err := json.Marshal(setVariableCommand{Name: name, Value: value})
	if err != nil {
		return fmt.Errorf("backend: encode setVariable command: %w", err)
	}
	topic := h.unit.topic + "/hub/setVariable"
	h.unit.log.Debugf("publishing setVariable %s to %s", name, topic)
	return h.unit.pub.PublishCommand(ctx, topic, payload)
}
