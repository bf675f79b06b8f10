// Package backend implements control units that relay device commands over
// the platform MQTT bus. Each unit owns a set of interface clients and the
// entities configured for them.
package backend

import (
	"fmt"
	"strings"
)

// DeviceConfig describes one entity owned by a control unit.
type DeviceConfig struct {
	EntityID    string `json:"entity_id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Channel     int    `json:"channel"`
	InterfaceID string `json:"interface_id"`
	Platform    string `json:"platform"`
}

// Config describes one control unit instance.
type Config struct {
	Name         string         `json:"name"`
	HubEntityID  string         `json:"hub_entity_id"`
	Interfaces   []string       `json:"interfaces"`
	CommandTopic string         `json:"command_topic"`
	Devices      []DeviceConfig `json:"devices"`
}

// SetDefaults fills optional fields.
func (c *Config) SetDefaults() {
	if c.CommandTopic == "" {
		c.CommandTopic = "hmdispatch/cmd/" + c.Name
	}
	for i := range c.Devices {
		if c.Devices[i].Channel == 0 {
			c.Devices[i].Channel = 1
		}
		if c.Devices[i].Platform == "" {
			c.Devices[i].Platform = "climate"
		}
		if c.Devices[i].InterfaceID == "" && len(c.Interfaces) > 0 {
			c.Devices[i].InterfaceID = c.Interfaces[0]
		}
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("backend: unit name is required")
	}
	if len(c.Interfaces) == 0 {
		return fmt.Errorf("backend: unit %s lists no interfaces", c.Name)
	}
	known := make(map[string]bool, len(c.Interfaces))
	for _, id := range c.Interfaces {
		known[id] = true
	}
	for _, d := range c.Devices {
		if d.EntityID == "" || d.Address == "" {
			return fmt.Errorf("backend: unit %s has a device without entity_id or address", c.Name)
		}
		if d.InterfaceID != "" && !known[d.InterfaceID] {
			return fmt.Errorf("backend: device %s references unknown interface %s", d.EntityID, d.InterfaceID)
		}
	}
	if strings.ContainsAny(c.CommandTopic, "+#") {
		return fmt.Errorf("backend: command topic %q must not contain wildcards", c.CommandTopic)
	}
	return nil
}
