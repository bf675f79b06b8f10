// Package config loads the service configuration from YAML or JSON files
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hmctl/hmdispatch/core/factory"
	"github.com/hmctl/hmdispatch/core/metrics"
	"github.com/hmctl/hmdispatch/core/service"
	"github.com/hmctl/hmdispatch/infra/backend"
	"github.com/hmctl/hmdispatch/infra/mqtt"
)

// HTTPConfig defines the API listener.
type HTTPConfig struct {
	// Addr enables the HTTP API when non-empty, e.g. ":8080".
	Addr string `json:"addr"`
	// APIToken protects the logs endpoint when non-empty.
	APIToken string `json:"api_token"`
}

// DeviceEntry seeds the device registry with one routing record.
type DeviceEntry struct {
	DeviceID    string `json:"device_id"`
	Address     string `json:"address"`
	InterfaceID string `json:"interface_id"`
}

type Config struct {
	MQTT     mqtt.Config          `json:"mqtt"`
	HTTP     HTTPConfig           `json:"http"`
	Dispatch service.Config       `json:"dispatch"`
	Metrics  metrics.Config       `json:"metrics"`
	Audit    factory.ModuleConfig `json:"audit"`
	Devices  []DeviceEntry        `json:"devices"`
	Units    []backend.Config     `json:"units"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("HMD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "hmd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	for i := range cfg.Units {
		cfg.Units[i].SetDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks mandatory fields across all sections.
func (c Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.ClientID == "" {
		return fmt.Errorf("mqtt.client_id is required")
	}
	for _, d := range c.Devices {
		if d.DeviceID == "" || d.Address == "" || d.InterfaceID == "" {
			return fmt.Errorf("device entry %q needs device_id, address and interface_id", d.DeviceID)
		}
	}
	names := make(map[string]bool, len(c.Units))
	for _, u := range c.Units {
		if err := u.Validate(); err != nil {
			return err
		}
		if names[u.Name] {
			return fmt.Errorf("duplicate unit name %s", u.Name)
		}
		names[u.Name] = true
	}
	return nil
}
