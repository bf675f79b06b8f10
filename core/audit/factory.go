package audit

import "github.com/hmctl/hmdispatch/core/factory"

var storeRegistry = factory.NewRegistry[Store]()

// RegisterStore adds a store factory identified by name.
func RegisterStore(name string, f factory.Factory[Store]) error {
	return storeRegistry.Register(name, f)
}

// NewStore creates a Store from the provided module configuration. An empty
// type disables the audit trail.
func NewStore(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		return nil, nil
	}
	return storeRegistry.Create(cfg)
}
