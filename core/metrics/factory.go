package metrics

import "github.com/hmctl/hmdispatch/core/factory"

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a metrics sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// NewSink creates a Sink from the provided configurations. Multiple sinks are
// wrapped by the caller; this function builds exactly one.
func NewSink(cfg factory.ModuleConfig) (Sink, error) {
	return sinkRegistry.Create(cfg)
}

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr starts the /metrics listener when non-empty.
	PrometheusAddr string `json:"prometheus_addr"`
}
