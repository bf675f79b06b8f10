package metrics

import (
	"github.com/hmctl/hmdispatch/core/factory"
	coremetrics "github.com/hmctl/hmdispatch/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.Sink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.Sink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.Sink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}

// FromConfig builds the configured sink set. No configuration yields a
// NopSink; several configurations are wrapped in a MultiSink.
func FromConfig(cfg coremetrics.Config) (coremetrics.Sink, error) {
	if len(cfg.Sinks) == 0 {
		return coremetrics.NopSink{}, nil
	}
	if len(cfg.Sinks) == 1 {
		return coremetrics.NewSink(cfg.Sinks[0])
	}
	sinks := make([]coremetrics.Sink, len(cfg.Sinks))
	for i, c := range cfg.Sinks {
		s, err := coremetrics.NewSink(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
