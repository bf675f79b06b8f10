package metrics

import (
	coremetrics "github.com/hmctl/hmdispatch/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records service-call events in Prometheus metrics.
type PromSink struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPromSink registers call metrics on the default Prometheus registerer.
// The metrics endpoint is served separately, see StartPromServer.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "service_calls_total",
		Help: "Total number of service calls by outcome",
	}, []string{"service", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "service_call_duration_seconds",
		Help:    "Time between call receipt and completion",
		Buckets: prometheus.DefBuckets,
	}, []string{"service"})

	if err := reg.Register(calls); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			calls = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{calls: calls, duration: duration}, nil
}

// RecordCallResult increments the counter and observes the duration for each
// result.
func (s *PromSink) RecordCallResult(res []coremetrics.CallResult) error {
	for _, r := range res {
		s.calls.WithLabelValues(r.Service, r.Outcome).Inc()
		s.duration.WithLabelValues(r.Service).Observe(r.Duration.Seconds())
	}
	return nil
}
