package metrics

import (
	"errors"

	coremetrics "github.com/hmctl/hmdispatch/core/metrics"
)

// MultiSink fans records out to several sinks. Errors are collected, not
// short-circuited, so one failing sink does not starve the others.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink builds a MultiSink over the given sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// RecordCallResult forwards the results to every sink.
func (m *MultiSink) RecordCallResult(res []coremetrics.CallResult) error {
	var errs []error
	for _, s := range m.sinks {
		if s == nil {
			continue
		}
		if err := s.RecordCallResult(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
