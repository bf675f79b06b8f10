package metrics

import "time"

// CallResult represents one finished service call to be recorded.
type CallResult struct {
	CallID   string
	Service  string
	Outcome  string
	Duration time.Duration
	Time     time.Time
}

// Sink records service-call results for observability purposes.
type Sink interface {
	RecordCallResult(results []CallResult) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordCallResult([]CallResult) error { return nil }
