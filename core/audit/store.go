// Package audit records the fate of every dispatched service call. The trail
// is an operator aid only: calls that are silently dropped toward the caller
// still show up here with the dropped outcome.
package audit

import (
	"context"
	"time"
)

// Outcome classifies how a call ended.
type Outcome string

const (
	// OutcomeDispatched means the call reached a backend operation.
	OutcomeDispatched Outcome = "dispatched"
	// OutcomeRejected means schema validation failed before dispatch.
	OutcomeRejected Outcome = "rejected"
	// OutcomeDropped means routing or handle resolution failed and the call
	// was silently discarded.
	OutcomeDropped Outcome = "dropped"
	// OutcomeFailed means the backend operation returned an error.
	OutcomeFailed Outcome = "failed"
)

// CallRecord captures one service call and its result.
type CallRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	CallID    string         `json:"call_id"`
	Service   string         `json:"service"`
	Data      map[string]any `json:"data,omitempty"`
	Outcome   Outcome        `json:"outcome"`
	Error     string         `json:"error,omitempty"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start   time.Time
	End     time.Time
	Service string
	Outcome Outcome
}

// Matches reports whether the record passes the query filters.
func (q Query) Matches(r CallRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Service != "" && r.Service != q.Service {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

// Store persists CallRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec CallRecord) error
	Query(ctx context.Context, q Query) ([]CallRecord, error)
	Close() error
}
