// Package events defines the in-process events published while service calls
// move through the dispatcher. Observers subscribe to them via the event bus.
package events

import (
	"time"

	"github.com/hmctl/hmdispatch/core/model"
)

// CallEvent is published after a call passed schema validation, before its
// handler runs.
type CallEvent struct {
	Call model.ServiceCall
}

// ResultEvent is published once a call finished, whatever the outcome.
type ResultEvent struct {
	Call     model.ServiceCall
	Outcome  string
	Err      error
	Duration time.Duration
}
