// Package service registers the Homematic service actions, validates incoming
// call payloads against their declared schemas and forwards accepted calls to
// the backend control units. Resolution failures are dropped without error;
// schema failures and backend errors surface to the caller.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hmctl/hmdispatch/core/audit"
	"github.com/hmctl/hmdispatch/core/control"
	"github.com/hmctl/hmdispatch/core/events"
	"github.com/hmctl/hmdispatch/core/logger"
	"github.com/hmctl/hmdispatch/core/metrics"
	"github.com/hmctl/hmdispatch/core/model"
	"github.com/hmctl/hmdispatch/core/registry"
	"github.com/hmctl/hmdispatch/core/schema"
	"github.com/hmctl/hmdispatch/internal/eventbus"
)

// ErrUnknownService is returned for calls to a name that was never registered
// or has been torn down.
var ErrUnknownService = errors.New("unknown service")

// handler runs one validated call. The returned outcome feeds the audit trail
// and metrics; the error, if any, is what the caller sees.
type handler func(ctx context.Context, data map[string]any) (audit.Outcome, error)

type registration struct {
	schema  schema.Schema
	handler handler
}

// Dispatcher validates and routes service calls.
type Dispatcher struct {
	devices *registry.DeviceRegistry
	units   *control.Set
	log     logger.Logger

	sink  metrics.Sink
	store audit.Store
	bus   eventbus.EventBus

	pause time.Duration
	sleep func(time.Duration)

	mu      sync.RWMutex
	actions map[string]registration
}

// NewDispatcher creates a dispatcher over the given device registry and
// control-unit set. Call Setup to register the service actions.
func NewDispatcher(devices *registry.DeviceRegistry, units *control.Set, log logger.Logger) (*Dispatcher, error) {
	if devices == nil || units == nil || log == nil {
		return nil, fmt.Errorf("service: nil parameter provided to NewDispatcher")
	}
	return &Dispatcher{
		devices: devices,
		units:   units,
		log:     log,
		pause:   time.Second,
		sleep:   time.Sleep,
	}, nil
}

// SetMetricsSink configures the sink used to record call results.
func (d *Dispatcher) SetMetricsSink(sink metrics.Sink) {
	d.mu.Lock()
	d.sink = sink
	d.mu.Unlock()
}

// SetAuditStore configures the store used to persist the call trail.
func (d *Dispatcher) SetAuditStore(store audit.Store) {
	d.mu.Lock()
	d.store = store
	d.mu.Unlock()
}

// SetEventBus configures the bus call and result events are published on.
func (d *Dispatcher) SetEventBus(bus eventbus.EventBus) {
	d.mu.Lock()
	d.bus = bus
	d.mu.Unlock()
}

// SetAwayModePause configures the serializing pause between away-mode calls.
// Zero disables the pause; negative values are ignored.
func (d *Dispatcher) SetAwayModePause(p time.Duration) {
	if p < 0 {
		return
	}
	d.mu.Lock()
	d.pause = p
	d.mu.Unlock()
}

// Setup registers all service actions. Calling it again when the actions are
// already registered is a no-op.
func (d *Dispatcher) Setup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.actions) > 0 {
		return
	}
	d.actions = map[string]registration{
		ServiceSetVariableValue:         {schema: setVariableValueSchema(), handler: d.handleSetVariableValue},
		ServiceSetDeviceValue:           {schema: setDeviceValueSchema(), handler: d.handleSetDeviceValue},
		ServicePutParamset:              {schema: putParamsetSchema(), handler: d.handlePutParamset},
		ServiceSetInstallMode:           {schema: setInstallModeSchema(), handler: d.handleSetInstallMode},
		ServiceEnableAwayModeByCalendar: {schema: enableAwayModeByCalendarSchema(), handler: d.handleEnableAwayModeByCalendar},
		ServiceDisableAwayMode:          {schema: disableAwayModeSchema(), handler: d.handleDisableAwayMode},
	}
}

// Teardown unregisters all service actions.
func (d *Dispatcher) Teardown() {
	d.mu.Lock()
	d.actions = nil
	d.mu.Unlock()
}

// Services returns the registered action names, sorted.
func (d *Dispatcher) Services() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.actions))
	for name := range d.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServiceFields returns the declared payload fields of one action.
func (d *Dispatcher) ServiceFields(name string) ([]string, bool) {
	d.mu.RLock()
	reg, ok := d.actions[name]
	d.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return reg.schema.Fields(), true
}

// Dispatch validates and executes one service call. Schema rejections and
// backend failures are returned; resolution failures are not.
func (d *Dispatcher) Dispatch(ctx context.Context, call model.ServiceCall) error {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	start := time.Now()

	d.mu.RLock()
	reg, ok := d.actions[call.Name]
	bus := d.bus
	d.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownService, call.Name)
		d.record(ctx, call, nil, audit.OutcomeRejected, err, time.Since(start))
		return err
	}

	data, err := reg.schema.Validate(call.Data)
	if err != nil {
		d.log.Warnf("call %s rejected: %v", call.Name, err)
		d.record(ctx, call, nil, audit.OutcomeRejected, err, time.Since(start))
		return err
	}

	if bus != nil {
		bus.Publish(events.CallEvent{Call: call})
	}

	outcome, err := reg.handler(ctx, data)
	d.record(ctx, call, data, outcome, err, time.Since(start))
	return err
}

// record writes the audit entry, metrics and result event for one call.
func (d *Dispatcher) record(ctx context.Context, call model.ServiceCall, data map[string]any, outcome audit.Outcome, callErr error, dur time.Duration) {
	d.mu.RLock()
	store, sink, bus := d.store, d.sink, d.bus
	d.mu.RUnlock()

	if store != nil {
		rec := audit.CallRecord{
			Timestamp: time.Now().UTC(),
			CallID:    call.ID,
			Service:   call.Name,
			Data:      auditData(data),
			Outcome:   outcome,
		}
		if callErr != nil {
			rec.Error = callErr.Error()
		}
		if err := store.Append(ctx, rec); err != nil {
			d.log.Errorf("audit append: %v", err)
		}
	}
	if sink != nil {
		res := metrics.CallResult{
			CallID:   call.ID,
			Service:  call.Name,
			Outcome:  string(outcome),
			Duration: dur,
			Time:     time.Now(),
		}
		if err := sink.RecordCallResult([]metrics.CallResult{res}); err != nil {
			d.log.Errorf("call metrics error: %v", err)
		}
	}
	if bus != nil {
		bus.Publish(events.ResultEvent{Call: call, Outcome: string(outcome), Err: callErr, Duration: dur})
	}
}

// auditData flattens non-JSON-friendly normalized values for persistence.
func auditData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case Target:
			if t.All {
				out[k] = "all"
			} else {
				out[k] = t.IDs
			}
		case time.Time:
			out[k] = t.Format(time.RFC3339)
		default:
			out[k] = v
		}
	}
	return out
}
