package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hmctl/hmdispatch/core/audit"
	"github.com/hmctl/hmdispatch/core/control"
	"github.com/hmctl/hmdispatch/core/metrics"
	"github.com/hmctl/hmdispatch/core/model"
	"github.com/hmctl/hmdispatch/core/registry"
	"github.com/hmctl/hmdispatch/core/schema"
	"github.com/hmctl/hmdispatch/infra/logger"
)

type setValueCall struct {
	interfaceID    string
	channelAddress string
	parameter      string
	value          any
	rxMode         string
}

type putParamsetCall struct {
	interfaceID    string
	channelAddress string
	paramsetKey    string
	paramset       map[string]any
	rxMode         string
}

type installModeCall struct {
	interfaceID string
	seconds     int
	mode        int
	address     string
}

type fakeHub struct {
	entityID  string
	variables map[string]any
	err       error
}

func (h *fakeHub) EntityID() string { return h.entityID }
func (h *fakeHub) SetVariable(_ context.Context, name string, value any) error {
	if h.err != nil {
		return h.err
	}
	if h.variables == nil {
		h.variables = map[string]any{}
	}
	h.variables[name] = value
	return nil
}

type fakeEntity struct {
	id       string
	name     string
	platform model.Platform
}

func (e *fakeEntity) EntityID() string         { return e.id }
func (e *fakeEntity) Name() string             { return e.name }
func (e *fakeEntity) Platform() model.Platform { return e.platform }

type fakeThermostat struct {
	fakeEntity
	enabled  []float64
	disabled int
	err      error
}

func (t *fakeThermostat) EnableAwayModeByCalendar(_ context.Context, _, _ time.Time, setPoint float64) error {
	if t.err != nil {
		return t.err
	}
	t.enabled = append(t.enabled, setPoint)
	return nil
}

func (t *fakeThermostat) DisableAwayMode(_ context.Context) error {
	if t.err != nil {
		return t.err
	}
	t.disabled++
	return nil
}

type fakeUnit struct {
	interfaces   map[string]bool
	hub          *fakeHub
	entities     []model.Entity
	setValues    []setValueCall
	putParamsets []putParamsetCall
	installModes []installModeCall
	err          error
}

func (u *fakeUnit) HasClient(interfaceID string) bool { return u.interfaces[interfaceID] }

func (u *fakeUnit) SetValue(_ context.Context, interfaceID, channelAddress, parameter string, value any, rxMode string) error {
	if u.err != nil {
		return u.err
	}
	u.setValues = append(u.setValues, setValueCall{interfaceID, channelAddress, parameter, value, rxMode})
	return nil
}

func (u *fakeUnit) PutParamset(_ context.Context, interfaceID, channelAddress, paramsetKey string, paramset map[string]any, rxMode string) error {
	if u.err != nil {
		return u.err
	}
	u.putParamsets = append(u.putParamsets, putParamsetCall{interfaceID, channelAddress, paramsetKey, paramset, rxMode})
	return nil
}

func (u *fakeUnit) SetInstallMode(_ context.Context, interfaceID string, seconds, mode int, deviceAddress string) error {
	if u.err != nil {
		return u.err
	}
	u.installModes = append(u.installModes, installModeCall{interfaceID, seconds, mode, deviceAddress})
	return nil
}

func (u *fakeUnit) Hub() control.Hub {
	if u.hub == nil {
		return nil
	}
	return u.hub
}

func (u *fakeUnit) Entity(entityID string) model.Entity {
	for _, e := range u.entities {
		if e.EntityID() == entityID {
			return e
		}
	}
	return nil
}

func (u *fakeUnit) EntitiesByPlatform(p model.Platform) []model.Entity {
	var out []model.Entity
	for _, e := range u.entities {
		if e.Platform() == p {
			out = append(out, e)
		}
	}
	return out
}

type memAuditStore struct {
	records []audit.CallRecord
}

func (m *memAuditStore) Append(_ context.Context, rec audit.CallRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memAuditStore) Query(_ context.Context, q audit.Query) ([]audit.CallRecord, error) {
	var out []audit.CallRecord
	for _, r := range m.records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memAuditStore) Close() error { return nil }

type memSink struct {
	results []metrics.CallResult
}

func (m *memSink) RecordCallResult(res []metrics.CallResult) error {
	m.results = append(m.results, res...)
	return nil
}

func newTestDispatcher(t *testing.T, units ...*fakeUnit) (*Dispatcher, *registry.DeviceRegistry, *control.Set) {
	t.Helper()
	devices := registry.New()
	set := control.NewSet()
	for i, u := range units {
		set.Add(fmt.Sprintf("unit%d", i), u)
	}
	d, err := NewDispatcher(devices, set, logger.NopLogger{})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	d.sleep = func(time.Duration) {}
	d.Setup()
	return d, devices, set
}

func TestSetupIsIdempotent(t *testing.T) {
	d, _, _ := newTestDispatcher(t, &fakeUnit{})
	before := d.Services()
	d.Setup()
	after := d.Services()
	if len(before) != 6 || len(after) != 6 {
		t.Fatalf("expected 6 services, got %d then %d", len(before), len(after))
	}
	want := []string{
		ServiceDisableAwayMode,
		ServiceEnableAwayModeByCalendar,
		ServicePutParamset,
		ServiceSetDeviceValue,
		ServiceSetInstallMode,
		ServiceSetVariableValue,
	}
	for i, name := range want {
		if after[i] != name {
			t.Fatalf("services not sorted: %v", after)
		}
	}
}

func TestTeardown(t *testing.T) {
	d, _, _ := newTestDispatcher(t, &fakeUnit{})
	d.Teardown()
	if len(d.Services()) != 0 {
		t.Fatalf("services survive teardown")
	}
	err := d.Dispatch(context.Background(), model.ServiceCall{Name: ServiceDisableAwayMode})
	if !errors.Is(err, ErrUnknownService) {
		t.Fatalf("expected ErrUnknownService, got %v", err)
	}
}

func TestServiceFields(t *testing.T) {
	d, _, _ := newTestDispatcher(t, &fakeUnit{})
	fields, ok := d.ServiceFields(ServiceSetDeviceValue)
	if !ok {
		t.Fatalf("service not registered")
	}
	want := []string{"device_id", "channel", "parameter", "value", "value_type", "rx_mode"}
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("unexpected fields %v", fields)
		}
	}
	if _, ok := d.ServiceFields("bogus"); ok {
		t.Fatalf("unknown service must not report fields")
	}
}

func TestDispatchUnknownService(t *testing.T) {
	d, _, _ := newTestDispatcher(t, &fakeUnit{})
	store := &memAuditStore{}
	d.SetAuditStore(store)
	err := d.Dispatch(context.Background(), model.ServiceCall{Name: "bogus"})
	if !errors.Is(err, ErrUnknownService) {
		t.Fatalf("expected ErrUnknownService, got %v", err)
	}
	if len(store.records) != 1 || store.records[0].Outcome != audit.OutcomeRejected {
		t.Fatalf("unexpected audit trail %+v", store.records)
	}
}

func TestDispatchSchemaRejection(t *testing.T) {
	d, _, _ := newTestDispatcher(t, &fakeUnit{})
	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceSetDeviceValue,
		Data: map[string]any{"device_id": "d1", "parameter": "LEVEL"},
	})
	var fe *schema.FieldError
	if !errors.As(err, &fe) || fe.Field != "value" {
		t.Fatalf("expected field error for value, got %v", err)
	}
}

func TestSetVariableValue(t *testing.T) {
	hub := &fakeHub{entityID: "ccu2"}
	unit := &fakeUnit{hub: hub}
	d, _, _ := newTestDispatcher(t, unit)

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceSetVariableValue,
		Data: map[string]any{"entity_id": "ccu2", "name": "Presence", "value": true},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if hub.variables["Presence"] != true {
		t.Fatalf("variable not set: %+v", hub.variables)
	}
}

func TestSetVariableValueSilentDrops(t *testing.T) {
	hub := &fakeHub{entityID: "ccu2"}
	d, _, _ := newTestDispatcher(t, &fakeUnit{hub: hub})
	store := &memAuditStore{}
	d.SetAuditStore(store)

	cases := []any{
		"unknown_hub",
		"all",
		[]string{"ccu2", "ccu3"},
	}
	for _, target := range cases {
		err := d.Dispatch(context.Background(), model.ServiceCall{
			Name: ServiceSetVariableValue,
			Data: map[string]any{"entity_id": target, "name": "Presence", "value": 1},
		})
		if err != nil {
			t.Fatalf("target %v: unexpected error %v", target, err)
		}
	}
	if len(hub.variables) != 0 {
		t.Fatalf("no variable should be set: %+v", hub.variables)
	}
	dropped, _ := store.Query(context.Background(), audit.Query{Outcome: audit.OutcomeDropped})
	if len(dropped) != len(cases) {
		t.Fatalf("expected %d dropped records, got %d", len(cases), len(dropped))
	}
}

func TestSetVariableValueHubFailure(t *testing.T) {
	hub := &fakeHub{entityID: "ccu2", err: fmt.Errorf("ccu unreachable")}
	d, _, _ := newTestDispatcher(t, &fakeUnit{hub: hub})
	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceSetVariableValue,
		Data: map[string]any{"entity_id": "ccu2", "name": "Presence", "value": 1},
	})
	if err == nil || err.Error() != "ccu unreachable" {
		t.Fatalf("expected hub error, got %v", err)
	}
}

func TestSetDeviceValue(t *testing.T) {
	unit := &fakeUnit{interfaces: map[string]bool{"hmip_rf": true}}
	d, devices, _ := newTestDispatcher(t, unit)
	devices.Add("abcdef01", registry.Entry{DeviceAddress: "VCU0001", InterfaceID: "hmip_rf"})

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceSetDeviceValue,
		Data: map[string]any{
			"device_id":  "abcdef01",
			"parameter":  "set_point_temperature",
			"value":      "21.5",
			"value_type": "double",
			"rx_mode":    "burst",
		},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(unit.setValues) != 1 {
		t.Fatalf("expected one setValue call, got %d", len(unit.setValues))
	}
	call := unit.setValues[0]
	if call.channelAddress != "VCU0001:1" {
		t.Fatalf("default channel not applied: %s", call.channelAddress)
	}
	if call.parameter != "SET_POINT_TEMPERATURE" || call.rxMode != "BURST" {
		t.Fatalf("uppercasing not applied: %+v", call)
	}
	if call.value != 21.5 {
		t.Fatalf("value not coerced to double: %v (%T)", call.value, call.value)
	}
}

func TestSetDeviceValueExplicitChannel(t *testing.T) {
	unit := &fakeUnit{interfaces: map[string]bool{"hmip_rf": true}}
	d, devices, _ := newTestDispatcher(t, unit)
	devices.Add("abcdef01", registry.Entry{DeviceAddress: "VCU0001", InterfaceID: "hmip_rf"})

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceSetDeviceValue,
		Data: map[string]any{
			"device_id": "abcdef01",
			"channel":   "4",
			"parameter": "STATE",
			"value":     true,
		},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if unit.setValues[0].channelAddress != "VCU0001:4" {
		t.Fatalf("channel not applied: %s", unit.setValues[0].channelAddress)
	}
}

func TestSetDeviceValueDropsUnresolvable(t *testing.T) {
	unit := &fakeUnit{interfaces: map[string]bool{"hmip_rf": true}}
	d, devices, _ := newTestDispatcher(t, unit)
	store := &memAuditStore{}
	d.SetAuditStore(store)
	devices.Add("known", registry.Entry{DeviceAddress: "VCU0001", InterfaceID: "wired"})

	data := func(id string) map[string]any {
		return map[string]any{"device_id": id, "parameter": "STATE", "value": true}
	}
	// Unknown device id.
	if err := d.Dispatch(context.Background(), model.ServiceCall{Name: ServiceSetDeviceValue, Data: data("unknown")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Known device, but no unit serves its interface.
	if err := d.Dispatch(context.Background(), model.ServiceCall{Name: ServiceSetDeviceValue, Data: data("known")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(unit.setValues) != 0 {
		t.Fatalf("nothing should reach the backend")
	}
	dropped, _ := store.Query(context.Background(), audit.Query{Outcome: audit.OutcomeDropped})
	if len(dropped) != 2 {
		t.Fatalf("expected 2 dropped records, got %d", len(dropped))
	}
}

func TestSetDeviceValueBackendFailure(t *testing.T) {
	unit := &fakeUnit{interfaces: map[string]bool{"hmip_rf": true}, err: fmt.Errorf("interface down")}
	d, devices, _ := newTestDispatcher(t, unit)
	devices.Add("abcdef01", registry.Entry{DeviceAddress: "VCU0001", InterfaceID: "hmip_rf"})

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceSetDeviceValue,
		Data: map[string]any{"device_id": "abcdef01", "parameter": "STATE", "value": true},
	})
	if err == nil || err.Error() != "interface down" {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestPutParamset(t *testing.T) {
	unit := &fakeUnit{interfaces: map[string]bool{"hmip_rf": true}}
	d, devices, _ := newTestDispatcher(t, unit)
	devices.Add("abcdef01", registry.Entry{DeviceAddress: "VCU0001", InterfaceID: "hmip_rf"})

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServicePutParamset,
		Data: map[string]any{
			"device_id":    "abcdef01",
			"paramset_key": "master",
			"paramset":     map[string]any{"TEMPERATURE_MAXIMUM": 25.0},
		},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(unit.putParamsets) != 1 {
		t.Fatalf("expected one putParamset call")
	}
	call := unit.putParamsets[0]
	if call.paramsetKey != "MASTER" || call.channelAddress != "VCU0001:1" {
		t.Fatalf("unexpected call %+v", call)
	}
	if call.paramset["TEMPERATURE_MAXIMUM"] != 25.0 {
		t.Fatalf("paramset not forwarded: %+v", call.paramset)
	}
}

func TestSetInstallMode(t *testing.T) {
	unit := &fakeUnit{interfaces: map[string]bool{"hmip_rf": true}}
	d, _, _ := newTestDispatcher(t, unit)

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceSetInstallMode,
		Data: map[string]any{"interface_id": "hmip_rf"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(unit.installModes) != 1 {
		t.Fatalf("expected one installMode call")
	}
	call := unit.installModes[0]
	if call.seconds != 60 || call.mode != 1 || call.address != "" {
		t.Fatalf("defaults not applied: %+v", call)
	}
}

func TestSetInstallModeDropsUnknownInterface(t *testing.T) {
	unit := &fakeUnit{interfaces: map[string]bool{"hmip_rf": true}}
	d, _, _ := newTestDispatcher(t, unit)
	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceSetInstallMode,
		Data: map[string]any{"interface_id": "wired", "time": 30, "mode": 2, "address": "vcu0001"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(unit.installModes) != 0 {
		t.Fatalf("nothing should reach the backend")
	}
}

func TestDispatchRecordsMetrics(t *testing.T) {
	hub := &fakeHub{entityID: "ccu2"}
	d, _, _ := newTestDispatcher(t, &fakeUnit{hub: hub})
	sink := &memSink{}
	d.SetMetricsSink(sink)

	_ = d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceSetVariableValue,
		Data: map[string]any{"entity_id": "ccu2", "name": "Presence", "value": 1},
	})
	_ = d.Dispatch(context.Background(), model.ServiceCall{Name: "bogus"})

	if len(sink.results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(sink.results))
	}
	if sink.results[0].Outcome != string(audit.OutcomeDispatched) || sink.results[1].Outcome != string(audit.OutcomeRejected) {
		t.Fatalf("unexpected outcomes %+v", sink.results)
	}
	if sink.results[0].CallID == "" {
		t.Fatalf("call id must be assigned")
	}
}
