package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hmctl/hmdispatch/core/audit"
	"github.com/hmctl/hmdispatch/core/model"
)

func awayData(target any) map[string]any {
	return map[string]any{
		"entity_id":       target,
		"away_start_time": "2026-03-01T08:00:00Z",
		"away_end_time":   "2026-03-07T18:00:00Z",
	}
}

func TestEnableAwayModeAll(t *testing.T) {
	t1 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.living", name: "Living", platform: model.PlatformClimate}}
	t2 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.bath", name: "Bath", platform: model.PlatformClimate}}
	sw := &fakeEntity{id: "switch.garden", name: "Garden", platform: model.PlatformSwitch}
	u1 := &fakeUnit{entities: []model.Entity{t1, sw}}
	u2 := &fakeUnit{entities: []model.Entity{t2}}
	d, _, _ := newTestDispatcher(t, u1, u2)

	var pauses int
	d.sleep = func(time.Duration) { pauses++ }

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceEnableAwayModeByCalendar,
		Data: awayData("all"),
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(t1.enabled) != 1 || len(t2.enabled) != 1 {
		t.Fatalf("each thermostat must be enabled exactly once: %d %d", len(t1.enabled), len(t2.enabled))
	}
	if t1.enabled[0] != 18.0 {
		t.Fatalf("default set point not applied: %v", t1.enabled[0])
	}
	if pauses != 2 {
		t.Fatalf("expected a pause after each applied call, got %d", pauses)
	}
}

func TestEnableAwayModeExplicitIDs(t *testing.T) {
	t1 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.living", name: "Living", platform: model.PlatformClimate}}
	t2 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.bath", name: "Bath", platform: model.PlatformClimate}}
	d, _, _ := newTestDispatcher(t, &fakeUnit{entities: []model.Entity{t1, t2}})

	data := awayData([]string{"climate.bath", "climate.unknown"})
	data["away_set_point_temperature"] = 16.5
	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceEnableAwayModeByCalendar,
		Data: data,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(t1.enabled) != 0 {
		t.Fatalf("untargeted thermostat must stay untouched")
	}
	if len(t2.enabled) != 1 || t2.enabled[0] != 16.5 {
		t.Fatalf("targeted thermostat not enabled: %+v", t2.enabled)
	}
}

func TestEnableAwayModeSkipsNonControllers(t *testing.T) {
	sw := &fakeEntity{id: "switch.garden", name: "Garden", platform: model.PlatformSwitch}
	d, _, _ := newTestDispatcher(t, &fakeUnit{entities: []model.Entity{sw}})
	store := &memAuditStore{}
	d.SetAuditStore(store)

	var pauses int
	d.sleep = func(time.Duration) { pauses++ }

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceEnableAwayModeByCalendar,
		Data: awayData([]string{"switch.garden"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pauses != 0 {
		t.Fatalf("skipped entities must not pause")
	}
	dropped, _ := store.Query(context.Background(), audit.Query{Outcome: audit.OutcomeDropped})
	if len(dropped) != 1 {
		t.Fatalf("batch with no applied call must audit as dropped")
	}
}

func TestEnableAwayModeAbortsOnFailure(t *testing.T) {
	t1 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.a", name: "A", platform: model.PlatformClimate}, err: fmt.Errorf("paramset failed")}
	t2 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.b", name: "B", platform: model.PlatformClimate}}
	d, _, _ := newTestDispatcher(t, &fakeUnit{entities: []model.Entity{t1, t2}})

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceEnableAwayModeByCalendar,
		Data: awayData("all"),
	})
	if err == nil || err.Error() != "paramset failed" {
		t.Fatalf("expected failure, got %v", err)
	}
	if len(t2.enabled) != 0 {
		t.Fatalf("batch must abort on the first failure")
	}
}

func TestEnableAwayModeRejectsOutOfRangeSetPoint(t *testing.T) {
	t1 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.a", name: "A", platform: model.PlatformClimate}}
	d, _, _ := newTestDispatcher(t, &fakeUnit{entities: []model.Entity{t1}})

	data := awayData("all")
	data["away_set_point_temperature"] = 40.0
	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceEnableAwayModeByCalendar,
		Data: data,
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if len(t1.enabled) != 0 {
		t.Fatalf("rejected call must not reach entities")
	}
}

func TestDisableAwayMode(t *testing.T) {
	t1 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.a", name: "A", platform: model.PlatformClimate}}
	t2 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.b", name: "B", platform: model.PlatformClimate}}
	d, _, _ := newTestDispatcher(t, &fakeUnit{entities: []model.Entity{t1, t2}})

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceDisableAwayMode,
		Data: map[string]any{"entity_id": "all"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if t1.disabled != 1 || t2.disabled != 1 {
		t.Fatalf("each thermostat must be disabled once: %d %d", t1.disabled, t2.disabled)
	}
}

func TestDisableAwayModeSingleEntity(t *testing.T) {
	t1 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.a", name: "A", platform: model.PlatformClimate}}
	d, _, _ := newTestDispatcher(t, &fakeUnit{entities: []model.Entity{t1}})

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceDisableAwayMode,
		Data: map[string]any{"entity_id": "climate.a"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if t1.disabled != 1 {
		t.Fatalf("thermostat not disabled")
	}
}

func TestAwayModePauseIsConfigurable(t *testing.T) {
	t1 := &fakeThermostat{fakeEntity: fakeEntity{id: "climate.a", name: "A", platform: model.PlatformClimate}}
	d, _, _ := newTestDispatcher(t, &fakeUnit{entities: []model.Entity{t1}})

	var slept []time.Duration
	d.sleep = func(p time.Duration) { slept = append(slept, p) }
	d.SetAwayModePause(3 * time.Second)

	err := d.Dispatch(context.Background(), model.ServiceCall{
		Name: ServiceDisableAwayMode,
		Data: map[string]any{"entity_id": "all"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Fatalf("unexpected pauses %v", slept)
	}
}
