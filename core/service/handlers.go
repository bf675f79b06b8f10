package service

import (
	"context"
	"time"

	"github.com/hmctl/hmdispatch/core/audit"
	"github.com/hmctl/hmdispatch/core/model"
)

func (d *Dispatcher) handleSetVariableValue(ctx context.Context, data map[string]any) (audit.Outcome, error) {
	target := data[attrEntityID].(Target)
	name := data[attrName].(string)
	value := data[attrValue]

	// A hub is addressed by exactly one entity id; "all" and multi-id
	// targets cannot match one.
	if target.All || len(target.IDs) != 1 {
		return audit.OutcomeDropped, nil
	}
	hub := d.hubByEntityID(target.IDs[0])
	if hub == nil {
		d.log.Debugf("no hub for entity id %s", target.IDs[0])
		return audit.OutcomeDropped, nil
	}
	if err := hub.SetVariable(ctx, name, value); err != nil {
		return audit.OutcomeFailed, err
	}
	return audit.OutcomeDispatched, nil
}

func (d *Dispatcher) handleSetDeviceValue(ctx context.Context, data map[string]any) (audit.Outcome, error) {
	deviceID := data[attrDeviceID].(string)
	channel := data[attrChannel].(int)
	parameter := data[attrParameter].(string)
	value := data[attrValue]
	valueType, _ := data[attrValueType].(string)
	rxMode, _ := data[attrRxMode].(string)

	value, err := coerceValue(value, valueType)
	if err != nil {
		return audit.OutcomeFailed, err
	}

	pair, ok := d.routingPair(deviceID, channel)
	if !ok {
		d.log.Debugf("device id %s not resolvable", deviceID)
		return audit.OutcomeDropped, nil
	}
	cu := d.unitByInterfaceID(pair.InterfaceID)
	if cu == nil {
		d.log.Debugf("no control unit for interface id %s", pair.InterfaceID)
		return audit.OutcomeDropped, nil
	}

	d.log.Debugw("calling setValue", map[string]any{
		"interface_id":    pair.InterfaceID,
		"channel_address": pair.ChannelAddress,
		"parameter":       parameter,
		"value":           value,
		"value_type":      valueType,
		"rx_mode":         rxMode,
	})
	if err := cu.SetValue(ctx, pair.InterfaceID, pair.ChannelAddress, parameter, value, rxMode); err != nil {
		return audit.OutcomeFailed, err
	}
	return audit.OutcomeDispatched, nil
}

func (d *Dispatcher) handlePutParamset(ctx context.Context, data map[string]any) (audit.Outcome, error) {
	deviceID := data[attrDeviceID].(string)
	channel := data[attrChannel].(int)
	paramsetKey := data[attrParamsetKey].(string)
	paramset := data[attrParamset].(map[string]any)
	rxMode, _ := data[attrRxMode].(string)

	pair, ok := d.routingPair(deviceID, channel)
	if !ok {
		d.log.Debugf("device id %s not resolvable", deviceID)
		return audit.OutcomeDropped, nil
	}
	cu := d.unitByInterfaceID(pair.InterfaceID)
	if cu == nil {
		d.log.Debugf("no control unit for interface id %s", pair.InterfaceID)
		return audit.OutcomeDropped, nil
	}

	d.log.Debugw("calling putParamset", map[string]any{
		"interface_id":    pair.InterfaceID,
		"channel_address": pair.ChannelAddress,
		"paramset_key":    paramsetKey,
		"paramset":        paramset,
		"rx_mode":         rxMode,
	})
	if err := cu.PutParamset(ctx, pair.InterfaceID, pair.ChannelAddress, paramsetKey, paramset, rxMode); err != nil {
		return audit.OutcomeFailed, err
	}
	return audit.OutcomeDispatched, nil
}

func (d *Dispatcher) handleSetInstallMode(ctx context.Context, data map[string]any) (audit.Outcome, error) {
	interfaceID := data[attrInterfaceID].(string)
	seconds := data[attrTime].(int)
	mode := data[attrMode].(int)
	deviceAddress, _ := data[attrAddress].(string)

	cu := d.unitByInterfaceID(interfaceID)
	if cu == nil {
		d.log.Debugf("no control unit for interface id %s", interfaceID)
		return audit.OutcomeDropped, nil
	}
	if err := cu.SetInstallMode(ctx, interfaceID, seconds, mode, deviceAddress); err != nil {
		return audit.OutcomeFailed, err
	}
	return audit.OutcomeDispatched, nil
}

func (d *Dispatcher) handleEnableAwayModeByCalendar(ctx context.Context, data map[string]any) (audit.Outcome, error) {
	target := data[attrEntityID].(Target)
	start := data[attrAwayStart].(time.Time)
	end := data[attrAwayEnd].(time.Time)
	setPoint := data[attrAwaySetPoint].(float64)

	return d.forEachTargetEntity(target, func(e model.Entity) error {
		ctrl, ok := e.(model.AwayModeController)
		if !ok {
			return errSkipEntity
		}
		if err := ctrl.EnableAwayModeByCalendar(ctx, start, end, setPoint); err != nil {
			return err
		}
		d.log.Debugw("calling enable_away_mode_by_calendar", map[string]any{
			"entity":    e.Name(),
			"start":     start,
			"end":       end,
			"set_point": setPoint,
		})
		return nil
	})
}

func (d *Dispatcher) handleDisableAwayMode(ctx context.Context, data map[string]any) (audit.Outcome, error) {
	target := data[attrEntityID].(Target)

	return d.forEachTargetEntity(target, func(e model.Entity) error {
		ctrl, ok := e.(model.AwayModeController)
		if !ok {
			return errSkipEntity
		}
		if err := ctrl.DisableAwayMode(ctx); err != nil {
			return err
		}
		d.log.Debugf("calling disable_away_mode: %s", e.Name())
		return nil
	})
}
