package service

import "github.com/hmctl/hmdispatch/core/schema"

// Registered service names.
const (
	ServiceSetVariableValue         = "set_variable_value"
	ServiceSetDeviceValue           = "set_device_value"
	ServicePutParamset              = "put_paramset"
	ServiceSetInstallMode           = "set_install_mode"
	ServiceEnableAwayModeByCalendar = "enable_away_mode_by_calendar"
	ServiceDisableAwayMode          = "disable_away_mode"
)

// Payload field names.
const (
	attrEntityID      = "entity_id"
	attrName          = "name"
	attrValue         = "value"
	attrValueType     = "value_type"
	attrDeviceID      = "device_id"
	attrChannel       = "channel"
	attrParameter     = "parameter"
	attrParamset      = "paramset"
	attrParamsetKey   = "paramset_key"
	attrRxMode        = "rx_mode"
	attrInterfaceID   = "interface_id"
	attrTime          = "time"
	attrMode          = "mode"
	attrAddress       = "address"
	attrAwayStart     = "away_start_time"
	attrAwayEnd       = "away_end_time"
	attrAwaySetPoint  = "away_set_point_temperature"
)

const (
	defaultChannel       = 1
	defaultInstallTime   = 60
	defaultInstallMode   = 1
	defaultAwaySetPoint  = 18.0
	minAwaySetPoint      = 4.5
	maxAwaySetPoint      = 30.5
)

// valueTypes are the wire types accepted by set_device_value.
var valueTypes = []string{"boolean", "dateTime.iso8601", "double", "int", "string"}

func setVariableValueSchema() schema.Schema {
	return schema.New(
		schema.Required(attrEntityID, entityTarget()),
		schema.Required(attrName, schema.String()),
		schema.Required(attrValue, schema.Any()),
	)
}

func setDeviceValueSchema() schema.Schema {
	return schema.New(
		schema.Required(attrDeviceID, schema.String()),
		schema.RequiredDefault(attrChannel, defaultChannel, schema.Int()),
		schema.Required(attrParameter, schema.Upper()),
		schema.Required(attrValue, schema.Any()),
		schema.Optional(attrValueType, schema.OneOf(valueTypes...)),
		schema.Optional(attrRxMode, schema.Upper()),
	)
}

func putParamsetSchema() schema.Schema {
	return schema.New(
		schema.Required(attrDeviceID, schema.String()),
		schema.RequiredDefault(attrChannel, defaultChannel, schema.Int()),
		schema.Required(attrParamsetKey, schema.Upper()),
		schema.Required(attrParamset, schema.Mapping()),
		schema.Optional(attrRxMode, schema.Upper()),
	)
}

func setInstallModeSchema() schema.Schema {
	return schema.New(
		schema.Required(attrInterfaceID, schema.String()),
		schema.OptionalDefault(attrTime, defaultInstallTime, schema.PositiveInt()),
		schema.OptionalDefault(attrMode, defaultInstallMode, schema.IntOneOf(1, 2)),
		schema.Optional(attrAddress, schema.Upper()),
	)
}

func enableAwayModeByCalendarSchema() schema.Schema {
	return schema.New(
		schema.Required(attrEntityID, entityTarget()),
		schema.Required(attrAwayStart, schema.Datetime()),
		schema.Required(attrAwayEnd, schema.Datetime()),
		schema.RequiredDefault(attrAwaySetPoint, defaultAwaySetPoint,
			schema.FloatRange(minAwaySetPoint, maxAwaySetPoint)),
	)
}

func disableAwayModeSchema() schema.Schema {
	return schema.New(
		schema.Required(attrEntityID, entityTarget()),
	)
}
