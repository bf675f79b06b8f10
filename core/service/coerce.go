package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// iso8601Layout matches the dateTime.iso8601 wire format of the backend RPC
// protocol, e.g. "20220101T10:00:00".
const iso8601Layout = "20060102T15:04:05"

// coerceValue converts a raw payload value into the requested wire type. An
// empty valueType leaves the value unchanged. Conversion failures surface to
// the caller; they are not part of the silent-drop taxonomy.
func coerceValue(value any, valueType string) (any, error) {
	switch valueType {
	case "":
		return value, nil
	case "int":
		return toInt(value)
	case "double":
		return toFloat(value)
	case "boolean":
		return toBool(value)
	case "dateTime.iso8601":
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("dateTime.iso8601 requires a string, got %T", value)
		}
		ts, err := time.Parse(iso8601Layout, s)
		if err != nil {
			return nil, fmt.Errorf("invalid dateTime.iso8601 value %q", s)
		}
		return ts, nil
	default:
		// The schema restricts value_type to the known set; anything that
		// slips through is cast to string like the backend expects.
		return fmt.Sprintf("%v", value), nil
	}
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("invalid int value %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid double value %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to double", v)
	}
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("invalid boolean value %q", t)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
}
