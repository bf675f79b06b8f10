package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// datetimeLayouts are accepted by Datetime, most specific first.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// String accepts strings and stringifies numeric and boolean scalars.
func String() CoerceFunc {
	return func(v any) (any, error) {
		switch t := v.(type) {
		case string:
			return t, nil
		case bool, int, int64, float64:
			return fmt.Sprintf("%v", t), nil
		default:
			return nil, fmt.Errorf("expected string, got %T", v)
		}
	}
}

// Upper coerces to string and upper-cases the result.
func Upper() CoerceFunc {
	s := String()
	return func(v any) (any, error) {
		out, err := s(v)
		if err != nil {
			return nil, err
		}
		return strings.ToUpper(out.(string)), nil
	}
}

// Int accepts integers, truncates floats and parses decimal strings.
func Int() CoerceFunc {
	return func(v any) (any, error) {
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
				return nil, fmt.Errorf("invalid integer %q", t)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", v)
		}
	}
}

// PositiveInt coerces like Int and rejects negative values.
func PositiveInt() CoerceFunc {
	i := Int()
	return func(v any) (any, error) {
		out, err := i(v)
		if err != nil {
			return nil, err
		}
		if out.(int) < 0 {
			return nil, fmt.Errorf("value %d must not be negative", out)
		}
		return out, nil
	}
}

// IntOneOf coerces like Int and requires membership in allowed.
func IntOneOf(allowed ...int) CoerceFunc {
	i := Int()
	return func(v any) (any, error) {
		out, err := i(v)
		if err != nil {
			return nil, err
		}
		for _, a := range allowed {
			if out.(int) == a {
				return out, nil
			}
		}
		return nil, fmt.Errorf("value %d not in %v", out, allowed)
	}
}

// Float accepts floats, integers and numeric strings.
func Float() CoerceFunc {
	return func(v any) (any, error) {
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
				return nil, fmt.Errorf("invalid float %q", t)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("expected float, got %T", v)
		}
	}
}

// FloatRange coerces like Float and enforces the inclusive range [min, max].
func FloatRange(min, max float64) CoerceFunc {
	f := Float()
	return func(v any) (any, error) {
		out, err := f(v)
		if err != nil {
			return nil, err
		}
		val := out.(float64)
		if val < min || val > max {
			return nil, fmt.Errorf("value %g outside range [%g, %g]", val, min, max)
		}
		return val, nil
	}
}

// OneOf requires a string member of allowed. No case folding is applied.
func OneOf(allowed ...string) CoerceFunc {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		for _, a := range allowed {
			if s == a {
				return s, nil
			}
		}
		return nil, fmt.Errorf("value %q not in %v", s, allowed)
	}
}

// Datetime accepts time.Time values and common timestamp strings.
func Datetime() CoerceFunc {
	return func(v any) (any, error) {
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			for _, layout := range datetimeLayouts {
				if ts, err := time.Parse(layout, t); err == nil {
					return ts, nil
				}
			}
			return nil, fmt.Errorf("invalid datetime %q", t)
		default:
			return nil, fmt.Errorf("expected datetime, got %T", v)
		}
	}
}

// Mapping accepts a string-keyed map and returns a shallow copy so later
// mutation of the payload cannot leak into handlers.
func Mapping() CoerceFunc {
	return func(v any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected mapping, got %T", v)
		}
		cp := make(map[string]any, len(m))
		for k, val := range m {
			cp[k] = val
		}
		return cp, nil
	}
}

// Any passes every value through unchanged.
func Any() CoerceFunc {
	return func(v any) (any, error) { return v, nil }
}
