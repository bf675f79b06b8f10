// Package schema declares and validates service-call payloads. A Schema is a
// flat list of fields, each with an optional default and a coercion function
// that normalizes and constrains the raw value. Validation runs before any
// dispatch logic; a failing field rejects the whole call.
package schema

import (
	"errors"
	"fmt"
)

// Sentinel validation errors. FieldError wraps one of these (or a coercion
// error) together with the offending field name.
var (
	ErrRequired = errors.New("required field missing")
	ErrUnknown  = errors.New("unknown field")
)

// FieldError reports which field failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// CoerceFunc normalizes a raw payload value or rejects it.
type CoerceFunc func(any) (any, error)

// Field describes one schema entry.
type Field struct {
	Name       string
	Required   bool
	HasDefault bool
	Default    any
	Coerce     CoerceFunc
}

// Required declares a mandatory field.
func Required(name string, c CoerceFunc) Field {
	return Field{Name: name, Required: true, Coerce: c}
}

// RequiredDefault declares a mandatory field whose value is filled in when the
// caller omits it.
func RequiredDefault(name string, def any, c CoerceFunc) Field {
	return Field{Name: name, Required: true, HasDefault: true, Default: def, Coerce: c}
}

// Optional declares a field that may be absent. OptionalDefault fills in a
// value when it is.
func Optional(name string, c CoerceFunc) Field {
	return Field{Name: name, Coerce: c}
}

func OptionalDefault(name string, def any, c CoerceFunc) Field {
	return Field{Name: name, HasDefault: true, Default: def, Coerce: c}
}

// Schema is an ordered set of fields. Payload keys not declared in the schema
// are rejected.
type Schema struct {
	fields []Field
}

// New builds a Schema from the given fields.
func New(fields ...Field) Schema {
	return Schema{fields: fields}
}

// Fields returns the declared field names in declaration order.
func (s Schema) Fields() []string {
	names := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		names = append(names, f.Name)
	}
	return names
}

// Validate checks data against the schema and returns the normalized payload.
// Defaults are applied for absent fields, coercions run on present ones, and
// the input map is never modified.
func (s Schema) Validate(data map[string]any) (map[string]any, error) {
	declared := make(map[string]struct{}, len(s.fields))
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		declared[f.Name] = struct{}{}
		raw, ok := data[f.Name]
		if !ok {
			if f.HasDefault {
				out[f.Name] = f.Default
				continue
			}
			if f.Required {
				return nil, &FieldError{Field: f.Name, Err: ErrRequired}
			}
			continue
		}
		v := raw
		if f.Coerce != nil {
			var err error
			if v, err = f.Coerce(raw); err != nil {
				return nil, &FieldError{Field: f.Name, Err: err}
			}
		}
		out[f.Name] = v
	}
	for k := range data {
		if _, ok := declared[k]; !ok {
			return nil, &FieldError{Field: k, Err: ErrUnknown}
		}
	}
	return out, nil
}
