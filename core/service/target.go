package service

import (
	"fmt"

	"github.com/hmctl/hmdispatch/core/schema"
)

// Target is the normalized form of an entity_id payload field: either the
// literal "all" or an explicit list of entity ids.
type Target struct {
	All bool
	IDs []string
}

// entityTarget accepts the literal "all", a single entity id, or a list of
// entity ids.
func entityTarget() schema.CoerceFunc {
	return func(v any) (any, error) {
		switch t := v.(type) {
		case Target:
			return t, nil
		case string:
			if t == "all" {
				return Target{All: true}, nil
			}
			return Target{IDs: []string{t}}, nil
		case []string:
			ids := make([]string, len(t))
			copy(ids, t)
			return Target{IDs: ids}, nil
		case []any:
			ids := make([]string, 0, len(t))
			for _, e := range t {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("entity id must be a string, got %T", e)
				}
				ids = append(ids, s)
			}
			return Target{IDs: ids}, nil
		default:
			return nil, fmt.Errorf("expected entity id(s) or \"all\", got %T", v)
		}
	}
}
